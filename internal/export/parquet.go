// Package export writes stored consultations, joined with the identity of
// their patient, to Parquet files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/patient"
)

// ConsultationRow is one exported consultation. Fields holds every
// non-empty core column as a JSON object; Data is the stored bag of
// unclassified input columns.
type ConsultationRow struct {
	ConsultationID int64  `parquet:"consultation_id"`
	PatientID      int64  `parquet:"patient_id"`
	Name           string `parquet:"nombre"`
	Sex            string `parquet:"sexo"`
	BirthDate      string `parquet:"fecha_de_nacimiento"`
	NationalID     string `parquet:"curp"`
	Date           string `parquet:"fecha_consulta"`
	Weight         string `parquet:"peso"`
	Height         string `parquet:"talla"`
	BloodPressure  string `parquet:"tension_arterial"`
	Temperature    string `parquet:"temperatura"`
	Diagnosis      string `parquet:"diagnostico"`
	Treatment      string `parquet:"tratamiento"`
	Fields         string `parquet:"fields"`
	Data           string `parquet:"data"`
	RowHash        string `parquet:"row_hash"`
}

const flushInterval = 50_000

// Writer appends consultation rows to a Snappy-compressed Parquet file.
type Writer struct {
	file   *os.File
	writer *parquet.GenericWriter[ConsultationRow]
	count  int
}

// NewWriter creates (or truncates) filename.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[ConsultationRow](file,
		parquet.Compression(&parquet.Snappy),
		parquet.CreatedBy("clinicdb", "1.0", ""),
	)

	return &Writer{file: file, writer: writer}, nil
}

// Write appends one consultation together with its patient.
func (w *Writer) Write(c *consultation.Consultation, p *patient.Patient) error {
	row, err := toRow(c, p)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write([]ConsultationRow{row}); err != nil {
		return fmt.Errorf("write parquet row: %w", err)
	}

	w.count++
	if w.count%flushInterval == 0 {
		if err := w.writer.Flush(); err != nil {
			return fmt.Errorf("flush parquet row group: %w", err)
		}
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of rows written so far.
func (w *Writer) Count() int {
	return w.count
}

// ConsultationSource lists stored consultations by date.
type ConsultationSource interface {
	ListRange(ctx context.Context, from, to string) ([]*consultation.Consultation, error)
}

// PatientSource resolves a patient by id.
type PatientSource interface {
	GetPatient(ctx context.Context, id int64) (*patient.Patient, error)
}

// Consultations writes every consultation dated within [from, to] to
// filename and returns how many rows were written. Empty bounds are open.
func Consultations(ctx context.Context, filename string, consultations ConsultationSource,
	patients PatientSource, from, to string, logger zerolog.Logger) (int, error) {

	items, err := consultations.ListRange(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list consultations: %w", err)
	}

	w, err := NewWriter(filename)
	if err != nil {
		return 0, err
	}

	cache := make(map[int64]*patient.Patient)
	for _, c := range items {
		p, ok := cache[c.PatientID]
		if !ok {
			p, err = patients.GetPatient(ctx, c.PatientID)
			if err != nil {
				w.Close()
				return 0, fmt.Errorf("load patient %d: %w", c.PatientID, err)
			}
			cache[c.PatientID] = p
		}
		if err := w.Write(c, p); err != nil {
			w.Close()
			return 0, err
		}
	}

	if err := w.Close(); err != nil {
		return 0, err
	}

	logger.Info().
		Str("file", filename).
		Str("from", from).
		Str("to", to).
		Int("rows", w.Count()).
		Int("patients", len(cache)).
		Msg("consultations exported")

	return w.Count(), nil
}

func toRow(c *consultation.Consultation, p *patient.Patient) (ConsultationRow, error) {
	fields := make(map[string]string)
	for _, col := range consultation.CoreColumns {
		if v := c.Field(col); v != "" {
			fields[col] = v
		}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return ConsultationRow{}, fmt.Errorf("encode fields of consultation %d: %w", c.ID, err)
	}

	data := string(c.Data)
	if data == "" {
		data = "{}"
	}

	return ConsultationRow{
		ConsultationID: c.ID,
		PatientID:      c.PatientID,
		Name:           p.NameKey,
		Sex:            p.Sex,
		BirthDate:      p.BirthDate,
		NationalID:     p.NationalID,
		Date:           c.Date,
		Weight:         c.Weight,
		Height:         c.Height,
		BloodPressure:  c.BloodPressure,
		Temperature:    c.Temperature,
		Diagnosis:      c.Diagnosis,
		Treatment:      c.Treatment,
		Fields:         string(encoded),
		Data:           data,
		RowHash:        c.Fingerprint,
	}, nil
}
