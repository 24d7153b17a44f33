// Package ingest mirrors a consultation log batch into the store: patients
// are found or created by name key, details are overwritten, and
// consultations are inserted once per fingerprint.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/ingestrun"
	"github.com/consultorio/clinicdb/internal/domain/patient"
	"github.com/consultorio/clinicdb/internal/platform/tabular"
	"github.com/consultorio/clinicdb/internal/platform/textnorm"
)

// ErrStoreNotInitialized is returned by Update when the store has no schema.
var ErrStoreNotInitialized = errors.New("store is not initialized")

type Mode string

const (
	ModeInitialize Mode = "init"
	ModeUpdate     Mode = "update"
)

// Store is the part of the persistent store the engine drives directly.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Init(ctx context.Context, schemaPath string) error
	Initialized(ctx context.Context) (bool, error)
}

// Summary counts what one batch did to the store.
type Summary struct {
	RunID                 uuid.UUID
	Mode                  Mode
	Source                string
	StartedAt             time.Time
	FinishedAt            time.Time
	RowsRead              int
	PatientsCreated       int
	DetailsInserted       int
	DetailsUpdated        int
	ConsultationsInserted int
	DuplicatesSkipped     int
	ColumnsAdded          []string
}

// Run converts the summary into its ingest_runs record.
func (s *Summary) Run() *ingestrun.Run {
	return &ingestrun.Run{
		ID:                    s.RunID,
		Mode:                  string(s.Mode),
		Source:                s.Source,
		StartedAt:             s.StartedAt,
		FinishedAt:            s.FinishedAt,
		RowsRead:              s.RowsRead,
		PatientsCreated:       s.PatientsCreated,
		DetailsInserted:       s.DetailsInserted,
		DetailsUpdated:        s.DetailsUpdated,
		ConsultationsInserted: s.ConsultationsInserted,
		DuplicatesSkipped:     s.DuplicatesSkipped,
		ColumnsAdded:          len(s.ColumnsAdded),
	}
}

type Engine struct {
	store         Store
	patients      *patient.Service
	consultations *consultation.Service
	runs          ingestrun.RunRepository
	logger        zerolog.Logger
	now           func() time.Time
}

func NewEngine(store Store, patients *patient.Service, consultations *consultation.Service,
	runs ingestrun.RunRepository, logger zerolog.Logger) *Engine {
	return &Engine{
		store:         store,
		patients:      patients,
		consultations: consultations,
		runs:          runs,
		logger:        logger,
		now:           time.Now,
	}
}

// Initialize applies the schema (schemaPath overrides the built-in one when
// set) and ingests batch.
func (e *Engine) Initialize(ctx context.Context, batch *tabular.Batch, schemaPath string) (*Summary, error) {
	if err := e.store.Init(ctx, schemaPath); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return e.run(ctx, ModeInitialize, batch)
}

// Update ingests batch into an initialized store, first adding a
// consultation column for every unclassified input column.
func (e *Engine) Update(ctx context.Context, batch *tabular.Batch) (*Summary, error) {
	ok, err := e.store.Initialized(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStoreNotInitialized
	}
	return e.run(ctx, ModeUpdate, batch)
}

// batchRun is the state of one run over a batch.
type batchRun struct {
	classes    Classes
	evolved    []string
	summary    *Summary
	logger     zerolog.Logger
	warnedName bool
}

func (e *Engine) run(ctx context.Context, mode Mode, batch *tabular.Batch) (*Summary, error) {
	br := &batchRun{
		classes: Classify(batch.Columns),
		summary: &Summary{
			RunID:     uuid.New(),
			Mode:      mode,
			Source:    batch.Source,
			StartedAt: e.now(),
		},
	}
	br.logger = e.logger.With().
		Str("run_id", br.summary.RunID.String()).
		Str("mode", string(mode)).
		Str("source", batch.Source).
		Logger()

	br.logger.Info().
		Int("rows", len(batch.Rows)).
		Int("columns", len(batch.Columns)).
		Strs("extra_columns", br.classes.Extra).
		Msg("ingest started")

	err := e.store.RunInTx(ctx, func(ctx context.Context) error {
		if mode == ModeUpdate {
			added, err := e.consultations.EnsureColumns(ctx, br.classes.Extra)
			if err != nil {
				return err
			}
			for _, col := range added {
				br.logger.Info().Str("column", col).Msg("consultation column added")
			}
			br.summary.ColumnsAdded = added
			br.evolved = consultation.Evolvable(br.classes.Extra)
		}

		for _, row := range batch.Rows {
			if err := e.ingestRow(ctx, br, row); err != nil {
				return fmt.Errorf("%s line %d: %w", batch.Source, row.Line, err)
			}
		}

		br.summary.FinishedAt = e.now()
		if err := e.runs.Create(ctx, br.summary.Run()); err != nil {
			return fmt.Errorf("record ingest run: %w", err)
		}
		return nil
	})
	if err != nil {
		br.logger.Error().Err(err).Msg("ingest aborted, nothing committed")
		return nil, err
	}

	s := br.summary
	br.logger.Info().
		Int("rows_read", s.RowsRead).
		Int("patients_created", s.PatientsCreated).
		Int("details_inserted", s.DetailsInserted).
		Int("details_updated", s.DetailsUpdated).
		Int("consultations_inserted", s.ConsultationsInserted).
		Int("duplicates_skipped", s.DuplicatesSkipped).
		Int("columns_added", len(s.ColumnsAdded)).
		Dur("elapsed", s.FinishedAt.Sub(s.StartedAt)).
		Msg("ingest finished")
	return s, nil
}

func (e *Engine) ingestRow(ctx context.Context, br *batchRun, row tabular.Row) error {
	br.summary.RowsRead++

	p := &patient.Patient{
		NameKey:         textnorm.NameKey(row.Get("nombres"), row.Get("apellido_paterno"), row.Get("apellido_materno")),
		GivenNames:      row.Get("nombres"),
		PaternalSurname: row.Get("apellido_paterno"),
		MaternalSurname: row.Get("apellido_materno"),
		Sex:             row.Get("sexo"),
		BirthPlace:      row.Get("lugar_de_nacimiento"),
		BirthDate:       textnorm.Date(row.Get("fecha_de_nacimiento")),
		NationalID:      row.Get("curp"),
	}
	if p.NameKey == "" && !br.warnedName {
		br.logger.Warn().Int("line", row.Line).Msg("row without name; grouped under the empty name key")
		br.warnedName = true
	}
	pid, created, err := e.patients.FindOrCreate(ctx, p)
	if err != nil {
		return err
	}
	if created {
		br.summary.PatientsCreated++
	}

	extra, err := bag(row.Get, br.classes.Extra)
	if err != nil {
		return fmt.Errorf("encode unclassified columns: %w", err)
	}

	inserted, err := e.patients.UpsertDetail(ctx, &patient.Detail{
		PatientID:    pid,
		RecordNumber: row.Get("numero_de_expediente"),
		Phone:        row.Get("telefono"),
		Allergy:      row.Get("alergia"),
		Meta:         extra,
	})
	if err != nil {
		return err
	}
	if inserted {
		br.summary.DetailsInserted++
	} else {
		br.summary.DetailsUpdated++
	}

	c := &consultation.Consultation{
		PatientID:   pid,
		Fingerprint: Fingerprint(row.Values()),
		Data:        extra,
	}
	for _, col := range br.classes.Consultation {
		c.SetField(col, row.Get(col))
	}
	c.Date = textnorm.Date(c.Date)
	if len(br.evolved) > 0 {
		c.Extra = make(map[string]string, len(br.evolved))
		for _, col := range br.evolved {
			c.Extra[col] = row.Get(col)
		}
	}

	recorded, err := e.consultations.Record(ctx, c)
	if err != nil {
		return err
	}
	if !recorded {
		br.summary.DuplicatesSkipped++
		br.logger.Debug().Int("line", row.Line).Str("row_hash", c.Fingerprint).Msg("duplicate consultation skipped")
		return nil
	}
	br.summary.ConsultationsInserted++
	return nil
}
