package patient

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/consultorio/clinicdb/internal/platform/db"
)

type sqlQueryable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type patientRepoSQLite struct{ db *sql.DB }

func NewPatientRepoSQLite(sqldb *sql.DB) PatientRepository {
	return &patientRepoSQLite{db: sqldb}
}

func (r *patientRepoSQLite) conn(ctx context.Context) sqlQueryable {
	if tx := db.SQLTxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *patientRepoSQLite) scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var createdAt string
	err := row.Scan(&p.ID, &p.NameKey, &p.GivenNames, &p.PaternalSurname, &p.MaternalSurname,
		&p.Sex, &p.BirthPlace, &p.BirthDate, &p.NationalID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = db.ParseTime(createdAt)
	return &p, nil
}

func (r *patientRepoSQLite) Create(ctx context.Context, p *Patient) error {
	p.CreatedAt = time.Now().UTC()
	res, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO patients (nombre, nombres, apellido_paterno, apellido_materno,
			sexo, lugar_de_nacimiento, fecha_de_nacimiento, curp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.NameKey, p.GivenNames, p.PaternalSurname, p.MaternalSurname,
		p.Sex, p.BirthPlace, p.BirthDate, p.NationalID, db.FormatTime(p.CreatedAt))
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *patientRepoSQLite) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = ?`, id))
}

func (r *patientRepoSQLite) GetByNameKey(ctx context.Context, nameKey string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+patientCols+` FROM patients WHERE nombre = ?`, nameKey))
}

func (r *patientRepoSQLite) Search(ctx context.Context, nameKey string, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patients WHERE nombre LIKE '%' || ? || '%'`, nameKey).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+patientCols+` FROM patients WHERE nombre LIKE '%' || ? || '%'
		ORDER BY nombre LIMIT ? OFFSET ?`, nameKey, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoSQLite) GetDetail(ctx context.Context, patientID int64) (*Detail, error) {
	var d Detail
	var meta, updatedAt string
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+detailCols+` FROM patient_details WHERE patient_id = ?`, patientID).
		Scan(&d.ID, &d.PatientID, &d.RecordNumber, &d.Phone, &d.Allergy, &meta, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Meta = []byte(meta)
	d.UpdatedAt = db.ParseTime(updatedAt)
	return &d, nil
}

func (r *patientRepoSQLite) CreateDetail(ctx context.Context, d *Detail) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO patient_details (patient_id, numero_de_expediente, telefono, alergia, meta, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.PatientID, d.RecordNumber, d.Phone, d.Allergy, d.metaOrEmpty(), db.FormatTime(d.UpdatedAt))
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (r *patientRepoSQLite) UpdateDetail(ctx context.Context, d *Detail) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := r.conn(ctx).ExecContext(ctx, `
		UPDATE patient_details SET numero_de_expediente = ?, telefono = ?, alergia = ?,
			meta = ?, updated_at = ?
		WHERE patient_id = ?`,
		d.RecordNumber, d.Phone, d.Allergy, d.metaOrEmpty(), db.FormatTime(d.UpdatedAt), d.PatientID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
