package patient

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/clinicdb/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `patient_id, nombre, COALESCE(nombres, ''), COALESCE(apellido_paterno, ''),
	COALESCE(apellido_materno, ''), COALESCE(sexo, ''), COALESCE(lugar_de_nacimiento, ''),
	COALESCE(fecha_de_nacimiento, ''), COALESCE(curp, ''), created_at`

const detailCols = `detail_id, patient_id, COALESCE(numero_de_expediente, ''), COALESCE(telefono, ''),
	COALESCE(alergia, ''), COALESCE(meta, '{}'), updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.NameKey, &p.GivenNames, &p.PaternalSurname, &p.MaternalSurname,
		&p.Sex, &p.BirthPlace, &p.BirthDate, &p.NationalID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (nombre, nombres, apellido_paterno, apellido_materno,
			sexo, lugar_de_nacimiento, fecha_de_nacimiento, curp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING patient_id, created_at`,
		p.NameKey, p.GivenNames, p.PaternalSurname, p.MaternalSurname,
		p.Sex, p.BirthPlace, p.BirthDate, p.NationalID).Scan(&p.ID, &p.CreatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, id))
}

func (r *patientRepoPG) GetByNameKey(ctx context.Context, nameKey string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE nombre = $1`, nameKey))
}

func (r *patientRepoPG) Search(ctx context.Context, nameKey string, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE nombre LIKE '%' || $1 || '%'`, nameKey).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE nombre LIKE '%' || $1 || '%'
		ORDER BY nombre LIMIT $2 OFFSET $3`, nameKey, limit, offset)
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

func (r *patientRepoPG) GetDetail(ctx context.Context, patientID int64) (*Detail, error) {
	var d Detail
	var meta string
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+detailCols+` FROM patient_details WHERE patient_id = $1`, patientID).
		Scan(&d.ID, &d.PatientID, &d.RecordNumber, &d.Phone, &d.Allergy, &meta, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Meta = []byte(meta)
	return &d, nil
}

func (r *patientRepoPG) CreateDetail(ctx context.Context, d *Detail) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_details (patient_id, numero_de_expediente, telefono, alergia, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING detail_id, updated_at`,
		d.PatientID, d.RecordNumber, d.Phone, d.Allergy, d.metaOrEmpty()).Scan(&d.ID, &d.UpdatedAt)
}

func (r *patientRepoPG) UpdateDetail(ctx context.Context, d *Detail) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_details SET numero_de_expediente = $2, telefono = $3, alergia = $4,
			meta = $5, updated_at = NOW()
		WHERE patient_id = $1`,
		d.PatientID, d.RecordNumber, d.Phone, d.Allergy, d.metaOrEmpty())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
