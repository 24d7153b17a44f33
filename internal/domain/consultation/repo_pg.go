package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (r *consultationRepoPG) scanRow(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var data string
	if err := row.Scan(scanDest(&c, &data, &c.CreatedAt)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Data = []byte(data)
	return &c, nil
}

func (r *consultationRepoPG) scanAll(rows pgx.Rows) ([]*Consultation, error) {
	defer rows.Close()
	var items []*Consultation
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	cols, vals := insertColumns(c, pgIdent)
	ph := make([]string, len(cols))
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO consultations (%s) VALUES (%s) RETURNING consultation_id, created_at`,
		strings.Join(cols, ", "), strings.Join(ph, ", "))
	return r.conn(ctx).QueryRow(ctx, query, vals...).Scan(&c.ID, &c.CreatedAt)
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id int64) (*Consultation, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+selectCols+` FROM consultations WHERE consultation_id = $1`, id))
}

func (r *consultationRepoPG) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM consultations WHERE row_hash = $1)`, fingerprint).Scan(&exists)
	return exists, err
}

func (r *consultationRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+selectCols+` FROM consultations
		WHERE patient_id = $1
		ORDER BY fecha_consulta DESC, consultation_id DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.scanAll(rows)
	return items, total, err
}

func (r *consultationRepoPG) ListByDateRange(ctx context.Context, from, to string) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+selectCols+` FROM consultations
		WHERE ($1::text = '' OR fecha_consulta >= $1::text) AND ($2::text = '' OR fecha_consulta <= $2::text)
		ORDER BY fecha_consulta, consultation_id`, from, to)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *consultationRepoPG) CountByDay(ctx context.Context, from, to string) ([]DailyCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT fecha_consulta, COUNT(*) FROM consultations
		WHERE fecha_consulta <> ''
			AND ($1::text = '' OR fecha_consulta >= $1::text) AND ($2::text = '' OR fecha_consulta <= $2::text)
		GROUP BY fecha_consulta ORDER BY fecha_consulta`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

func (r *consultationRepoPG) Columns(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'consultations'
		ORDER BY ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (r *consultationRepoPG) AddColumn(ctx context.Context, name string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`ALTER TABLE consultations ADD COLUMN IF NOT EXISTS `+pgIdent(name)+` TEXT`)
	return err
}
