package consultation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/consultorio/clinicdb/internal/platform/db"
)

type sqlQueryable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type consultationRepoSQLite struct{ db *sql.DB }

func NewConsultationRepoSQLite(sqldb *sql.DB) ConsultationRepository {
	return &consultationRepoSQLite{db: sqldb}
}

func (r *consultationRepoSQLite) conn(ctx context.Context) sqlQueryable {
	if tx := db.SQLTxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *consultationRepoSQLite) scanRow(row rowScanner) (*Consultation, error) {
	var c Consultation
	var data, createdAt string
	if err := row.Scan(scanDest(&c, &data, &createdAt)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Data = []byte(data)
	c.CreatedAt = db.ParseTime(createdAt)
	return &c, nil
}

func (r *consultationRepoSQLite) scanAll(rows *sql.Rows) ([]*Consultation, error) {
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

func (r *consultationRepoSQLite) Create(ctx context.Context, c *Consultation) error {
	c.CreatedAt = time.Now().UTC()
	cols, vals := insertColumns(c, db.QuoteIdent)
	cols = append(cols, "created_at")
	vals = append(vals, db.FormatTime(c.CreatedAt))

	query := fmt.Sprintf(`INSERT INTO consultations (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	res, err := r.conn(ctx).ExecContext(ctx, query, vals...)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *consultationRepoSQLite) GetByID(ctx context.Context, id int64) (*Consultation, error) {
	return r.scanRow(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+selectCols+` FROM consultations WHERE consultation_id = ?`, id))
}

func (r *consultationRepoSQLite) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM consultations WHERE row_hash = ?)`, fingerprint).Scan(&exists)
	return exists, err
}

func (r *consultationRepoSQLite) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM consultations WHERE patient_id = ?`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT `+selectCols+` FROM consultations
		WHERE patient_id = ?
		ORDER BY fecha_consulta DESC, consultation_id DESC LIMIT ? OFFSET ?`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.scanAll(rows)
	return items, total, err
}

func (r *consultationRepoSQLite) ListByDateRange(ctx context.Context, from, to string) ([]*Consultation, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT `+selectCols+` FROM consultations
		WHERE (? = '' OR fecha_consulta >= ?) AND (? = '' OR fecha_consulta <= ?)
		ORDER BY fecha_consulta, consultation_id`, from, from, to, to)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *consultationRepoSQLite) CountByDay(ctx context.Context, from, to string) ([]DailyCount, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT fecha_consulta, COUNT(*) FROM consultations
		WHERE fecha_consulta <> ''
			AND (? = '' OR fecha_consulta >= ?) AND (? = '' OR fecha_consulta <= ?)
		GROUP BY fecha_consulta ORDER BY fecha_consulta`, from, from, to, to)
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

func (r *consultationRepoSQLite) Columns(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT name FROM pragma_table_info('consultations')`)
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

func (r *consultationRepoSQLite) AddColumn(ctx context.Context, name string) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`ALTER TABLE consultations ADD COLUMN `+db.QuoteIdent(name)+` TEXT`)
	return err
}
