package ingestrun

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/clinicdb/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type runRepoPG struct{ pool *pgxpool.Pool }

func NewRunRepoPG(pool *pgxpool.Pool) RunRepository {
	return &runRepoPG{pool: pool}
}

func (r *runRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const runCols = `run_id, mode, source, started_at, finished_at,
	rows_read, patients_created, details_inserted, details_updated,
	consultations_inserted, duplicates_skipped, columns_added`

func (r *runRepoPG) Create(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ingest_runs (`+runCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Mode, run.Source, run.StartedAt, run.FinishedAt,
		run.RowsRead, run.PatientsCreated, run.DetailsInserted, run.DetailsUpdated,
		run.ConsultationsInserted, run.DuplicatesSkipped, run.ColumnsAdded)
	return err
}

func (r *runRepoPG) ListRecent(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+runCols+` FROM ingest_runs
		ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Mode, &run.Source, &run.StartedAt, &run.FinishedAt,
			&run.RowsRead, &run.PatientsCreated, &run.DetailsInserted, &run.DetailsUpdated,
			&run.ConsultationsInserted, &run.DuplicatesSkipped, &run.ColumnsAdded); err != nil {
			return nil, err
		}
		items = append(items, &run)
	}
	return items, rows.Err()
}
