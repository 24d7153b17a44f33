package ingestrun

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/consultorio/clinicdb/internal/platform/db"
)

type sqlQueryable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type runRepoSQLite struct{ db *sql.DB }

func NewRunRepoSQLite(sqldb *sql.DB) RunRepository {
	return &runRepoSQLite{db: sqldb}
}

func (r *runRepoSQLite) conn(ctx context.Context) sqlQueryable {
	if tx := db.SQLTxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

func (r *runRepoSQLite) Create(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO ingest_runs (run_id, mode, source, started_at, finished_at,
			rows_read, patients_created, details_inserted, details_updated,
			consultations_inserted, duplicates_skipped, columns_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Mode, run.Source, db.FormatTime(run.StartedAt), db.FormatTime(run.FinishedAt),
		run.RowsRead, run.PatientsCreated, run.DetailsInserted, run.DetailsUpdated,
		run.ConsultationsInserted, run.DuplicatesSkipped, run.ColumnsAdded)
	return err
}

func (r *runRepoSQLite) ListRecent(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT `+runCols+` FROM ingest_runs
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Run
	for rows.Next() {
		var run Run
		var id, started, finished string
		if err := rows.Scan(&id, &run.Mode, &run.Source, &started, &finished,
			&run.RowsRead, &run.PatientsCreated, &run.DetailsInserted, &run.DetailsUpdated,
			&run.ConsultationsInserted, &run.DuplicatesSkipped, &run.ColumnsAdded); err != nil {
			return nil, err
		}
		run.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		run.StartedAt = db.ParseTime(started)
		run.FinishedAt = db.ParseTime(finished)
		items = append(items, &run)
	}
	return items, rows.Err()
}
