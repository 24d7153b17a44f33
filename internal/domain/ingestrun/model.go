package ingestrun

import (
	"time"

	"github.com/google/uuid"
)

// Run maps to ingest_runs: one row per ingested batch.
type Run struct {
	ID                    uuid.UUID `db:"run_id" json:"id"`
	Mode                  string    `db:"mode" json:"mode"`
	Source                string    `db:"source" json:"source"`
	StartedAt             time.Time `db:"started_at" json:"started_at"`
	FinishedAt            time.Time `db:"finished_at" json:"finished_at"`
	RowsRead              int       `db:"rows_read" json:"rows_read"`
	PatientsCreated       int       `db:"patients_created" json:"patients_created"`
	DetailsInserted       int       `db:"details_inserted" json:"details_inserted"`
	DetailsUpdated        int       `db:"details_updated" json:"details_updated"`
	ConsultationsInserted int       `db:"consultations_inserted" json:"consultations_inserted"`
	DuplicatesSkipped     int       `db:"duplicates_skipped" json:"duplicates_skipped"`
	ColumnsAdded          int       `db:"columns_added" json:"columns_added"`
}

// Duration is the wall time the batch took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
