package ingestrun

import "context"

type RunRepository interface {
	Create(ctx context.Context, r *Run) error
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}
