package patient

import "context"

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByNameKey(ctx context.Context, nameKey string) (*Patient, error)
	Search(ctx context.Context, nameKey string, limit, offset int) ([]*Patient, int, error)

	// Details
	GetDetail(ctx context.Context, patientID int64) (*Detail, error)
	CreateDetail(ctx context.Context, d *Detail) error
	UpdateDetail(ctx context.Context, d *Detail) error
}
