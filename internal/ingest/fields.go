package ingest

import (
	"github.com/samber/lo"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/patient"
)

// Classes partitions a batch's columns into the fixed vocabularies and the
// unclassified remainder. Each group keeps input order.
type Classes struct {
	Identity     []string
	Detail       []string
	Consultation []string
	Extra        []string
}

// Classify assigns every column to exactly one group.
func Classify(columns []string) Classes {
	columns = lo.Uniq(columns)
	known := lo.Union(patient.IdentityColumns, patient.DetailColumns, consultation.CoreColumns)
	return Classes{
		Identity:     within(columns, patient.IdentityColumns),
		Detail:       within(columns, patient.DetailColumns),
		Consultation: within(columns, consultation.CoreColumns),
		Extra:        lo.Without(columns, known...),
	}
}

func within(columns, vocabulary []string) []string {
	return lo.Filter(columns, func(col string, _ int) bool {
		return lo.Contains(vocabulary, col)
	})
}
