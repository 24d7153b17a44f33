package consultation

import (
	"context"
	"sort"
	"strings"
)

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id int64) (*Consultation, error)
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error)
	ListByDateRange(ctx context.Context, from, to string) ([]*Consultation, error)
	CountByDay(ctx context.Context, from, to string) ([]DailyCount, error)

	// Schema
	Columns(ctx context.Context) ([]string, error)
	AddColumn(ctx context.Context, name string) error
}

var selectCols = func() string {
	cols := make([]string, 0, len(CoreColumns)+5)
	cols = append(cols, "consultation_id", "patient_id")
	for _, col := range CoreColumns {
		cols = append(cols, "COALESCE("+col+", '')")
	}
	cols = append(cols, "row_hash", "COALESCE(data, '{}')", "created_at")
	return strings.Join(cols, ", ")
}()

// insertColumns lists the columns and values written for c: patient_id, the
// core columns, row_hash, data, then Extra in sorted column order.
// Extra entries naming core or reserved columns are ignored.
func insertColumns(c *Consultation, quote func(string) string) ([]string, []interface{}) {
	cols := make([]string, 0, len(CoreColumns)+3+len(c.Extra))
	vals := make([]interface{}, 0, cap(cols))

	cols = append(cols, "patient_id")
	vals = append(vals, c.PatientID)
	for i, p := range c.fieldPtrs() {
		cols = append(cols, CoreColumns[i])
		vals = append(vals, *p)
	}
	cols = append(cols, "row_hash", "data")
	vals = append(vals, c.Fingerprint, c.dataOrEmpty())

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		if IsCore(k) || IsReserved(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cols = append(cols, quote(k))
		vals = append(vals, c.Extra[k])
	}
	return cols, vals
}

// scanDest returns scan destinations matching selectCols, with the data and
// created_at columns going to the given targets.
func scanDest(c *Consultation, data *string, createdAt interface{}) []interface{} {
	dest := make([]interface{}, 0, len(CoreColumns)+5)
	dest = append(dest, &c.ID, &c.PatientID)
	for _, p := range c.fieldPtrs() {
		dest = append(dest, p)
	}
	return append(dest, &c.Fingerprint, data, createdAt)
}
