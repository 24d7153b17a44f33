package consultation

import (
	"context"
	"fmt"
	"strings"

	"github.com/consultorio/clinicdb/internal/platform/textnorm"
)

type Service struct {
	repo ConsultationRepository
}

func NewService(repo ConsultationRepository) *Service {
	return &Service{repo: repo}
}

// Record inserts c unless a consultation with the same fingerprint already
// exists. Reports whether c was inserted.
func (s *Service) Record(ctx context.Context, c *Consultation) (bool, error) {
	if c.PatientID == 0 {
		return false, fmt.Errorf("patient id is required")
	}
	if c.Fingerprint == "" {
		return false, fmt.Errorf("fingerprint is required")
	}
	exists, err := s.repo.ExistsByFingerprint(ctx, c.Fingerprint)
	if err != nil {
		return false, fmt.Errorf("check fingerprint %s: %w", c.Fingerprint, err)
	}
	if exists {
		return false, nil
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return false, fmt.Errorf("insert consultation %s: %w", c.Fingerprint, err)
	}
	return true, nil
}

// EnsureColumns adds a nullable text column for every name the
// consultations table lacks. Core and reserved names are skipped, as are
// duplicates. Returns the names actually added.
func (s *Service) EnsureColumns(ctx context.Context, names []string) ([]string, error) {
	existing, err := s.repo.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("read consultation columns: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, col := range existing {
		have[strings.ToLower(col)] = true
	}

	var added []string
	for _, name := range names {
		key := strings.ToLower(name)
		if name == "" || have[key] || IsCore(name) || IsReserved(name) {
			continue
		}
		if err := s.repo.AddColumn(ctx, name); err != nil {
			return added, fmt.Errorf("add consultation column %q: %w", name, err)
		}
		have[key] = true
		added = append(added, name)
	}
	return added, nil
}

// Evolvable reports which of names can be stored in their own consultation
// column: not core, not reserved and non-empty.
func Evolvable(names []string) []string {
	var out []string
	for _, name := range names {
		if name != "" && !IsCore(name) && !IsReserved(name) {
			out = append(out, name)
		}
	}
	return out
}

func (s *Service) GetConsultation(ctx context.Context, id int64) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListRange returns consultations dated within [from, to]. Empty bounds are
// open. Bounds are ISO dates.
func (s *Service) ListRange(ctx context.Context, from, to string) ([]*Consultation, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.repo.ListByDateRange(ctx, from, to)
}

// DailyCounts returns the number of consultations per date within [from, to].
func (s *Service) DailyCounts(ctx context.Context, from, to string) ([]DailyCount, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.repo.CountByDay(ctx, from, to)
}

func checkRange(from, to string) error {
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := textnorm.ParseISO(bound); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidRange, bound)
		}
	}
	if from != "" && to != "" && from > to {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return nil
}
