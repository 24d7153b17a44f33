package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/consultorio/clinicdb/internal/platform/textnorm"
)

type Service struct {
	repo PatientRepository
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo}
}

// FindOrCreate returns the ID of the patient whose name key matches p.NameKey,
// creating p when no such patient exists. Existing patients are never
// modified.
func (s *Service) FindOrCreate(ctx context.Context, p *Patient) (int64, bool, error) {
	existing, err := s.repo.GetByNameKey(ctx, p.NameKey)
	if err == nil {
		p.ID = existing.ID
		return existing.ID, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, false, fmt.Errorf("look up patient %q: %w", p.NameKey, err)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return 0, false, fmt.Errorf("create patient %q: %w", p.NameKey, err)
	}
	return p.ID, true, nil
}

// UpsertDetail writes d as the patient's only detail row. Every field of an
// existing row is overwritten, blank values included. Reports whether a new
// row was inserted.
func (s *Service) UpsertDetail(ctx context.Context, d *Detail) (bool, error) {
	if d.PatientID == 0 {
		return false, fmt.Errorf("patient id is required")
	}
	_, err := s.repo.GetDetail(ctx, d.PatientID)
	switch {
	case err == nil:
		if err := s.repo.UpdateDetail(ctx, d); err != nil {
			return false, fmt.Errorf("update details of patient %d: %w", d.PatientID, err)
		}
		return false, nil
	case errors.Is(err, ErrNotFound):
		if err := s.repo.CreateDetail(ctx, d); err != nil {
			return false, fmt.Errorf("create details of patient %d: %w", d.PatientID, err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("look up details of patient %d: %w", d.PatientID, err)
	}
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// GetRecord returns the patient with its detail row. A patient without
// details yields a Record with a nil Detail.
func (s *Service) GetRecord(ctx context.Context, id int64) (*Record, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &Record{Patient: p, Detail: d}, nil
}

// SearchPatients matches name against the canonical name key, so casing,
// accents and spacing in the query do not matter.
func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, textnorm.NameKey(name, "", ""), limit, offset)
}
