package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

// -- Mock Repository --

type mockPatientRepo struct {
	patients map[int64]*Patient
	details  map[int64]*Detail
	nextID   int64
	failGet  error
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		patients: make(map[int64]*Patient),
		details:  make(map[int64]*Detail),
	}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	m.nextID++
	p.ID = m.nextID
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByNameKey(_ context.Context, nameKey string) (*Patient, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, p := range m.patients {
		if p.NameKey == nameKey {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) Search(_ context.Context, nameKey string, limit, offset int) ([]*Patient, int, error) {
	var r []*Patient
	for _, p := range m.patients {
		if strings.Contains(p.NameKey, nameKey) {
			r = append(r, p)
		}
	}
	sort.Slice(r, func(i, j int) bool { return r[i].NameKey < r[j].NameKey })
	return r, len(r), nil
}

func (m *mockPatientRepo) GetDetail(_ context.Context, patientID int64) (*Detail, error) {
	d, ok := m.details[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockPatientRepo) CreateDetail(_ context.Context, d *Detail) error {
	m.details[d.PatientID] = d
	return nil
}

func (m *mockPatientRepo) UpdateDetail(_ context.Context, d *Detail) error {
	if _, ok := m.details[d.PatientID]; !ok {
		return ErrNotFound
	}
	m.details[d.PatientID] = d
	return nil
}

func newTestService() *Service {
	return NewService(newMockPatientRepo())
}

// -- Tests --

func TestFindOrCreate_CreatesOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id1, created, err := svc.FindOrCreate(ctx, &Patient{NameKey: "JUAN PEREZ LOPEZ", Sex: "M"})
	if err != nil {
		t.Fatalf("FindOrCreate() error: %v", err)
	}
	if !created {
		t.Error("expected first sighting to create the patient")
	}

	second := &Patient{NameKey: "JUAN PEREZ LOPEZ", Sex: "F"}
	id2, created, err := svc.FindOrCreate(ctx, second)
	if err != nil {
		t.Fatalf("FindOrCreate() error: %v", err)
	}
	if created {
		t.Error("expected existing patient to be reused")
	}
	if id1 != id2 || second.ID != id1 {
		t.Errorf("expected same id, got %d and %d", id1, id2)
	}

	p, _ := svc.GetPatient(ctx, id1)
	if p.Sex != "M" {
		t.Errorf("existing patient was modified: sex %q", p.Sex)
	}
}

func TestFindOrCreate_LookupError(t *testing.T) {
	repo := newMockPatientRepo()
	repo.failGet = errors.New("disk I/O error")
	svc := NewService(repo)

	_, _, err := svc.FindOrCreate(context.Background(), &Patient{NameKey: "ANA RUIZ"})
	if !errors.Is(err, repo.failGet) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
	if len(repo.patients) != 0 {
		t.Error("patient must not be created after a failed lookup")
	}
}

func TestUpsertDetail_OverwritesBlanks(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inserted, err := svc.UpsertDetail(ctx, &Detail{PatientID: 1, Phone: "555-1234", Allergy: "penicilina"})
	if err != nil {
		t.Fatalf("UpsertDetail() error: %v", err)
	}
	if !inserted {
		t.Error("expected first upsert to insert")
	}

	inserted, err = svc.UpsertDetail(ctx, &Detail{PatientID: 1, Phone: "", Allergy: "ninguna"})
	if err != nil {
		t.Fatalf("UpsertDetail() error: %v", err)
	}
	if inserted {
		t.Error("expected second upsert to update")
	}

	d, err := svc.repo.GetDetail(ctx, 1)
	if err != nil {
		t.Fatalf("GetDetail() error: %v", err)
	}
	if d.Phone != "" {
		t.Errorf("expected blank phone to overwrite, got %q", d.Phone)
	}
	if d.Allergy != "ninguna" {
		t.Errorf("expected allergy ninguna, got %q", d.Allergy)
	}
}

func TestUpsertDetail_RequiresPatient(t *testing.T) {
	if _, err := newTestService().UpsertDetail(context.Background(), &Detail{}); err == nil {
		t.Error("expected error without patient id")
	}
}

func TestGetRecord(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id, _, _ := svc.FindOrCreate(ctx, &Patient{NameKey: "ANA RUIZ"})
	rec, err := svc.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord() error: %v", err)
	}
	if rec.Detail != nil {
		t.Error("expected nil detail before upsert")
	}

	svc.UpsertDetail(ctx, &Detail{PatientID: id, RecordNumber: "EXP-7"})
	rec, err = svc.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord() error: %v", err)
	}
	if rec.Detail == nil || rec.Detail.RecordNumber != "EXP-7" {
		t.Errorf("unexpected detail %+v", rec.Detail)
	}

	if _, err := svc.GetRecord(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchPatients_NormalizesQuery(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.FindOrCreate(ctx, &Patient{NameKey: "JOSE PEREZ LOPEZ"})
	svc.FindOrCreate(ctx, &Patient{NameKey: "ANA RUIZ"})

	items, total, err := svc.SearchPatients(ctx, "  josé   pérez", 20, 0)
	if err != nil {
		t.Fatalf("SearchPatients() error: %v", err)
	}
	if total != 1 || items[0].NameKey != "JOSE PEREZ LOPEZ" {
		t.Errorf("unexpected result %d %v", total, items)
	}
}
