package consultation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func TestListByPatient(t *testing.T) {
	h, e := newTestHandler()
	ctx := context.Background()
	h.svc.Record(ctx, &Consultation{PatientID: 1, Fingerprint: "a", Date: "2024-12-05"})
	h.svc.Record(ctx, &Consultation{PatientID: 2, Fingerprint: "b", Date: "2024-12-05"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/1/consultations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data  []map[string]interface{} `json:"data"`
		Total int                      `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 1 || body.Data[0]["row_hash"] != "a" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestGetConsultation_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("9")
	err := h.GetConsultation(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 HTTPError, got %v", err)
	}
}

func TestDailyReport(t *testing.T) {
	h, e := newTestHandler()
	ctx := context.Background()
	h.svc.Record(ctx, &Consultation{PatientID: 1, Fingerprint: "a", Date: "2024-12-05"})
	h.svc.Record(ctx, &Consultation{PatientID: 1, Fingerprint: "b", Date: "2024-12-05"})
	h.svc.Record(ctx, &Consultation{PatientID: 1, Fingerprint: "c", Date: "2024-12-07"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily?from=2024-12-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.DailyReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Days  []DailyCount `json:"days"`
		Total int          `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 3 || len(body.Days) != 2 {
		t.Errorf("unexpected report %+v", body)
	}
}

func TestDailyReport_BadRange(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily?from=2024-12-31&to=2024-01-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h.DailyReport(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}
