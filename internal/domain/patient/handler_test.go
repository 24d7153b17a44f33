package patient

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

func TestGetPatient_Success(t *testing.T) {
	h, e := newTestHandler()
	ctx := context.Background()
	id, _, _ := h.svc.FindOrCreate(ctx, &Patient{NameKey: "ANA RUIZ", GivenNames: "Ana"})
	h.svc.UpsertDetail(ctx, &Detail{PatientID: id, Phone: "555"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["nombre"] != "ANA RUIZ" {
		t.Errorf("nombre = %v, want ANA RUIZ", result["nombre"])
	}
	detail, ok := result["detail"].(map[string]interface{})
	if !ok || detail["telefono"] != "555" {
		t.Errorf("unexpected detail %v", result["detail"])
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	err := h.GetPatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 HTTPError, got %v", err)
	}
}

func TestGetPatient_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := h.GetPatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestListPatients(t *testing.T) {
	h, e := newTestHandler()
	ctx := context.Background()
	h.svc.FindOrCreate(ctx, &Patient{NameKey: "ANA RUIZ"})
	h.svc.FindOrCreate(ctx, &Patient{NameKey: "LUIS RUIZ"})
	h.svc.FindOrCreate(ctx, &Patient{NameKey: "JUAN PEREZ"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?name=ruiz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []Patient `json:"data"`
		Total int       `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 2 || len(body.Data) != 2 {
		t.Errorf("expected 2 patients, got total=%d len=%d", body.Total, len(body.Data))
	}
}
