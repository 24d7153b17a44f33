package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeChecker struct {
	pingErr error
}

func (f *fakeChecker) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeChecker) Stats() *PoolStats {
	return &PoolStats{Driver: "sqlite", TotalConns: 1, MaxConns: 1}
}

func TestGetSQLStats(t *testing.T) {
	stats := GetSQLStats(sql.DBStats{
		MaxOpenConnections: 1,
		OpenConnections:    1,
		InUse:              0,
		Idle:               1,
		WaitCount:          3,
		WaitDuration:       1500 * time.Millisecond,
	})

	if stats.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %q", stats.Driver)
	}
	if stats.TotalConns != 1 || stats.IdleConns != 1 || stats.AcquiredConns != 0 {
		t.Errorf("unexpected connection counts %+v", stats)
	}
	if stats.MaxConns != 1 {
		t.Errorf("expected MaxConns 1, got %d", stats.MaxConns)
	}
	if stats.AcquireCount != 3 {
		t.Errorf("expected AcquireCount 3, got %d", stats.AcquireCount)
	}
	if stats.AcquireDuration != "1.5s" {
		t.Errorf("expected AcquireDuration '1.5s', got %q", stats.AcquireDuration)
	}
	if !stats.Healthy {
		t.Error("expected Healthy with an open connection")
	}
}

func TestGetSQLStats_NoConnections(t *testing.T) {
	stats := GetSQLStats(sql.DBStats{MaxOpenConnections: 1})
	if stats.Healthy {
		t.Error("expected Healthy to be false when no connection is open")
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"unhealthy", errors.New("database is locked"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := HealthHandler(&fakeChecker{pingErr: tt.pingErr})(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}

			var body struct {
				Status string    `json:"status"`
				Error  string    `json:"error"`
				Pool   PoolStats `json:"pool"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, body.Status)
			}
			if tt.pingErr != nil && body.Error != tt.pingErr.Error() {
				t.Errorf("expected error %q, got %q", tt.pingErr.Error(), body.Error)
			}
			if body.Pool.Healthy != (tt.pingErr == nil) {
				t.Errorf("unexpected pool health %v", body.Pool.Healthy)
			}
		})
	}
}
