package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/consultorio/clinicdb/internal/config"
	"github.com/consultorio/clinicdb/internal/store"
)

func TestIsoDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"05/12/2024", "2024-12-05", false},
		{"2024-12-05", "2024-12-05", false},
		{"12-05-2024", "", true},
		{"ayer", "", true},
	}
	for _, tt := range tests {
		got, err := isoDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("isoDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("isoDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", config.DriverSQLite)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCommands_EndToEnd(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	storePath := filepath.Join(dir, "clinic.sqlite3")

	first := writeFile(t, dir, "first.csv",
		"nombres,apellido_paterno,fecha_de_nacimiento,fecha_consulta,diagnostico\n"+
			"Ana,Ruiz,02/02/1995,01/12/2024,Faringitis\n"+
			"Luis,Gómez,03/03/1980,02/12/2024,Gastritis\n")
	second := writeFile(t, dir, "second.csv",
		"nombres,apellido_paterno,fecha_de_nacimiento,fecha_consulta,diagnostico,seguro popular\n"+
			"Ana,Ruiz,02/02/1995,03/12/2024,Control,si\n")

	if _, err := run(t, "update", second, "-d", storePath); err == nil {
		t.Fatal("expected update on an empty store to fail")
	}

	out, err := run(t, "init", first, "-d", storePath)
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "init") {
		t.Errorf("expected run summary, got:\n%s", out)
	}

	out, err = run(t, "update", second, "-d", storePath)
	if err != nil {
		t.Fatalf("update: %v\n%s", err, out)
	}
	if !strings.Contains(out, "seguro_popular") {
		t.Errorf("expected added column in output, got:\n%s", out)
	}

	out, err = run(t, "report", "daily", "--from", "01/12/2024", "--to", "04/12/2024", "-d", storePath)
	if err != nil {
		t.Fatalf("report daily: %v\n%s", err, out)
	}
	for _, want := range []string{"01/12/2024", "04/12/2024", "TOTAL", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in daily report:\n%s", want, out)
		}
	}

	out, err = run(t, "runs", "-d", storePath)
	if err != nil {
		t.Fatalf("runs: %v\n%s", err, out)
	}
	if !strings.Contains(out, "update") || !strings.Contains(out, "first.csv") {
		t.Errorf("expected both runs listed:\n%s", out)
	}

	parquetPath := filepath.Join(dir, "out.parquet")
	out, err = run(t, "export", parquetPath, "-d", storePath, "--from", "2024-12-02")
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 consultations") {
		t.Errorf("unexpected export output %q", out)
	}

	out, err = run(t, "migrate", "status", "-d", storePath)
	if err != nil {
		t.Fatalf("migrate status: %v\n%s", err, out)
	}
	if strings.Contains(out, "pending") {
		t.Errorf("expected all migrations applied:\n%s", out)
	}
}

func TestCommands_Search(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	csv := writeFile(t, dir, "log.csv",
		"nombre,fecha_de_nacimiento,fecha_consulta,subjetivo,alergia\n"+
			"Ana Ruiz,02/02/1995,01/12/2024,tos seca,penicilina\n"+
			"Ana Ruiz,02/02/1995,05/12/2024,fiebre,penicilina\n"+
			"Luis Gómez,03/03/1980,02/12/2024,dolor,\n")

	out, err := run(t, "search", "name", "ana", "ruiz", "--csv", csv)
	if err != nil {
		t.Fatalf("search name: %v", err)
	}
	if strings.Count(out, "\"Ana Ruiz\"") != 2 {
		t.Errorf("expected two matches:\n%s", out)
	}

	result := filepath.Join(dir, "coincidencias.json")
	out, err = run(t, "search", "text", "fiebre", "--csv", csv, "-o", result)
	if err != nil {
		t.Fatalf("search text: %v", err)
	}
	saved, err := os.ReadFile(result)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if string(saved) != out || !strings.Contains(out, "2024-12-05") {
		t.Errorf("unexpected keyword result:\n%s", out)
	}

	out, err = run(t, "search", "last", "--name", "ana ruiz", "--dob", "02/02/1995", "--csv", csv)
	if err != nil {
		t.Fatalf("search last: %v", err)
	}
	if !strings.Contains(out, "2024-12-05") {
		t.Errorf("expected latest visit, got:\n%s", out)
	}

	if _, err := run(t, "search", "last", "--name", "ana", "--dob", "01/01/2000", "--csv", csv); err == nil {
		t.Error("expected error when no birth date matches")
	}
}

func TestServer_Routes(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, &config.Config{
		StoreDriver: config.DriverSQLite,
		StorePath:   filepath.Join(t.TempDir(), "clinic.sqlite3"),
	})
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	defer st.Close()
	if err := st.Init(ctx, ""); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	e := newServer(st, zerolog.Nop())

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/patients?name=ana", http.StatusOK},
		{"/api/v1/patients/99", http.StatusNotFound},
		{"/api/v1/reports/daily?from=2024-12-09&to=2024-12-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d: %s", tt.path, rec.Code, tt.want, rec.Body.String())
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("GET %s: missing X-Request-ID", tt.path)
		}
	}
}
