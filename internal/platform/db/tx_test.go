package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestRunInSQLTx(t *testing.T) {
	ctx := context.Background()
	sqldb, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "tx.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer sqldb.Close()

	if _, err := sqldb.ExecContext(ctx, `CREATE TABLE items (name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	insert := func(ctx context.Context, name string) error {
		tx := SQLTxFromContext(ctx)
		if tx == nil {
			return errors.New("no transaction in context")
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES (?)`, name)
		return err
	}

	if err := RunInSQLTx(ctx, sqldb, func(ctx context.Context) error {
		if err := insert(ctx, "kept"); err != nil {
			return err
		}
		// nested call joins the outer transaction
		return RunInSQLTx(ctx, sqldb, func(ctx context.Context) error {
			return insert(ctx, "nested")
		})
	}); err != nil {
		t.Fatalf("RunInSQLTx() error: %v", err)
	}

	boom := errors.New("boom")
	err = RunInSQLTx(ctx, sqldb, func(ctx context.Context) error {
		if err := insert(ctx, "discarded"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := sqldb.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 committed rows, got %d", n)
	}
}

func TestRunInSQLTx_NilDB(t *testing.T) {
	err := RunInSQLTx(context.Background(), nil, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("expected error without a database")
	}
}

func TestRunInTx_NilPool(t *testing.T) {
	err := RunInTx(context.Background(), nil, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("expected error without a pool")
	}
}

func TestTxFromContext_Empty(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil pgx transaction")
	}
	if SQLTxFromContext(context.Background()) != nil {
		t.Error("expected nil sql transaction")
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := map[string]string{
		"peso":          `"peso"`,
		`odd"name`:      `"odd""name"`,
		"nueva columna": `"nueva columna"`,
	}
	for in, want := range tests {
		if got := QuoteIdent(in); got != want {
			t.Errorf("QuoteIdent(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestOpenSQLite_Directory(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error when path is a directory")
	}
}

func TestFormatParseTime(t *testing.T) {
	now := time.Date(2024, 12, 5, 10, 30, 0, 123, time.FixedZone("CST", -6*3600))
	got := ParseTime(FormatTime(now))
	if !got.Equal(now) {
		t.Errorf("round trip = %v, want %v", got, now)
	}
	if !ParseTime("not a time").IsZero() {
		t.Error("expected zero time for garbage")
	}
}
