package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// OpenSQLite opens (creating if needed) the SQLite store file at path with
// foreign keys enforced. A single connection is kept: the store has one
// writer and transactions must not race a second connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("sqlite store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("sqlite store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cleanPath)
	sqldb, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}

	return sqldb, nil
}

// QuoteIdent quotes a SQLite identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqliteTimeLayout is fixed-width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t the way SQLite TEXT timestamp columns store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// ParseTime reads a timestamp written by FormatTime. Unparsable values
// yield the zero time.
func ParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
