package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration represents a single database migration loaded from a SQL file.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt time.Time
}

// MigrationStatus represents the status of a migration (applied or pending).
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// migrationTarget is the dialect-specific half of the Migrator.
type migrationTarget interface {
	ensureTable(ctx context.Context) error
	appliedAt(ctx context.Context) (map[int]time.Time, error)
	apply(ctx context.Context, mig Migration) error
	exec(ctx context.Context, script string) error
}

// Migrator reads NNN_name.sql files from a filesystem and applies the
// pending ones in version order, recording each in _migrations.
type Migrator struct {
	target migrationTarget
	fsys   fs.FS
}

// NewPgMigrator creates a Migrator applying migrations from fsys through pool.
func NewPgMigrator(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{target: &pgTarget{pool: pool}, fsys: fsys}
}

// NewSQLiteMigrator creates a Migrator applying migrations from fsys to sqldb.
func NewSQLiteMigrator(sqldb *sql.DB, fsys fs.FS) *Migrator {
	return &Migrator{target: &sqliteTarget{db: sqldb}, fsys: fsys}
}

// LoadMigrations reads all .sql files from the migrations filesystem, parses the
// version number from the filename prefix (e.g., "001_core.sql" -> version 1),
// and returns them sorted by version. Files that do not start with a numeric
// prefix are silently skipped.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Up applies all pending migrations in version order. Each migration runs in
// its own transaction. Returns the count of applied migrations.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	return m.UpTo(ctx, 0)
}

// UpTo applies pending migrations up to (and including) targetVersion.
// If targetVersion is 0, all pending migrations are applied.
func (m *Migrator) UpTo(ctx context.Context, targetVersion int) (int, error) {
	if err := m.target.ensureTable(ctx); err != nil {
		return 0, err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	applied, err := m.target.appliedAt(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if targetVersion > 0 && mig.Version > targetVersion {
			break
		}
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		if err := m.target.apply(ctx, mig); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}

	return count, nil
}

// ExecScript runs a user-supplied DDL script as-is, outside version
// tracking. Used for schema overrides on store initialization.
func (m *Migrator) ExecScript(ctx context.Context, script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("schema script is empty")
	}
	if err := m.target.exec(ctx, script); err != nil {
		return fmt.Errorf("execute schema script: %w", err)
	}
	return nil
}

// Status returns the status of all known migrations (both applied and pending).
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.target.ensureTable(ctx); err != nil {
		return nil, err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}

	appliedMap, err := m.target.appliedAt(ctx)
	if err != nil {
		return nil, err
	}

	var statuses []MigrationStatus
	for _, mig := range migrations {
		status := MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
		}
		if at, ok := appliedMap[mig.Version]; ok {
			status.Applied = true
			appliedAt := at
			status.AppliedAt = &appliedAt
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

type pgTarget struct {
	pool *pgxpool.Pool
}

func (t *pgTarget) ensureTable(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
    version INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("create _migrations table: %w", err)
	}
	return nil
}

func (t *pgTarget) appliedAt(ctx context.Context) (map[int]time.Time, error) {
	rows, err := t.pool.Query(ctx, `SELECT version, applied_at FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return applied, nil
}

func (t *pgTarget) apply(ctx context.Context, mig Migration) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO _migrations (version, name) VALUES ($1, $2)",
		mig.Version, mig.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit(ctx)
}

func (t *pgTarget) exec(ctx context.Context, script string) error {
	_, err := t.pool.Exec(ctx, script)
	return err
}

type sqliteTarget struct {
	db *sql.DB
}

func (t *sqliteTarget) ensureTable(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create _migrations table: %w", err)
	}
	return nil
}

func (t *sqliteTarget) appliedAt(ctx context.Context) (map[int]time.Time, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT version, applied_at FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at string
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = ParseTime(at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return applied, nil
}

func (t *sqliteTarget) apply(ctx context.Context, mig Migration) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO _migrations (version, name, applied_at) VALUES (?, ?, ?)",
		mig.Version, mig.Name, FormatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

func (t *sqliteTarget) exec(ctx context.Context, script string) error {
	_, err := t.db.ExecContext(ctx, script)
	return err
}
