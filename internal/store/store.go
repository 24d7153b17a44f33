// Package store opens the configured relational store and exposes the
// domain repositories over it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/clinicdb/internal/config"
	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/ingestrun"
	"github.com/consultorio/clinicdb/internal/domain/patient"
	"github.com/consultorio/clinicdb/internal/platform/db"
)

// Store is an open SQLite file or PostgreSQL pool with its repositories.
type Store struct {
	Driver        string
	Patients      patient.PatientRepository
	Consultations consultation.ConsultationRepository
	Runs          ingestrun.RunRepository

	migrator *db.Migrator
	sqlDB    *sql.DB
	pool     *pgxpool.Pool
}

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	migrations, err := db.Migrations(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sqldb, err := db.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:        config.DriverSQLite,
			Patients:      patient.NewPatientRepoSQLite(sqldb),
			Consultations: consultation.NewConsultationRepoSQLite(sqldb),
			Runs:          ingestrun.NewRunRepoSQLite(sqldb),
			migrator:      db.NewSQLiteMigrator(sqldb, migrations),
			sqlDB:         sqldb,
		}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:        config.DriverPostgres,
			Patients:      patient.NewPatientRepoPG(pool),
			Consultations: consultation.NewConsultationRepoPG(pool),
			Runs:          ingestrun.NewRunRepoPG(pool),
			migrator:      db.NewPgMigrator(pool, migrations),
			pool:          pool,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// RunInTx runs fn in one transaction. Repositories called with the ctx
// passed to fn take part in it.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool != nil {
		return db.RunInTx(ctx, s.pool, fn)
	}
	return db.RunInSQLTx(ctx, s.sqlDB, fn)
}

// Init creates the schema. A non-empty schemaPath names a DDL script that
// runs first; the embedded migrations then fill in whatever it left out.
func (s *Store) Init(ctx context.Context, schemaPath string) error {
	if schemaPath != "" {
		script, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("read schema file: %w", err)
		}
		if err := s.migrator.ExecScript(ctx, string(script)); err != nil {
			return fmt.Errorf("apply %s: %w", schemaPath, err)
		}
	}
	if _, err := s.migrator.Up(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Migrate applies pending embedded migrations to an existing store.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	return s.migrator.Up(ctx)
}

// MigrationStatus lists embedded migrations and whether each is applied.
func (s *Store) MigrationStatus(ctx context.Context) ([]db.MigrationStatus, error) {
	return s.migrator.Status(ctx)
}

// Initialized reports whether the consultations table exists.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	cols, err := s.Consultations.Columns(ctx)
	if err != nil {
		return false, fmt.Errorf("inspect store schema: %w", err)
	}
	return len(cols) > 0, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Stats() *db.PoolStats {
	if s.pool != nil {
		return db.GetPoolStats(s.pool)
	}
	return db.GetSQLStats(s.sqlDB.Stats())
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlDB != nil {
		s.sqlDB.Close()
	}
}
