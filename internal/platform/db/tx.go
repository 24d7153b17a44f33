package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	DBTxKey  contextKey = "db_tx"
	SQLTxKey contextKey = "sql_tx"
)

// TxFromContext returns the PostgreSQL transaction started by RunInTx, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// SQLTxFromContext returns the SQLite transaction started by RunInSQLTx, if any.
func SQLTxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(SQLTxKey).(*sql.Tx)
	return tx
}

// RunInTx runs fn with a PostgreSQL transaction carried in its context.
// Repositories pick it up through TxFromContext. The transaction commits
// when fn returns nil and rolls back otherwise. Nested calls reuse the
// outer transaction.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	if pool == nil {
		return fmt.Errorf("no database connection")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunInSQLTx is RunInTx for database/sql stores.
func RunInSQLTx(ctx context.Context, sqldb *sql.DB, fn func(ctx context.Context) error) error {
	if SQLTxFromContext(ctx) != nil {
		return fn(ctx)
	}
	if sqldb == nil {
		return fmt.Errorf("no database connection")
	}

	tx, err := sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, SQLTxKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
