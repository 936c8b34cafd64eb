// Package postgres mirrors the provider directory into a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/embed-provider-sync/internal/export"
)

const defaultTable = "providers"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds the connection and table settings.
type Config struct {
	DSN   string
	Table string
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Exporter replaces the table contents with the snapshot inside a single
// transaction. The expected schema is:
//
//	CREATE TABLE providers (
//		id         TEXT PRIMARY KEY,
//		schemes    TEXT[] NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL
//	);
type Exporter struct {
	pool  txBeginner
	table string
}

// New connects a pool for cfg.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("export.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Exporter{pool: pool, table: table}, nil
}

// NewWithPool builds an Exporter over an existing pool.
func NewWithPool(pool txBeginner, table string) (*Exporter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Exporter{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Name implements export.Exporter.
func (e *Exporter) Name() string { return "postgres" }

// Export deletes rows for ids no longer listed and upserts the rest.
func (e *Exporter) Export(ctx context.Context, snap export.Snapshot) (err error) {
	if snap.Providers == nil {
		return fmt.Errorf("snapshot has no providers")
	}
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ids := snap.Providers.IDs()
	deleteSQL := fmt.Sprintf(`DELETE FROM %s WHERE NOT (id = ANY($1))`, e.table)
	if _, err = tx.Exec(ctx, deleteSQL, ids); err != nil {
		return fmt.Errorf("delete stale providers: %w", err)
	}

	upsertSQL := fmt.Sprintf(`
INSERT INTO %s (id, schemes, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET schemes = EXCLUDED.schemes, updated_at = EXCLUDED.updated_at`, e.table)
	at := snap.At.UTC()
	for _, id := range ids {
		schemes, _ := snap.Providers.Get(id)
		if _, err = tx.Exec(ctx, upsertSQL, id, schemes, at); err != nil {
			return fmt.Errorf("upsert provider %q: %w", id, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close releases the pool.
func (e *Exporter) Close() error {
	if e != nil && e.pool != nil {
		e.pool.Close()
	}
	return nil
}
