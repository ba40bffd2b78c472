package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=pnl sslmode=disable"
func NewDB(ctx context.Context, connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Schema creates the tables used by the repositories
const Schema = `
CREATE TABLE IF NOT EXISTS offers (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	poll_time  BIGINT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pricelist_history (
	id          UUID PRIMARY KEY,
	sku         TEXT NOT NULL,
	buy_keys    NUMERIC,
	buy_metal   NUMERIC,
	buy_scrap   NUMERIC,
	sell_keys   NUMERIC,
	sell_metal  NUMERIC,
	sell_scrap  NUMERIC,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS pricelist_history_sku_time ON pricelist_history (sku, recorded_at DESC);
`

// Migrate applies Schema
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
