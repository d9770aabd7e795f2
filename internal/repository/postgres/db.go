package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jwalitptl/surveillance-api/internal/config"
)

func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	id           UUID PRIMARY KEY,
	disease      TEXT NOT NULL,
	location     TEXT NOT NULL,
	date         DATE NOT NULL,
	age_group    TEXT NOT NULL DEFAULT '',
	gender       TEXT NOT NULL DEFAULT '',
	symptoms     TEXT NOT NULL DEFAULT '',
	patient_code TEXT,
	doctor_name  TEXT NOT NULL DEFAULT '',
	clinic_name  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_cases_date ON cases (date);

CREATE TABLE IF NOT EXISTS patients (
	id    UUID PRIMARY KEY,
	name  TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         UUID PRIMARY KEY,
	action     TEXT NOT NULL,
	actor      TEXT NOT NULL DEFAULT '',
	details    JSONB,
	ip_address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables the service reads and writes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
