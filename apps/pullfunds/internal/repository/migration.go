package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// InitMigration creates the service tables if they are missing. There is no
// versioned migration history; every statement is idempotent.
func InitMigration(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stored_addresses (
			id BIGSERIAL PRIMARY KEY,
			address TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stored_addresses_address ON stored_addresses (address)`,
		`CREATE TABLE IF NOT EXISTS event_outbox (
			event_id UUID PRIMARY KEY,
			event_type VARCHAR(32) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unsent',
			event_key TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_outbox_status_created ON event_outbox (status, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
