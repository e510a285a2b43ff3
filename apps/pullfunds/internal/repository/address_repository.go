package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/events"
	"pullfunds/apps/pullfunds/internal/model"
)

var ErrDatabaseUnavailable = errors.New("database connection not initialized")

const insertAddressQuery = `
	INSERT INTO stored_addresses (address)
	VALUES ($1)
	RETURNING id, address, timestamp
`

type AddressRepository struct {
	db           *sql.DB
	logger       *zap.Logger
	recordEvents bool
}

// NewAddressRepository creates an AddressRepository. With recordEvents set,
// every stored address also writes an address_stored outbox event in the
// same transaction.
func NewAddressRepository(db *sql.DB, logger *zap.Logger, recordEvents bool) *AddressRepository {
	return &AddressRepository{db: db, logger: logger, recordEvents: recordEvents}
}

// StoreAddress inserts a new row; duplicates are allowed
func (r *AddressRepository) StoreAddress(ctx context.Context, address string) (*model.StoredAddress, error) {
	if r.db == nil {
		return nil, ErrDatabaseUnavailable
	}

	if !r.recordEvents {
		stored, err := scanStoredAddress(r.db.QueryRowContext(ctx, insertAddressQuery, address))
		if err != nil {
			return nil, err
		}
		r.logger.Info("Stored address", zap.String("address", stored.Address), zap.Int64("id", stored.ID))
		return stored, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	stored, err := scanStoredAddress(tx.QueryRowContext(ctx, insertAddressQuery, address))
	if err != nil {
		return nil, err
	}

	event, err := model.NewOutboxEvent(events.AddressStoredEvent, stored.Address, events.AddressStored{
		Address:   stored.Address,
		Timestamp: stored.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	if err := insertOutboxEvent(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stored address: %w", err)
	}

	r.logger.Info("Stored address",
		zap.String("address", stored.Address),
		zap.Int64("id", stored.ID),
		zap.String("event_id", event.EventID))
	return stored, nil
}

// PingContext reports whether the database is reachable
func (r *AddressRepository) PingContext(ctx context.Context) error {
	if r.db == nil {
		return ErrDatabaseUnavailable
	}
	return r.db.PingContext(ctx)
}

func scanStoredAddress(row *sql.Row) (*model.StoredAddress, error) {
	var stored model.StoredAddress
	if err := row.Scan(&stored.ID, &stored.Address, &stored.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to store address: %w", err)
	}
	return &stored, nil
}
