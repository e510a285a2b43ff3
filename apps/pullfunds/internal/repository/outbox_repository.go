package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOutboxRepository(db *sql.DB, logger *zap.Logger) *OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

func (r *OutboxRepository) StoreEvent(ctx context.Context, event model.OutboxEvent) error {
	if r.db == nil {
		return ErrDatabaseUnavailable
	}

	if err := insertOutboxEvent(ctx, r.db, event); err != nil {
		return err
	}

	r.logger.Info("Stored event",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.String("event_key", event.EventKey))
	return nil
}

func insertOutboxEvent(ctx context.Context, exec execer, event model.OutboxEvent) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO event_outbox (event_id, event_type, status, event_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.EventID, event.EventType, event.Status, event.EventKey, []byte(event.Payload), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store outbox event: %w", err)
	}
	return nil
}

// GetUnsentEventsForProcessing claims up to limit unsent events by moving
// them to 'processing'. Concurrent publishers never claim the same row.
func (r *OutboxRepository) GetUnsentEventsForProcessing(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	rows, err := tx.QueryContext(ctx, `
		SELECT event_id, event_type, status, event_key, payload, created_at
		FROM event_outbox
		WHERE status = 'unsent'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outboxEvents []model.OutboxEvent
	for rows.Next() {
		var event model.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.EventType, &event.Status, &event.EventKey, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		outboxEvents = append(outboxEvents, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range outboxEvents {
		_, err = tx.ExecContext(ctx, `
			UPDATE event_outbox
			SET status = 'processing'
			WHERE event_id = $1 AND status = 'unsent'
		`, outboxEvents[i].EventID)
		if err != nil {
			return nil, err
		}
		outboxEvents[i].Status = model.EventStatusProcessing
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return outboxEvents, nil
}

func (r *OutboxRepository) MarkEventAsSent(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE event_outbox
		SET status = 'sent'
		WHERE event_id = $1
	`, eventID)
	return err
}

// MarkEventAsFailed returns a claimed event to 'unsent' so the next cycle retries it
func (r *OutboxRepository) MarkEventAsFailed(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE event_outbox
		SET status = 'unsent'
		WHERE event_id = $1 AND status = 'processing'
	`, eventID)
	return err
}
