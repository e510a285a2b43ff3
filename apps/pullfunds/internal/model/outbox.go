package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventStatusUnsent     = "unsent"
	EventStatusProcessing = "processing"
	EventStatusSent       = "sent"
)

type OutboxEvent struct {
	EventID   string          `db:"event_id"`
	EventType string          `db:"event_type"`
	Status    string          `db:"status"`
	EventKey  string          `db:"event_key"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
}

// NewOutboxEvent builds an unsent event with a fresh id. key selects the
// Kafka partition, so events about the same address stay ordered.
func NewOutboxEvent(eventType, key string, payload any) (OutboxEvent, error) {
	blob, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return OutboxEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Status:    EventStatusUnsent,
		EventKey:  key,
		Payload:   blob,
		CreatedAt: time.Now().UTC(),
	}, nil
}
