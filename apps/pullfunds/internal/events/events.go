package events

import (
	"encoding/json"
	"time"
)

const (
	AddressStoredEvent = "address_stored"
	FundsPulledEvent   = "funds_pulled"
)

// Envelope is the Kafka message value for every relayed outbox event
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Timestamp time.Time       `json:"timestamp"`
}

type AddressStored struct {
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}

type FundsPulled struct {
	TxHash    string `json:"tx_hash"`
	Sender    string `json:"sender"`
	Token     string `json:"token"`
	User      string `json:"user"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}
