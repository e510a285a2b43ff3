package event_publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/events"
	"pullfunds/apps/pullfunds/internal/model"
)

const (
	publishInterval = 3 * time.Second
	batchSize       = 100
)

type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Close()
}

type outboxStore interface {
	GetUnsentEventsForProcessing(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkEventAsSent(ctx context.Context, eventID string) error
	MarkEventAsFailed(ctx context.Context, eventID string) error
}

type EventPublisher struct {
	logger        *zap.Logger
	kafkaProducer producer
	kafkaTopic    string
	outbox        outboxStore
	mu            sync.Mutex // one publishing pass at a time per instance
}

func NewEventPublisher(kafkaBroker, kafkaTopic string, logger *zap.Logger, outbox outboxStore) (*EventPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newEventPublisher(p, kafkaTopic, logger, outbox), nil
}

func newEventPublisher(p producer, kafkaTopic string, logger *zap.Logger, outbox outboxStore) *EventPublisher {
	return &EventPublisher{
		logger:        logger,
		kafkaProducer: p,
		kafkaTopic:    kafkaTopic,
		outbox:        outbox,
	}
}

// StartPublishing relays outbox events until ctx is cancelled
func (ep *EventPublisher) StartPublishing(ctx context.Context) {
	ticker := time.NewTicker(publishInterval)
	defer ticker.Stop()

	ep.logger.Info("Starting event publisher", zap.String("topic", ep.kafkaTopic))

	for {
		select {
		case <-ctx.Done():
			ep.logger.Info("Stopping event publisher")
			return
		case <-ticker.C:
			if _, err := ep.publishUnsentEvents(ctx); err != nil {
				ep.logger.Error("Error publishing events to Kafka", zap.Error(err))
			}
		}
	}
}

// publishUnsentEvents runs one relay pass and returns how many events were delivered
func (ep *EventPublisher) publishUnsentEvents(ctx context.Context) (int, error) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	outboxEvents, err := ep.outbox.GetUnsentEventsForProcessing(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	successCount := 0
	for _, event := range outboxEvents {
		if err := ep.publishEventToKafka(event); err != nil {
			ep.logger.Error("Failed to publish event to Kafka", zap.String("event_id", event.EventID), zap.String("event_type", event.EventType), zap.Error(err))
			// Back to 'unsent' for the next pass
			if markErr := ep.outbox.MarkEventAsFailed(ctx, event.EventID); markErr != nil {
				ep.logger.Error("Failed to mark event as failed", zap.String("event_id", event.EventID), zap.Error(markErr))
			}
			continue
		}

		if err := ep.outbox.MarkEventAsSent(ctx, event.EventID); err != nil {
			// Delivered but still 'processing'; it will not be picked up again automatically
			ep.logger.Error("Failed to mark event as sent", zap.String("event_id", event.EventID), zap.Error(err))
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		ep.logger.Info("Published events to Kafka", zap.Int("success_count", successCount), zap.Int("attempted", len(outboxEvents)))
	}

	return successCount, nil
}

func (ep *EventPublisher) publishEventToKafka(event model.OutboxEvent) error {
	msgBytes, err := json.Marshal(events.Envelope{
		EventID:   event.EventID,
		EventType: event.EventType,
		Key:       event.EventKey,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)

	err = ep.kafkaProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &ep.kafkaTopic, Partition: kafka.PartitionAny},
		Key:            []byte(event.EventKey),
		Value:          msgBytes,
	}, deliveryChan)
	if err != nil {
		return err
	}

	e := <-deliveryChan
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			return ev.TopicPartition.Error
		}
		return nil
	default:
		return fmt.Errorf("unexpected kafka event type: %T", e)
	}
}

func (ep *EventPublisher) Close() error {
	if ep.kafkaProducer != nil {
		ep.kafkaProducer.Close()
	}
	return nil
}
