// Package events moves cart activity out to Kafka and stock adjustments in.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type CartEventType string

const (
	CartItemAdded   CartEventType = "cart.item_added"
	CartItemUpdated CartEventType = "cart.item_updated"
	CartItemRemoved CartEventType = "cart.item_removed"
	CartCleared     CartEventType = "cart.cleared"
)

type CartEvent struct {
	Type       CartEventType `json:"type"`
	SessionID  string        `json:"session_id"`
	ItemID     string        `json:"item_id,omitempty"`
	ProductID  string        `json:"product_id,omitempty"`
	Quantity   int           `json:"quantity"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event CartEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, CartEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher writes asynchronously; delivery failures are logged from
// the writer's completion callback and never reach the request.
func NewKafkaPublisher(topic string, log *slog.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to publish cart events", "count", len(messages), "error", err)
			}
		},
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, now: time.Now}
}

// Publish keys messages by session so one cart's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event CartEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cart event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
