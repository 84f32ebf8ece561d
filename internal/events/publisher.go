package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

type Type string

const (
	OrderPlaced   Type = "order.placed"
	OrderDeleted  Type = "order.deleted"
	OrdersCleared Type = "orders.cleared"
	ProductPurged Type = "product.purged"
)

// Event is the payload written to the order events topic.
type Event struct {
	Type       Type          `json:"type"`
	OrderID    string        `json:"order_id,omitempty"`
	ProductID  string        `json:"product_id,omitempty"`
	OrderIDs   []string      `json:"order_ids,omitempty"`
	Order      *domain.Order `json:"order,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func (e Event) key() string {
	switch {
	case e.OrderID != "":
		return e.OrderID
	case e.ProductID != "":
		return e.ProductID
	default:
		return string(e.Type)
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events synchronously; Publish returns once the
// broker acknowledged the message or the context expired.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, writeTimeout time.Duration, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.key()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
