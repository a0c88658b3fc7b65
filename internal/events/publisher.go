// Package events publishes order-paid events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/snuzng/storefront/internal/domain"
)

const EventTypeOrderPaid = "order.paid"

// OrderPaid is the event payload. It mirrors the webhook's view of the charge.
type OrderPaid struct {
	Reference     string            `json:"reference"`
	CustomerEmail string            `json:"customer_email"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Items         []domain.PaidItem `json:"items"`
	Billing       json.RawMessage   `json:"billing"`
	PaidAt        time.Time         `json:"paid_at"`
}

func NewOrderPaid(order domain.PaidOrder, at time.Time) OrderPaid {
	billing := order.Billing
	if len(billing) == 0 {
		billing = json.RawMessage(`{}`)
	}
	items := order.Items
	if items == nil {
		items = []domain.PaidItem{}
	}
	return OrderPaid{
		Reference:     order.Reference,
		CustomerEmail: order.CustomerEmail,
		Amount:        order.Amount,
		Currency:      domain.Currency,
		Items:         items,
		Billing:       billing,
		PaidAt:        at.UTC(),
	}
}

type Publisher interface {
	PublishOrderPaid(ctx context.Context, event OrderPaid) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderPaid(ctx context.Context, event OrderPaid) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order paid event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Reference), // reference keeps one order on one partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPaid)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order paid %s: %w", event.Reference, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPaid(context.Context, OrderPaid) error { return nil }

func (NopPublisher) Close() error { return nil }
