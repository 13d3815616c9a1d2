package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderPlacedEvent is the message published for each accepted order, keyed
// by order ID so downstream consumers (fulfilment, notifications) partition
// per order.
type OrderPlacedEvent struct {
	OrderID       string      `json:"order_id"`
	UserID        int         `json:"user_id"`
	CustomerEmail string      `json:"customer_email"`
	Lines         []OrderLine `json:"lines"`
	Total         float64     `json:"total"`
	PlacedAt      time.Time   `json:"placed_at"`
}

// EventPublisher writes order events to Kafka.
type EventPublisher struct {
	writer *kafka.Writer
}

func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &EventPublisher{writer: writer}
}

func (p *EventPublisher) PublishOrderPlaced(ctx context.Context, order Order) error {
	event := OrderPlacedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		CustomerEmail: order.CustomerEmail,
		Lines:         order.Lines,
		Total:         order.Total,
		PlacedAt:      order.PlacedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: data,
		Time:  order.PlacedAt,
	})
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
