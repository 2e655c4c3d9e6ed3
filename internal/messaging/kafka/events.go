// Package kafka публикует события магазина в Kafka через sarama.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "shop.order.events"
	TopicDeadLetterQueue = "shop.dlq"
)

// Заголовки сообщений.
const (
	HeaderEventType   = "x-event-type"
	HeaderAggregateID = "x-aggregate-id"
	HeaderOutboxID    = "x-outbox-id"
)

// Envelope — формат сообщения в топике событий заказов.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		quoted, _ := json.Marshal(string(msg.Payload))
		payload = quoted
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

// DecodeOrderPaid разбирает сообщение order.paid из топика.
func DecodeOrderPaid(value []byte) (domain.OrderPaidEvent, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return domain.OrderPaidEvent{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if envelope.EventType != domain.EventOrderPaid {
		return domain.OrderPaidEvent{}, fmt.Errorf("unexpected event type %q", envelope.EventType)
	}

	var event domain.OrderPaidEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return domain.OrderPaidEvent{}, fmt.Errorf("unmarshal order.paid payload: %w", err)
	}
	return event, nil
}
