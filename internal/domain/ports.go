package domain

import (
	"context"
	"time"
)

// PaymentProvider описывает внешний платёжный провайдер с hosted checkout.
type PaymentProvider interface {
	// CreateCheckoutSession создаёт сессию оплаты и возвращает URL для редиректа.
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	// ParseEvent проверяет подпись над сырым телом запроса и разбирает событие.
	// Неверная подпись — ErrSignatureInvalid.
	ParseEvent(payload []byte, signature string) (PaymentEvent, error)
}

// Notifier отправляет письма покупателю. Ошибки отправки не влияют на заказ.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order Order, user User) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

const (
	// AggregateOrder — тип агрегата для событий заказа.
	AggregateOrder = "order"
	// EventOrderPaid публикуется после сохранения оплаченного заказа.
	EventOrderPaid = "order.paid"
)
