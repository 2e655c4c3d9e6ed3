package domain

import "time"

// OrderPaidEvent — полезная нагрузка события order.paid в outbox.
type OrderPaidEvent struct {
	OrderID           string      `json:"orderId"`
	UserID            string      `json:"userId"`
	Items             []OrderItem `json:"items"`
	Total             Money       `json:"total"`
	Currency          string      `json:"currency"`
	PaymentReference  string      `json:"paymentId"`
	CheckoutSessionID string      `json:"checkoutSessionId"`
	PaidAt            time.Time   `json:"paidAt"`
}

// NewOrderPaidEvent собирает событие из сохранённого заказа.
func NewOrderPaidEvent(order Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:           order.ID,
		UserID:            order.UserID,
		Items:             append([]OrderItem(nil), order.Items...),
		Total:             order.Total,
		Currency:          order.Currency,
		PaymentReference:  order.PaymentReference,
		CheckoutSessionID: order.CheckoutSessionID,
		PaidAt:            order.CreatedAt,
	}
}
