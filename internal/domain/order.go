package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus описывает жизненный цикл заказа магазина.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена webhook'ом провайдера.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem — позиция заказа. Имя и цена фиксируются на момент покупки.
type OrderItem struct {
	ProductID string `json:"productId" bson:"product_id"`
	Name      string `json:"name" bson:"name"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	UnitPrice Money  `json:"unitPrice" bson:"unit_price_minor"`
}

// Subtotal — цена позиции с учётом количества.
func (i OrderItem) Subtotal() Money {
	return i.UnitPrice.Mul(i.Quantity)
}

// Order — оплаченная покупка. Создаётся только обработчиком webhook'а оплаты
// и дальше не меняется.
type Order struct {
	ID                string      `json:"id" bson:"_id"`
	UserID            string      `json:"userId" bson:"user_id"`
	Items             []OrderItem `json:"items" bson:"items"`
	Total             Money       `json:"total" bson:"total_minor"`
	Currency          string      `json:"currency" bson:"currency"`
	PaymentReference  string      `json:"paymentId" bson:"payment_reference"`
	CheckoutSessionID string      `json:"checkoutSessionId" bson:"checkout_session_id"`
	Status            OrderStatus `json:"status" bson:"status"`
	CreatedAt         time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" bson:"updated_at"`
}

// orderIDNamespace — пространство имён UUIDv5 для идентификаторов заказов.
var orderIDNamespace = uuid.MustParse("6f1c1d2e-4c1b-5d8e-9a57-0e3c6b1f2a90")

// OrderIDForSession детерминированно выводит ID заказа из ID checkout-сессии:
// повторная доставка того же события упирается в уже существующую запись.
func OrderIDForSession(sessionID string) string {
	return uuid.NewSHA1(orderIDNamespace, []byte(sessionID)).String()
}

// ItemsTotal пересчитывает сумму по позициям.
func ItemsTotal(items []OrderItem) Money {
	var total Money
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.Total < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}

	for _, item := range o.Items {
		if !ValidLineQuantity(item.Quantity) {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	if ItemsTotal(o.Items) != o.Total {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// Clone возвращает копию заказа с независимым срезом позиций.
func (o Order) Clone() Order {
	dst := o
	dst.Items = append([]OrderItem(nil), o.Items...)
	return dst
}
