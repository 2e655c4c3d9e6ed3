package domain

// PaymentEventType — тип события платёжного провайдера.
type PaymentEventType string

// PaymentEventCheckoutCompleted — единственный тип события, который обрабатывает магазин.
const PaymentEventCheckoutCompleted PaymentEventType = "checkout.session.completed"

// Ключи метаданных checkout-сессии.
const (
	MetadataUserID = "userId"
	MetadataCartID = "cartId"
)

// CheckoutLineItem — строка сессии оплаты в минимальных единицах.
type CheckoutLineItem struct {
	Name      string
	ImageURL  string
	UnitPrice Money
	Quantity  int
}

// CheckoutSessionRequest — всё, что нужно провайдеру для создания сессии.
type CheckoutSessionRequest struct {
	Currency   string
	LineItems  []CheckoutLineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Total — сумма сессии.
func (r CheckoutSessionRequest) Total() Money {
	var total Money
	for _, item := range r.LineItems {
		total += item.UnitPrice.Mul(item.Quantity)
	}
	return total
}

// CheckoutSession — созданная у провайдера сессия; локально не хранится.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// PaymentEvent — проверенное событие провайдера.
type PaymentEvent struct {
	ID        string
	Type      PaymentEventType
	SessionID string
	// PaymentReference — идентификатор платежа у провайдера (payment intent).
	PaymentReference string
	Metadata         map[string]string
}

// UserID возвращает пользователя из метаданных сессии.
func (e PaymentEvent) UserID() string { return e.Metadata[MetadataUserID] }

// CartID возвращает корзину из метаданных сессии.
func (e PaymentEvent) CartID() string { return e.Metadata[MetadataCartID] }
