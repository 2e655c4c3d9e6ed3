package httptransport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
	"github.com/AdanSoria/Project-Shop/internal/service/cart"
	"github.com/AdanSoria/Project-Shop/internal/service/checkout"
	"github.com/AdanSoria/Project-Shop/internal/service/orders"
	"github.com/AdanSoria/Project-Shop/internal/service/settlement"
)

// SignatureHeader — заголовок с подписью webhook'а провайдера.
const SignatureHeader = "Stripe-Signature"

const (
	defaultRequestTimeout = 10 * time.Second
	maxJSONBody           = 1 << 20
	maxWebhookBody        = 64 << 10
)

// Handlers обслуживает REST API магазина.
type Handlers struct {
	products   domain.ProductRepository
	carts      *cart.Service
	checkout   *checkout.Service
	orders     *orders.Service
	settlement *settlement.Service

	timeout time.Duration
	logger  *log.Entry
}

// NewHandlers собирает обработчики. timeout ограничивает каждый запрос к хранилищу.
func NewHandlers(
	products domain.ProductRepository,
	carts *cart.Service,
	checkoutSvc *checkout.Service,
	ordersSvc *orders.Service,
	settlementSvc *settlement.Service,
	timeout time.Duration,
	logger *log.Entry,
) *Handlers {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Handlers{
		products:   products,
		carts:      carts,
		checkout:   checkoutSvc,
		orders:     ordersSvc,
		settlement: settlementSvc,
		timeout:    timeout,
		logger:     logger.WithField("component", "http"),
	}
}

func (h *Handlers) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

// ListProducts обрабатывает GET /api/products.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetProduct обрабатывает GET /api/products/{productId}.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	product, err := h.products.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GetCart обрабатывает GET /api/cart.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.carts.Get(ctx, UserIDFromContext(r.Context()))
	h.respondCart(w, r, c, err)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// AddItem обрабатывает POST /api/cart/items.
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.carts.AddItem(ctx, UserIDFromContext(r.Context()), req.ProductID, req.Quantity)
	h.respondCart(w, r, c, err)
}

// SetQuantity обрабатывает PUT /api/cart/items/{productId}.
func (h *Handlers) SetQuantity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.carts.SetQuantity(ctx, UserIDFromContext(r.Context()), chi.URLParam(r, "productId"), req.Quantity)
	h.respondCart(w, r, c, err)
}

// RemoveItem обрабатывает DELETE /api/cart/items/{productId}.
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.carts.RemoveItem(ctx, UserIDFromContext(r.Context()), chi.URLParam(r, "productId"))
	h.respondCart(w, r, c, err)
}

// ClearCart обрабатывает DELETE /api/cart.
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.carts.Clear(ctx, UserIDFromContext(r.Context()))
	h.respondCart(w, r, c, err)
}

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, c domain.Cart, err error) {
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// StartCheckout обрабатывает POST /api/orders/checkout.
func (h *Handlers) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session, err := h.checkout.Start(ctx, UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// ListOrders обрабатывает GET /api/orders. Необязательный ?limit=N.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, r, errors.Join(domain.ErrValidation, errors.New("limit must be a non-negative integer")), h.logger)
			return
		}
		limit = n
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	list, err := h.orders.List(ctx, UserIDFromContext(r.Context()), limit)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetOrder обрабатывает GET /api/orders/{orderId}.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	order, err := h.orders.Get(ctx, UserIDFromContext(r.Context()), chi.URLParam(r, "orderId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
	OrderID  string `json:"orderId,omitempty"`
}

// PaymentWebhook обрабатывает POST /api/webhooks/payment. Подпись проверяется по сырому телу,
// поэтому тело читается целиком до любого разбора.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, r, errors.Join(domain.ErrValidation, errors.New("cannot read webhook body")), h.logger)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.settlement.Handle(ctx, payload, r.Header.Get(SignatureHeader))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	resp := webhookResponse{Received: true, Outcome: res.Outcome}
	if res.Order != nil {
		resp.OrderID = res.Order.ID
	}
	respondJSON(w, http.StatusOK, resp)
}
