package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// StripeConfig — ключи аккаунта Stripe.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Backends подменяет HTTP-бэкенды SDK (тесты, прокси). nil — стандартные.
	Backends *stripe.Backends
}

// StripeProvider — PaymentProvider поверх Stripe Checkout.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider создаёт провайдер. Оба ключа обязательны.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)
	return &StripeProvider{api: api, webhookSecret: cfg.WebhookSecret}, nil
}

// CreateCheckoutSession создаёт hosted checkout в режиме payment.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems:  make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems)),
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			product.Images = []*string{stripe.String(item.ImageURL)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitPrice.Minor()),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, classifyStripeError(err)
	}
	return domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseEvent проверяет заголовок Stripe-Signature и достаёт checkout-сессию из события.
func (p *StripeProvider) ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	parsed := domain.PaymentEvent{
		ID:   event.ID,
		Type: domain.PaymentEventType(event.Type),
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted || event.Data == nil {
		return parsed, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: decode checkout session: %v", domain.ErrValidation, err)
	}
	parsed.SessionID = session.ID
	parsed.Metadata = session.Metadata
	if session.PaymentIntent != nil {
		parsed.PaymentReference = session.PaymentIntent.ID
	}
	return parsed, nil
}

// classifyStripeError отделяет отказ Stripe (запрос неверен, повтор не поможет)
// от недоступности (сеть, 5xx, rate limit).
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}

	switch {
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
		stripeErr.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s", domain.ErrPaymentUnavailable, stripeErr.Msg)
	default:
		return fmt.Errorf("%w: %s", domain.ErrPaymentRejected, stripeErr.Msg)
	}
}

var _ domain.PaymentProvider = (*StripeProvider)(nil)
