// Package checkout создаёт сессию оплаты у провайдера по текущей корзине.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
	"github.com/AdanSoria/Project-Shop/internal/metrics"
)

// Config задаёт параметры сессии.
type Config struct {
	Currency    string
	FrontendURL string
}

// SuccessURL — адрес возврата после оплаты; провайдер подставит ID сессии.
func (c Config) SuccessURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/payment-success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL — адрес возврата при отказе от оплаты.
func (c Config) CancelURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/payment-cancelled"
}

// Service — инициатор оплаты. Локально ничего не пишет: заказ появится
// только после подтверждённого события оплаты.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	provider domain.PaymentProvider
	cfg      Config
	metrics  *metrics.ShopMetrics
	logger   *log.Entry
}

// NewService создаёт инициатор оплаты. metrics может быть nil.
func NewService(
	carts domain.CartRepository,
	products domain.ProductRepository,
	provider domain.PaymentProvider,
	cfg Config,
	m *metrics.ShopMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		carts:    carts,
		products: products,
		provider: provider,
		cfg:      cfg,
		metrics:  m,
		logger:   logger.WithField("component", "checkout"),
	}
}

// Start строит сессию оплаты по корзине пользователя с ценами из каталога.
func (s *Service) Start(ctx context.Context, userID string) (domain.CheckoutSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CheckoutSession{}, domain.ErrUserRequired
	}
	entry := s.logger.WithField("user_id", userID)

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		s.metrics.RecordCheckout(metrics.CheckoutError)
		return domain.CheckoutSession{}, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		s.metrics.RecordCheckout(metrics.CheckoutEmptyCart)
		return domain.CheckoutSession{}, domain.ErrEmptyCart
	}

	lines, err := s.priceLines(ctx, cart)
	if err != nil {
		if errors.Is(err, domain.ErrStaleCart) {
			s.metrics.RecordCheckout(metrics.CheckoutStaleCart)
			entry.WithError(err).Warn("checkout aborted: cart references missing product")
		} else {
			s.metrics.RecordCheckout(metrics.CheckoutError)
		}
		return domain.CheckoutSession{}, err
	}

	req := domain.CheckoutSessionRequest{
		Currency:   s.cfg.Currency,
		LineItems:  lines,
		SuccessURL: s.cfg.SuccessURL(),
		CancelURL:  s.cfg.CancelURL(),
		Metadata: map[string]string{
			domain.MetadataUserID: userID,
			domain.MetadataCartID: cart.ID,
		},
	}

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindPaymentRejected:
			s.metrics.RecordCheckout(metrics.CheckoutRejected)
		case domain.KindPaymentUnavailable:
			s.metrics.RecordCheckout(metrics.CheckoutUnavailable)
		default:
			s.metrics.RecordCheckout(metrics.CheckoutUnavailable)
			err = fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
		}
		entry.WithError(err).Warn("payment provider refused checkout session")
		return domain.CheckoutSession{}, err
	}

	s.metrics.RecordCheckout(metrics.CheckoutCreated)
	entry.WithFields(log.Fields{
		"session_id": session.ID,
		"cart_id":    cart.ID,
		"total":      req.Total().String(),
	}).Info("checkout session created")
	return session, nil
}

// priceLines берёт актуальные цены и названия из каталога.
func (s *Service) priceLines(ctx context.Context, cart domain.Cart) ([]domain.CheckoutLineItem, error) {
	lines := make([]domain.CheckoutLineItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrStaleCart, item.ProductID)
			}
			return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}
		lines = append(lines, domain.CheckoutLineItem{
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}
