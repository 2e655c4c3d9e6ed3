// Package settlement превращает подтверждённое событие оплаты в заказ.
//
// Повторные доставки одного события гасятся журналом обработанных сессий
// (IdempotencyRepository) и детерминированным ID заказа: сколько бы раз
// провайдер ни прислал checkout.session.completed, заказ будет один.
package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
	"github.com/AdanSoria/Project-Shop/internal/metrics"
)

const (
	defaultLedgerTTL       = 7 * 24 * time.Hour
	defaultProcessingLease = 5 * time.Minute
	defaultNotifyTimeout   = 30 * time.Second
)

// Config задаёт параметры обработки событий.
type Config struct {
	Currency string
	// LedgerTTL — сколько хранится запись журнала после обработки.
	LedgerTTL time.Duration
	// ProcessingLease — через сколько зависшая запись processing может быть перехвачена.
	ProcessingLease time.Duration
	NotifyTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.LedgerTTL <= 0 {
		c.LedgerTTL = defaultLedgerTTL
	}
	if c.ProcessingLease <= 0 {
		c.ProcessingLease = defaultProcessingLease
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = defaultNotifyTimeout
	}
	return c
}

// Stores — хранилища, с которыми работает обработчик.
type Stores struct {
	Carts    domain.CartRepository
	Products domain.ProductRepository
	Users    domain.UserRepository
	Orders   domain.OrderRepository
	Ledger   domain.IdempotencyRepository
}

// Option настраивает Service.
type Option func(*Service)

// WithOutbox включает запись события order.paid в outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(s *Service) { s.outbox = repo }
}

// WithNotifier включает отправку письма с подтверждением.
func WithNotifier(notifier domain.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.ShopMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Result — итог обработки одной доставки.
type Result struct {
	// Outcome совпадает с label outcome метрики shop_settlement_events_total.
	Outcome string
	// Order заполнен для processed и duplicate.
	Order *domain.Order
}

// Service — обработчик webhook'а оплаты.
type Service struct {
	provider domain.PaymentProvider
	stores   Stores
	cfg      Config

	outbox   domain.OutboxRepository
	notifier domain.Notifier
	metrics  *metrics.ShopMetrics
	logger   *log.Entry
	now      func() time.Time

	notifications sync.WaitGroup
}

// NewService создаёт обработчик событий оплаты.
func NewService(provider domain.PaymentProvider, stores Stores, cfg Config, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		stores:   stores,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewEntry(log.StandardLogger())
	}
	s.logger = s.logger.WithField("component", "settlement")
	return s
}

// Handle проверяет подпись, разбирает событие и при необходимости создаёт заказ.
// Ошибка несёт категорию для HTTP-ответа (см. domain.KindOf); nil означает 200.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) (Result, error) {
	started := time.Now()
	res, err := s.handle(ctx, payload, signature)
	if err != nil {
		res.Outcome = outcomeForError(err)
	}
	s.metrics.RecordSettlement(res.Outcome, time.Since(started))
	return res, err
}

// Wait дожидается фоновых отправок писем. Вызывается при остановке сервиса.
func (s *Service) Wait() {
	s.notifications.Wait()
}

func (s *Service) handle(ctx context.Context, payload []byte, signature string) (Result, error) {
	event, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		// Неклассифицированная ошибка разбора считается провалом подписи.
		// Подписанное, но битое тело остаётся ошибкой валидации.
		if domain.KindOf(err) == domain.KindInternal {
			err = fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
		}
		s.logger.WithError(err).WithField("kind", domain.KindOf(err)).Warn("rejected payment event")
		return Result{}, err
	}

	entry := s.logger.WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"session_id": event.SessionID,
	})

	if event.Type != domain.PaymentEventCheckoutCompleted {
		entry.Debug("payment event ignored")
		return Result{Outcome: metrics.SettlementIgnored}, nil
	}
	if event.SessionID == "" || event.UserID() == "" || event.CartID() == "" {
		entry.WithField("metadata", event.Metadata).Warn("checkout completed without user/cart metadata, skipping")
		return Result{Outcome: metrics.SettlementSkipped}, nil
	}
	entry = entry.WithFields(log.Fields{"user_id": event.UserID(), "cart_id": event.CartID()})

	key := domain.SettlementKey(event.SessionID)
	if res, handled, err := s.acquire(ctx, key, requestHash(event), entry); handled {
		return res, err
	}

	order, created, err := s.settle(ctx, event, entry)
	if err != nil {
		s.abandon(ctx, key, err, entry)
		return Result{}, err
	}

	if body, err := json.Marshal(order); err != nil {
		entry.WithError(err).Warn("failed to encode settled order for ledger")
	} else if err := s.stores.Ledger.MarkDone(ctx, key, body, http.StatusOK); err != nil {
		entry.WithError(err).Warn("failed to mark settlement done")
	}

	if created {
		s.metrics.RecordOrderCreated(order.Total.Minor())
		s.notify(ctx, order, entry)
	}

	entry.WithFields(log.Fields{
		"order_id": order.ID,
		"total":    order.Total.String(),
		"created":  created,
	}).Info("payment settled")
	return Result{Outcome: metrics.SettlementProcessed, Order: &order}, nil
}

// acquire захватывает ключ журнала. handled=true означает, что доставка
// уже обработана (или обрабатывается) и res/err нужно вернуть как есть.
func (s *Service) acquire(ctx context.Context, key, hash string, entry *log.Entry) (Result, bool, error) {
	ttlAt := s.now().UTC().Add(s.cfg.LedgerTTL)

	record, err := s.stores.Ledger.CreateProcessing(ctx, key, hash, ttlAt)
	switch {
	case err == nil:
		return Result{}, false, nil
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return Result{}, true, fmt.Errorf("%w: session already settled with different metadata", domain.ErrConflict)
	case !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		return Result{}, true, fmt.Errorf("acquire settlement: %w", err)
	}

	switch record.Status {
	case domain.IdempotencyStatusDone:
		var order domain.Order
		if err := json.Unmarshal(record.ResponseBody, &order); err != nil {
			entry.WithError(err).Warn("failed to decode stored settlement, acknowledging anyway")
			return Result{Outcome: metrics.SettlementDuplicate}, true, nil
		}
		entry.WithField("order_id", order.ID).Info("duplicate payment event")
		return Result{Outcome: metrics.SettlementDuplicate, Order: &order}, true, nil
	case domain.IdempotencyStatusFailed:
		return Result{}, true, decodeFailure(record)
	case domain.IdempotencyStatusProcessing:
		if s.now().Sub(record.UpdatedAt) < s.cfg.ProcessingLease {
			return Result{}, true, domain.ErrSettlementInProgress
		}
		entry.WithField("since", record.UpdatedAt).Warn("taking over stale settlement")
		if err := s.stores.Ledger.Release(ctx, key); err != nil {
			return Result{}, true, fmt.Errorf("release stale settlement: %w", err)
		}
		if _, err := s.stores.Ledger.CreateProcessing(ctx, key, hash, ttlAt); err != nil {
			if domain.IsIdempotencyConflict(err) {
				return Result{}, true, domain.ErrSettlementInProgress
			}
			return Result{}, true, fmt.Errorf("acquire settlement: %w", err)
		}
		return Result{}, false, nil
	default:
		return Result{}, true, fmt.Errorf("%w: unknown ledger status %q", domain.ErrInternal, record.Status)
	}
}

// settle создаёт заказ (или находит уже созданный) и очищает корзину.
func (s *Service) settle(ctx context.Context, event domain.PaymentEvent, entry *log.Entry) (domain.Order, bool, error) {
	orderID := domain.OrderIDForSession(event.SessionID)

	existing, err := s.stores.Orders.Get(ctx, orderID)
	switch {
	case err == nil:
		entry.WithField("order_id", orderID).Info("order already recorded, finishing settlement")
		if err := s.clearCart(ctx, existing.UserID); err != nil {
			return domain.Order{}, false, err
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrOrderNotFound):
		return domain.Order{}, false, fmt.Errorf("load order: %w", err)
	}

	cart, err := s.stores.Carts.GetOrCreate(ctx, event.UserID())
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("load cart: %w", err)
	}
	if cart.ID != event.CartID() || cart.IsEmpty() {
		return domain.Order{}, false, domain.ErrCartMismatch
	}

	items, err := s.priceItems(ctx, cart)
	if err != nil {
		return domain.Order{}, false, err
	}

	now := s.now().UTC()
	order := domain.Order{
		ID:                orderID,
		UserID:            event.UserID(),
		Items:             items,
		Total:             domain.ItemsTotal(items),
		Currency:          s.cfg.Currency,
		PaymentReference:  event.PaymentReference,
		CheckoutSessionID: event.SessionID,
		Status:            domain.OrderStatusPaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, false, fmt.Errorf("%w: build order: %v", domain.ErrInternal, errors.Join(errs...))
	}

	created := true
	if err := s.stores.Orders.Create(ctx, order); err != nil {
		if !errors.Is(err, domain.ErrOrderAlreadyExists) {
			return domain.Order{}, false, fmt.Errorf("create order: %w", err)
		}
		if order, err = s.stores.Orders.Get(ctx, orderID); err != nil {
			return domain.Order{}, false, fmt.Errorf("load concurrent order: %w", err)
		}
		created = false
	}

	if created {
		s.enqueue(ctx, order, entry)
	}
	if err := s.clearCart(ctx, order.UserID); err != nil {
		return domain.Order{}, false, err
	}
	return order, created, nil
}

// priceItems фиксирует названия и цены каталога на момент оплаты.
func (s *Service) priceItems(ctx context.Context, cart domain.Cart) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.stores.Products.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrStaleCart, line.ProductID)
			}
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}
	return items, nil
}

func (s *Service) clearCart(ctx context.Context, userID string) error {
	if _, err := s.stores.Carts.ReplaceItems(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// enqueue пишет order.paid в outbox. Заказ уже сохранён, поэтому ошибка только логируется.
func (s *Service) enqueue(ctx context.Context, order domain.Order, entry *log.Entry) {
	if s.outbox == nil {
		return
	}
	payload, err := json.Marshal(domain.NewOrderPaidEvent(order))
	if err != nil {
		entry.WithError(err).Error("failed to encode order.paid event")
		return
	}
	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     domain.EventOrderPaid,
		Payload:       payload,
	}); err != nil {
		entry.WithError(err).Error("failed to enqueue order.paid event")
	}
}

// abandon фиксирует окончательный отказ или освобождает ключ для повтора.
func (s *Service) abandon(ctx context.Context, key string, cause error, entry *log.Entry) {
	if errors.Is(cause, domain.ErrCartMismatch) {
		entry.WithError(cause).Warn("payment event does not match any open cart")
		if err := s.stores.Ledger.MarkFailed(ctx, key, encodeFailure(cause), http.StatusNotFound); err != nil {
			entry.WithError(err).Warn("failed to mark settlement failed")
		}
		return
	}

	entry.WithError(cause).Error("settlement failed, provider will retry")
	if err := s.stores.Ledger.Release(ctx, key); err != nil {
		entry.WithError(err).Warn("failed to release settlement key")
	}
}

func (s *Service) notify(ctx context.Context, order domain.Order, entry *log.Entry) {
	if s.notifier == nil {
		s.metrics.RecordNotification(metrics.NotificationSkipped)
		return
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
		defer cancel()

		user, err := s.stores.Users.Get(notifyCtx, order.UserID)
		if err != nil || user.Email == "" {
			s.metrics.RecordNotification(metrics.NotificationSkipped)
			entry.WithError(err).Warn("no e-mail for order confirmation")
			return
		}

		if err := s.notifier.SendOrderConfirmation(notifyCtx, order, user); err != nil {
			s.metrics.RecordNotification(metrics.NotificationFailed)
			entry.WithError(err).Error("failed to send order confirmation")
			return
		}
		s.metrics.RecordNotification(metrics.NotificationSent)
	}()
}

type failurePayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func encodeFailure(err error) []byte {
	body, _ := json.Marshal(failurePayload{Error: err.Error(), Code: string(domain.KindOf(err))})
	return body
}

func decodeFailure(record domain.IdempotencyRecord) error {
	var payload failurePayload
	if err := json.Unmarshal(record.ResponseBody, &payload); err == nil && payload.Code != "" {
		return fmt.Errorf("%w: %s", domain.ErrorForKind(domain.Kind(payload.Code)), payload.Error)
	}
	if record.HTTPStatus == http.StatusNotFound {
		return domain.ErrCartMismatch
	}
	return fmt.Errorf("%w: previous delivery of this event failed", domain.ErrInternal)
}

// requestHash связывает ключ журнала с содержимым события.
func requestHash(event domain.PaymentEvent) string {
	sum := sha256.Sum256([]byte(event.SessionID + "\n" + event.UserID() + "\n" + event.CartID()))
	return hex.EncodeToString(sum[:])
}

func outcomeForError(err error) string {
	if errors.Is(err, domain.ErrSettlementInProgress) {
		return metrics.SettlementInProgress
	}
	switch domain.KindOf(err) {
	case domain.KindSignatureInvalid:
		return metrics.SettlementInvalidSignature
	case domain.KindValidation, domain.KindNotFound, domain.KindConflict:
		return metrics.SettlementRejected
	default:
		return metrics.SettlementError
	}
}
