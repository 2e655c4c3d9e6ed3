package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты создания checkout-сессии (label result).
const (
	CheckoutCreated     = "created"
	CheckoutEmptyCart   = "empty_cart"
	CheckoutStaleCart   = "stale_cart"
	CheckoutRejected    = "rejected"
	CheckoutUnavailable = "unavailable"
	CheckoutError       = "error"
)

// Исходы обработки события оплаты (label outcome).
const (
	SettlementProcessed        = "processed"
	SettlementDuplicate        = "duplicate"
	SettlementIgnored          = "ignored"
	SettlementSkipped          = "skipped"
	SettlementRejected         = "rejected"
	SettlementInProgress       = "in_progress"
	SettlementInvalidSignature = "invalid_signature"
	SettlementError            = "error"
)

// Результаты отправки письма (label result).
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// ShopMetrics содержит метрики оформления заказа, расчёта оплаты и HTTP-слоя.
// Методы допускают nil-получатель, чтобы сервисы в тестах работали без метрик.
type ShopMetrics struct {
	checkoutSessions   *prometheus.CounterVec
	settlementEvents   *prometheus.CounterVec
	settlementDuration prometheus.Histogram
	notifications      *prometheus.CounterVec
	ordersCreated      prometheus.Counter
	ordersRevenue      prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewShopMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewShopMetrics() *ShopMetrics {
	return NewShopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewShopMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewShopMetricsWithRegisterer(registerer prometheus.Registerer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ShopMetrics{
		checkoutSessions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_sessions_total",
			Help: "Checkout session attempts by result",
		}, []string{"result"}),
		settlementEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_settlement_events_total",
			Help: "Payment webhook events by settlement outcome",
		}, []string{"outcome"}),
		settlementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_settlement_duration_seconds",
			Help:    "Time spent settling one payment event",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_notifications_total",
			Help: "Order confirmation emails by result",
		}, []string{"result"}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Paid orders persisted",
		}),
		ordersRevenue: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_revenue_minor_total",
			Help: "Sum of paid order totals in minor currency units",
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordCheckout учитывает попытку создать checkout-сессию.
func (m *ShopMetrics) RecordCheckout(result string) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(result).Inc()
}

// RecordSettlement учитывает исход обработки события и её длительность.
func (m *ShopMetrics) RecordSettlement(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.settlementEvents.WithLabelValues(outcome).Inc()
	m.settlementDuration.Observe(duration.Seconds())
}

// RecordOrderCreated учитывает новый оплаченный заказ.
func (m *ShopMetrics) RecordOrderCreated(totalMinor int64) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.ordersRevenue.Add(float64(totalMinor))
}

// RecordNotification учитывает попытку отправить письмо.
func (m *ShopMetrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// RecordHTTPRequest учитывает обработанный HTTP-запрос.
func (m *ShopMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
