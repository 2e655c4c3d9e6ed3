package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestShopMetrics_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewShopMetricsWithRegisterer(reg)

	m.RecordCheckout(CheckoutCreated)
	m.RecordCheckout(CheckoutCreated)
	m.RecordCheckout(CheckoutEmptyCart)
	m.RecordSettlement(SettlementProcessed, 20*time.Millisecond)
	m.RecordSettlement(SettlementDuplicate, time.Millisecond)
	m.RecordNotification(NotificationFailed)
	m.RecordOrderCreated(2000)
	m.RecordHTTPRequest("GET", "/api/cart", 200, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.checkoutSessions.WithLabelValues(CheckoutCreated)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.checkoutSessions.WithLabelValues(CheckoutEmptyCart)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.settlementEvents.WithLabelValues(SettlementProcessed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(NotificationFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ordersCreated))
	require.Equal(t, 2000.0, testutil.ToFloat64(m.ordersRevenue))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/cart", "200")))
	require.Equal(t, 2, testutil.CollectAndCount(m.settlementDuration))
}

func TestShopMetrics_ReRegistrationReusesCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first := NewShopMetricsWithRegisterer(reg)
	second := NewShopMetricsWithRegisterer(reg)

	first.RecordCheckout(CheckoutCreated)
	second.RecordCheckout(CheckoutCreated)

	require.Equal(t, 2.0, testutil.ToFloat64(first.checkoutSessions.WithLabelValues(CheckoutCreated)))
}

func TestShopMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var m *ShopMetrics
	require.NotPanics(t, func() {
		m.RecordCheckout(CheckoutCreated)
		m.RecordSettlement(SettlementError, time.Second)
		m.RecordNotification(NotificationSent)
		m.RecordOrderCreated(1)
		m.RecordHTTPRequest("POST", "/api/orders/checkout", 500, time.Second)
	})
}

func TestRegisterCounter_PanicsOnTypeClash(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounterVec(prometheus.CounterOpts{Name: "clash_total", Help: "h"}, []string{"kind"}))

	require.Panics(t, func() {
		registerCounter(reg, prometheus.CounterOpts{Name: "clash_total", Help: "h"})
	})
}
