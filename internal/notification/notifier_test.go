package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type stubSender struct {
	err     error
	sent    []*email.Email
	timeout time.Duration
}

func (s *stubSender) Send(e *email.Email, timeout time.Duration) error {
	s.sent = append(s.sent, e)
	s.timeout = timeout
	return s.err
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:     "6f1c1d2e-4c1b-5d8e-9a57-0e3c6b1f2a90",
		UserID: "u1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Taza <clásica>", Quantity: 2, UnitPrice: 1000},
			{ProductID: "p2", Name: "Póster", Quantity: 1, UnitPrice: 24990},
		},
		Total:     26990,
		Currency:  "mxn",
		Status:    domain.OrderStatusPaid,
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func TestBuildConfirmation(t *testing.T) {
	t.Parallel()

	msg, err := BuildConfirmation(sampleOrder(), domain.User{ID: "u1", Email: "ana@example.com", Name: "Ana"}, "https://shop.example/")
	require.NoError(t, err)

	require.Equal(t, []string{"ana@example.com"}, msg.To)
	require.Contains(t, msg.Subject, "#6F1C1D2E")

	html := string(msg.HTML)
	require.Contains(t, html, "¡Gracias por tu compra, Ana!")
	require.Contains(t, html, "14/03/2026")
	require.Contains(t, html, "Pagado")
	require.Contains(t, html, "Taza &lt;clásica&gt;", "names are HTML-escaped")
	require.Contains(t, html, "$10.00")
	require.Contains(t, html, "$20.00")
	require.Contains(t, html, "$269.90 MXN")
	require.Contains(t, html, "https://shop.example/orders/6f1c1d2e-4c1b-5d8e-9a57-0e3c6b1f2a90")
	require.Contains(t, string(msg.Text), "269.90")
}

func TestSMTPNotifier_Send(t *testing.T) {
	t.Parallel()

	stub := &stubSender{}
	notifier := newSMTPNotifier(SMTPConfig{From: "Shop <no-reply@shop.example>", FrontendURL: "https://shop.example"}, stub, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := notifier.SendOrderConfirmation(ctx, sampleOrder(), domain.User{ID: "u1", Email: "ana@example.com"})
	require.NoError(t, err)
	require.Len(t, stub.sent, 1)
	require.Equal(t, "Shop <no-reply@shop.example>", stub.sent[0].From)
	require.LessOrEqual(t, stub.timeout, 5*time.Second)
	require.Greater(t, stub.timeout, time.Duration(0))
}

func TestSMTPNotifier_Errors(t *testing.T) {
	t.Parallel()

	stub := &stubSender{err: errors.New("421 service not available")}
	notifier := newSMTPNotifier(SMTPConfig{From: "no-reply@shop.example"}, stub, quietLogger())

	err := notifier.SendOrderConfirmation(context.Background(), sampleOrder(), domain.User{ID: "u1", Email: "ana@example.com"})
	require.ErrorContains(t, err, "421")

	err = notifier.SendOrderConfirmation(context.Background(), sampleOrder(), domain.User{ID: "u1"})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub.err = nil
	err = notifier.SendOrderConfirmation(ctx, sampleOrder(), domain.User{ID: "u1", Email: "ana@example.com"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewSMTPNotifier_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewSMTPNotifier(SMTPConfig{From: "a@b"}, nil)
	require.Error(t, err)
	_, err = NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 25}, nil)
	require.Error(t, err)

	notifier, err := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "a@b"}, nil)
	require.NoError(t, err)
	require.NotNil(t, notifier)
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewLogNotifier(quietLogger()).SendOrderConfirmation(context.Background(), sampleOrder(), domain.User{}))
}
