// Package payment содержит реализации PaymentProvider: Stripe и тестовый провайдер.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// DefaultSignatureTolerance — допустимое расхождение метки t= с текущим временем.
const DefaultSignatureTolerance = 5 * time.Minute

// MockProvider — конфигурируемый PaymentProvider для тестов и локального запуска.
// События подписываются HMAC-SHA256 в формате заголовка "t=<unix>,v1=<hex>".
type MockProvider struct {
	Secret string
	// CreateErr, если задан, возвращается из CreateCheckoutSession.
	CreateErr error
	// Tolerance ограничивает возраст подписи в обе стороны. Ноль — DefaultSignatureTolerance.
	Tolerance time.Duration
	// Now подменяет часы при проверке и выдаче подписи.
	Now func() time.Time

	mu       sync.Mutex
	seq      int
	requests []domain.CheckoutSessionRequest
}

// NewMockProvider создаёт провайдер с заданным секретом подписи.
func NewMockProvider(secret string) *MockProvider {
	return &MockProvider{Secret: secret}
}

// CreateCheckoutSession запоминает запрос и возвращает сессию cs_mock_<n>.
func (m *MockProvider) CreateCheckoutSession(_ context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return domain.CheckoutSession{}, m.CreateErr
	}

	m.seq++
	m.requests = append(m.requests, req)
	id := fmt.Sprintf("cs_mock_%d", m.seq)
	return domain.CheckoutSession{ID: id, URL: "https://checkout.mock.local/pay/" + id}, nil
}

// Requests возвращает копию всех принятых запросов.
func (m *MockProvider) Requests() []domain.CheckoutSessionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CheckoutSessionRequest(nil), m.requests...)
}

type mockEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID     string            `json:"session_id"`
		PaymentIntent string            `json:"payment_intent"`
		Metadata      map[string]string `json:"metadata"`
	} `json:"data"`
}

// ParseEvent проверяет подпись и разбирает событие.
func (m *MockProvider) ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	if err := m.verify(payload, signature); err != nil {
		return domain.PaymentEvent{}, err
	}

	var raw mockEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: malformed event body", domain.ErrValidation)
	}

	return domain.PaymentEvent{
		ID:               raw.ID,
		Type:             domain.PaymentEventType(raw.Type),
		SessionID:        raw.Data.SessionID,
		PaymentReference: raw.Data.PaymentIntent,
		Metadata:         raw.Data.Metadata,
	}, nil
}

func (m *MockProvider) verify(payload []byte, header string) error {
	var (
		ts  string
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			sig = value
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("%w: malformed signature header", domain.ErrSignatureInvalid)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", domain.ErrSignatureInvalid)
	}

	expected := m.mac(ts, payload)
	given, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(expected, given) {
		return domain.ErrSignatureInvalid
	}

	skew := m.now().Sub(time.Unix(unix, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > m.tolerance() {
		return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrSignatureInvalid)
	}
	return nil
}

func (m *MockProvider) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockProvider) tolerance() time.Duration {
	if m.Tolerance > 0 {
		return m.Tolerance
	}
	return DefaultSignatureTolerance
}

func (m *MockProvider) mac(ts string, payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(m.Secret))
	h.Write([]byte(ts))
	h.Write([]byte("."))
	h.Write(payload)
	return h.Sum(nil)
}

// Sign возвращает заголовок подписи для payload с текущей меткой времени.
func (m *MockProvider) Sign(payload []byte) string {
	return m.SignAt(payload, m.now())
}

// SignAt подписывает payload меткой at.
func (m *MockProvider) SignAt(payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(m.mac(ts, payload)))
}

// CompletedEvent собирает подписанное событие checkout.session.completed.
func (m *MockProvider) CompletedEvent(sessionID, paymentIntent string, metadata map[string]string) (payload []byte, signature string) {
	return m.Event(string(domain.PaymentEventCheckoutCompleted), sessionID, paymentIntent, metadata)
}

// Event собирает подписанное событие произвольного типа.
func (m *MockProvider) Event(eventType, sessionID, paymentIntent string, metadata map[string]string) (payload []byte, signature string) {
	var raw mockEvent
	raw.ID = "evt_" + sessionID
	raw.Type = eventType
	raw.Data.SessionID = sessionID
	raw.Data.PaymentIntent = paymentIntent
	raw.Data.Metadata = metadata

	payload, _ = json.Marshal(raw)
	return payload, m.Sign(payload)
}

var _ domain.PaymentProvider = (*MockProvider)(nil)
