// Package notification отправляет покупателю письмо с подтверждением заказа.
package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTemplate = template.Must(template.ParseFS(templateFS, "templates/order_confirmation.html"))

const (
	defaultSendTimeout = 10 * time.Second
	defaultPoolSize    = 2
)

// SMTPConfig — параметры почтового сервера.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// FrontendURL нужен для ссылки на заказ в письме.
	FrontendURL string
	PoolSize    int
}

// Addr возвращает host:port.
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// sender — часть email.Pool, которой пользуется нотификатор.
type sender interface {
	Send(e *email.Email, timeout time.Duration) error
}

// SMTPNotifier шлёт письма через пул SMTP-соединений.
type SMTPNotifier struct {
	cfg    SMTPConfig
	sender sender
	logger *log.Entry
}

// NewSMTPNotifier создаёт нотификатор с пулом соединений к cfg.Addr().
func NewSMTPNotifier(cfg SMTPConfig, logger *log.Entry) (*SMTPNotifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	pool, err := email.NewPool(cfg.Addr(), cfg.PoolSize, auth)
	if err != nil {
		return nil, fmt.Errorf("create smtp pool: %w", err)
	}
	return newSMTPNotifier(cfg, pool, logger), nil
}

func newSMTPNotifier(cfg SMTPConfig, s sender, logger *log.Entry) *SMTPNotifier {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &SMTPNotifier{cfg: cfg, sender: s, logger: logger.WithField("component", "notifier")}
}

// SendOrderConfirmation собирает письмо и отправляет его, укладываясь в дедлайн ctx.
func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order, user domain.User) error {
	if user.Email == "" {
		return fmt.Errorf("user %s has no e-mail", user.ID)
	}

	msg, err := BuildConfirmation(order, user, n.cfg.FrontendURL)
	if err != nil {
		return err
	}
	msg.From = n.cfg.From

	timeout := defaultSendTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.sender.Send(msg, timeout); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", order.ID, err)
	}
	n.logger.WithFields(log.Fields{"order_id": order.ID, "to": user.Email}).Info("order confirmation sent")
	return nil
}

type confirmationLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

type confirmationView struct {
	CustomerName string
	OrderNumber  string
	Date         string
	Items        []confirmationLine
	Total        string
	Currency     string
	OrderURL     string
}

// BuildConfirmation рендерит письмо без отправителя.
func BuildConfirmation(order domain.Order, user domain.User, frontendURL string) (*email.Email, error) {
	view := confirmationView{
		CustomerName: user.Name,
		OrderNumber:  shortOrderNumber(order.ID),
		Date:         order.CreatedAt.Format("02/01/2006"),
		Total:        order.Total.String(),
		Currency:     strings.ToUpper(order.Currency),
		OrderURL:     strings.TrimRight(frontendURL, "/") + "/orders/" + order.ID,
		Items:        make([]confirmationLine, 0, len(order.Items)),
	}
	if view.CustomerName == "" {
		view.CustomerName = user.Email
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, confirmationLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
			Subtotal:  item.Subtotal().String(),
		})
	}

	var html bytes.Buffer
	if err := confirmationTemplate.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}

	msg := email.NewEmail()
	msg.To = []string{user.Email}
	msg.Subject = fmt.Sprintf("Confirmación de pedido #%s", view.OrderNumber)
	msg.HTML = html.Bytes()
	msg.Text = []byte(fmt.Sprintf("Pedido #%s pagado. Total: $%s %s.\nDetalle: %s\n",
		view.OrderNumber, view.Total, view.Currency, view.OrderURL))
	return msg, nil
}

// shortOrderNumber — первые 8 символов ID в верхнем регистре.
func shortOrderNumber(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// LogNotifier только пишет в лог. Используется, когда SMTP не настроен.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт нотификатор-заглушку.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &LogNotifier{logger: logger.WithField("component", "notifier")}
}

// SendOrderConfirmation логирует заказ вместо отправки.
func (n *LogNotifier) SendOrderConfirmation(_ context.Context, order domain.Order, user domain.User) error {
	n.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"to":       user.Email,
		"total":    order.Total.String(),
	}).Info("order confirmation (smtp disabled)")
	return nil
}

var (
	_ domain.Notifier = (*SMTPNotifier)(nil)
	_ domain.Notifier = (*LogNotifier)(nil)
)
