package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/metrics"
)

// RouterConfig задаёт параметры HTTP-роутера.
type RouterConfig struct {
	Handlers *Handlers
	Auth     *Authenticator
	Metrics  *metrics.ShopMetrics
	Logger   *log.Entry
	// Timeout ограничивает на обработку запроса (middleware.Timeout).
	Timeout time.Duration
}

// NewRouter собирает маршруты /api.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := cfg.Handlers

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger.WithField("component", "http_access"), cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: "validation"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productId}", h.GetProduct)

		r.Post("/webhooks/payment", h.PaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Middleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddItem)
				r.Put("/items/{productId}", h.SetQuantity)
				r.Delete("/items/{productId}", h.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Post("/checkout", h.StartCheckout)
				r.Get("/{orderId}", h.GetOrder)
			})
		})
	})

	return r
}
