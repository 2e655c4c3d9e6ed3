package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/metrics"
)

// accessLog пишет одну запись на запрос и считает HTTP-метрики по шаблону маршрута.
func accessLog(logger *log.Entry, m *metrics.ShopMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			duration := time.Since(start)
			m.RecordHTTPRequest(r.Method, route, status, duration)

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"route":       route,
				"status":      status,
				"duration_ms": duration.Milliseconds(),
				"bytes":       ww.BytesWritten(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Warn("http request")
			default:
				entry.Info("http request")
			}
		})
	}
}
