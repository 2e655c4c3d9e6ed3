// Package httptransport реализует REST API магазина поверх chi.
package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// ErrorResponse — тело любого ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError сопоставляет категорию ошибки со статусом. Текст внутренних
// ошибок наружу не отдаётся.
func respondError(w http.ResponseWriter, r *http.Request, err error, logger *log.Entry) {
	kind := domain.KindOf(err)
	status := StatusForKind(kind)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"code":   kind,
		}).Error("request failed")
		if kind == domain.KindInternal {
			message = "internal server error"
		}
	}
	respondJSON(w, status, ErrorResponse{Error: message, Code: string(kind)})
}

// StatusForKind возвращает HTTP-статус для категории ошибки.
func StatusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindSignatureInvalid, domain.KindPaymentRejected:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindPaymentUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON читает тело запроса строго: неизвестные поля считаются ошибкой валидации.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.Join(domain.ErrValidation, errors.New("request body too large"))
		}
		return errors.Join(domain.ErrValidation, errors.New("invalid JSON body"))
	}
	return nil
}
