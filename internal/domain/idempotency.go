package domain

import "time"

// IdempotencyStatus описывает жизненный цикл записи журнала обработанных событий.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing означает, что событие захвачено и ещё обрабатывается.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone означает, что событие обработано и результат сохранён.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed означает окончательный отказ; повтор вернёт тот же ответ.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// IdempotencyRecord хранит состояние обработки события оплаты по ключу сессии.
type IdempotencyRecord struct {
	Key          string            `bson:"_id"`
	RequestHash  string            `bson:"request_hash"`
	ResponseBody []byte            `bson:"response_body"`
	HTTPStatus   int               `bson:"http_status"`
	Status       IdempotencyStatus `bson:"status"`
	TTLAt        time.Time         `bson:"ttl_at"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// SettlementKey — ключ журнала для checkout-сессии.
func SettlementKey(sessionID string) string {
	return "checkout_session:" + sessionID
}
