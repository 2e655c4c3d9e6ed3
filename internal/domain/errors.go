package domain

import (
	"errors"
	"fmt"
)

// Базовые категории ошибок. Конкретные ошибки оборачивают одну из них через %w,
// транспорт сопоставляет категорию с HTTP-статусом.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrSignatureInvalid   = errors.New("invalid webhook signature")
	ErrPaymentRejected    = errors.New("payment provider rejected request")
	ErrPaymentUnavailable = errors.New("payment provider unavailable")
	ErrInternal           = errors.New("internal error")
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = fmt.Errorf("%w: user_id is required", ErrValidation)
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = fmt.Errorf("%w: product_id is required", ErrValidation)
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = fmt.Errorf("%w: currency is required", ErrValidation)
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = fmt.Errorf("%w: total must be non-negative", ErrValidation)
	// Ошибка при количестве товара вне [1, MaxLineQuantity].
	ErrItemQtyInvalid = fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, MaxLineQuantity)
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = fmt.Errorf("%w: item price must be non-negative", ErrValidation)
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = fmt.Errorf("%w: order total does not match items sum", ErrValidation)
	// Ошибка неизвестного статуса заказа.
	ErrOrderStatusInvalid = fmt.Errorf("%w: unknown order status", ErrValidation)
	// ErrEmptyCart — оформление заказа с пустой корзиной.
	ErrEmptyCart = fmt.Errorf("%w: cart is empty", ErrValidation)

	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = fmt.Errorf("%w: product not found", ErrNotFound)
	// ErrCartItemNotFound — в корзине нет строки с таким товаром.
	ErrCartItemNotFound = fmt.Errorf("%w: product is not in cart", ErrNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = fmt.Errorf("%w: order not found", ErrNotFound)
	// ErrUserNotFound — пользователя нет в справочнике.
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)
	// ErrCartMismatch — корзина из метаданных сессии не совпадает с текущей
	// или уже пуста. Повтор доставки не поможет.
	ErrCartMismatch = fmt.Errorf("%w: cart not found or already settled", ErrNotFound)

	// ErrOrderForbidden — заказ принадлежит другому пользователю.
	ErrOrderForbidden = fmt.Errorf("%w: order belongs to another user", ErrForbidden)

	// ErrOrderAlreadyExists — заказ с таким ID уже сохранён.
	ErrOrderAlreadyExists = fmt.Errorf("%w: order already exists", ErrConflict)
	// ErrSettlementInProgress — то же событие оплаты прямо сейчас обрабатывается
	// другой доставкой; провайдер должен повторить позже.
	ErrSettlementInProgress = fmt.Errorf("%w: settlement already in progress", ErrConflict)

	// ErrStaleCart — товар из корзины пропал из каталога. Ошибка сервера,
	// клиент может повторить попытку.
	ErrStaleCart = fmt.Errorf("%w: cart references a product missing from catalog", ErrInternal)
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// Ошибки журнала идемпотентности.
var (
	ErrIdempotencyKeyRequired         = fmt.Errorf("%w: idempotency key is required", ErrValidation)
	ErrIdempotencyRequestHashRequired = fmt.Errorf("%w: idempotency request hash is required", ErrValidation)
	ErrIdempotencyKeyAlreadyExists    = fmt.Errorf("%w: idempotency key already exists", ErrConflict)
	ErrIdempotencyHashMismatch        = fmt.Errorf("%w: idempotency key reused with different request", ErrConflict)
	ErrIdempotencyKeyNotFound         = fmt.Errorf("%w: idempotency key not found", ErrNotFound)
)

// Kind — категория ошибки для сопоставления с транспортным статусом.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindUnauthorized       Kind = "unauthorized"
	KindConflict           Kind = "conflict"
	KindSignatureInvalid   Kind = "invalid_signature"
	KindPaymentRejected    Kind = "payment_rejected"
	KindPaymentUnavailable Kind = "payment_unavailable"
	KindInternal           Kind = "internal"
)

// KindOf определяет категорию ошибки. Всё, что не удалось классифицировать,
// считается внутренней ошибкой.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignatureInvalid):
		return KindSignatureInvalid
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPaymentRejected):
		return KindPaymentRejected
	case errors.Is(err, ErrPaymentUnavailable):
		return KindPaymentUnavailable
	default:
		return KindInternal
	}
}

// IsIdempotencyConflict проверяет, что ключ уже занят (тем же или другим запросом).
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}

// ErrorForKind возвращает базовую ошибку категории; используется при
// восстановлении сохранённого отказа.
func ErrorForKind(kind Kind) error {
	switch kind {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindForbidden:
		return ErrForbidden
	case KindUnauthorized:
		return ErrUnauthorized
	case KindConflict:
		return ErrConflict
	case KindSignatureInvalid:
		return ErrSignatureInvalid
	case KindPaymentRejected:
		return ErrPaymentRejected
	case KindPaymentUnavailable:
		return ErrPaymentUnavailable
	default:
		return ErrInternal
	}
}
