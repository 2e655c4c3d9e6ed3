package domain

import (
	"context"
	"time"
)

// CartRepository хранит корзины пользователей.
type CartRepository interface {
	// GetOrCreate возвращает корзину пользователя, атомарно создавая пустую при первом обращении.
	GetOrCreate(ctx context.Context, userID string) (Cart, error)
	// ReplaceItems целиком перезаписывает список строк корзины (last writer wins).
	ReplaceItems(ctx context.Context, userID string, items []CartItem) (Cart, error)
}

// ProductRepository — каталог товаров, доступный только на чтение для бизнес-потоков.
type ProductRepository interface {
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// List возвращает весь каталог, отсортированный по ID.
	List(ctx context.Context) ([]Product, error)
	// Upsert используется только для загрузки фикстур.
	Upsert(ctx context.Context, product Product) error
}

// UserRepository — справочник пользователей.
type UserRepository interface {
	Get(ctx context.Context, id string) (User, error)
	Upsert(ctx context.Context, user User) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderAlreadyExists, если запись с таким ID уже есть.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя от новых к старым; limit <= 0 — без ограничения.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

// IdempotencyRepository хранит журнал обработанных событий оплаты.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	// Release удаляет запись в статусе processing, чтобы повторная доставка могла её захватить.
	Release(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}
