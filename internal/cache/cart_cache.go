// Package cache содержит read-through кэш корзин поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

const (
	defaultBaseTTL = 15 * time.Minute
	// Счётчик поколений живёт дольше любого чтения из хранилища.
	generationTTL = 24 * time.Hour
)

var (
	// ErrCacheMiss возвращается, когда корзины нет в кэше.
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleFill возвращается SetIfGeneration, если корзину инвалидировали
	// после того, как читатель запомнил поколение.
	ErrStaleFill = errors.New("cache fill is stale")
)

// RedisCache хранит корзины в Redis в виде JSON.
type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

// NewRedisCache создаёт кэш с TTL 15 минут плюс случайный разброс до 5 минут.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, baseTTL: defaultBaseTTL}
}

// Get возвращает корзину из кэша или ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, userID string) (domain.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, ErrCacheMiss
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("redis get: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart: %w", err)
	}
	cart.Items = domain.CloneCartItems(cart.Items)
	return cart, nil
}

// Set кладёт корзину в кэш без проверки поколения.
func (c *RedisCache) Set(ctx context.Context, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(cart.UserID), data, c.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Generation возвращает текущее поколение корзины. Каждый Delete его увеличивает.
func (c *RedisCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// SetIfGeneration кладёт корзину, только если поколение не сдвинулось с gen.
// Иначе возвращает ErrStaleFill: снимок из хранилища мог устареть.
func (c *RedisCache) SetIfGeneration(ctx context.Context, cart domain.Cart, gen int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	genKey := generationKey(cart.UserID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get generation: %w", err)
		}
		if cur != gen {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(cart.UserID), data, c.ttl())
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrStaleFill
	case errors.Is(err, ErrStaleFill):
		return err
	default:
		return fmt.Errorf("redis set: %w", err)
	}
}

// Delete удаляет корзину из кэша и сдвигает её поколение.
func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	genKey := generationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cacheKey(userID))
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Разброс TTL не даёт ключам истекать одной волной.
func (c *RedisCache) ttl() time.Duration {
	return c.baseTTL + time.Duration(rand.Intn(5))*time.Minute
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func generationKey(userID string) string {
	return fmt.Sprintf("cart:gen:%s", userID)
}

// CartRepository — декоратор domain.CartRepository с read-through кэшем.
// Кэш вспомогательный: его ошибки логируются, а запрос уходит в хранилище.
type CartRepository struct {
	next   domain.CartRepository
	cache  *RedisCache
	logger *log.Entry
}

// NewCartRepository оборачивает репозиторий корзин кэшем.
func NewCartRepository(next domain.CartRepository, cache *RedisCache, logger *log.Entry) *CartRepository {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &CartRepository{
		next:   next,
		cache:  cache,
		logger: logger.WithField("component", "cart-cache"),
	}
}

// GetOrCreate сначала смотрит в кэш, при промахе читает хранилище и заполняет кэш.
// Заполнение отменяется, если за время чтения корзину инвалидировали.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := r.cache.Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.WithError(err).WithField("user_id", userID).Warn("cart cache read failed")
	}

	// Поколение запоминается до чтения хранилища.
	gen, genErr := r.cache.Generation(ctx, userID)

	cart, err = r.next.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if genErr != nil {
		r.logger.WithError(genErr).WithField("user_id", userID).Warn("cart cache fill skipped")
		return cart, nil
	}

	switch err := r.cache.SetIfGeneration(ctx, cart, gen); {
	case err == nil:
	case errors.Is(err, ErrStaleFill):
		r.logger.WithField("user_id", userID).Debug("cart changed during read, cache fill dropped")
	default:
		r.logger.WithError(err).WithField("user_id", userID).Warn("cart cache fill failed")
	}
	return cart, nil
}

// ReplaceItems пишет в хранилище и сбрасывает кэш. Следующее чтение заполнит его заново.
func (r *CartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	cart, err := r.next.ReplaceItems(ctx, userID, items)
	if err != nil {
		// Состояние хранилища неизвестно, поэтому кэш тоже сбрасываем.
		r.invalidate(ctx, userID)
		return domain.Cart{}, err
	}
	r.invalidate(ctx, userID)
	return cart, nil
}

// Direct возвращает вид репозитория, который читает хранилище мимо кэша,
// а записи по-прежнему сбрасывают кэш. Нужен там, где решение принимается
// по текущему содержимому корзины: оформление и проведение оплаты.
func (r *CartRepository) Direct() domain.CartRepository {
	return directCarts{r}
}

type directCarts struct {
	*CartRepository
}

func (d directCarts) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	return d.next.GetOrCreate(ctx, userID)
}

func (r *CartRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Delete(ctx, userID); err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("cart cache invalidation failed")
	}
}

var _ domain.CartRepository = (*CartRepository)(nil)
