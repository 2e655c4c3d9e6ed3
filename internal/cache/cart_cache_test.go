package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/domain"
	"github.com/AdanSoria/Project-Shop/internal/storage/memory"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client), mr
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	cart := domain.Cart{ID: "c1", UserID: "user-1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 2}}}
	require.NoError(t, cache.Set(ctx, cart))
	assert.True(t, mr.Exists("cart:user-1"))

	ttl := mr.TTL("cart:user-1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)

	require.NoError(t, cache.Delete(ctx, "user-1"))
	_, err = cache.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:user-1", "{not json"))

	_, err := cache.Get(context.Background(), "user-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

type countingCarts struct {
	domain.CartRepository
	gets int
}

func (c *countingCarts) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	c.gets++
	return c.CartRepository.GetOrCreate(ctx, userID)
}

func TestCartRepository_ReadThroughAndInvalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	backing := &countingCarts{CartRepository: memory.NewCartRepository()}
	repo := NewCartRepository(backing, cache, log.NewEntry(log.New()))
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, backing.gets)

	updated, err := repo.ReplaceItems(ctx, "user-1", []domain.CartItem{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)
	assert.False(t, mr.Exists("cart:user-1"))

	fresh, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, updated.Items, fresh.Items)
	assert.Equal(t, 2, backing.gets)

	raw, err := mr.Get("cart:user-1")
	require.NoError(t, err)
	var cached domain.Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, updated.Items, cached.Items)
}

func TestCartRepository_FallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewCartRepository(memory.NewCartRepository(), NewRedisCache(client), nil)
	mr.Close()

	ctx := context.Background()
	cart, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = repo.ReplaceItems(ctx, "user-1", []domain.CartItem{{ProductID: "p1", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

// pausingCarts задерживает ответ GetOrCreate после чтения хранилища,
// пока тест не отпустит его.
type pausingCarts struct {
	domain.CartRepository
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingCarts) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := p.CartRepository.GetOrCreate(ctx, userID)
	close(p.loaded)
	<-p.release
	return cart, err
}

func TestCartRepository_InvalidationDuringReadDropsFill(t *testing.T) {
	cache, mr := setupTestRedis(t)
	store := memory.NewCartRepository()
	ctx := context.Background()

	_, err := store.ReplaceItems(ctx, "user-1", []domain.CartItem{{ProductID: "p1", Quantity: 2}})
	require.NoError(t, err)

	backing := &pausingCarts{CartRepository: store, loaded: make(chan struct{}), release: make(chan struct{})}
	reader := NewCartRepository(backing, cache, nil)
	writer := NewCartRepository(store, cache, nil)

	done := make(chan domain.Cart, 1)
	go func() {
		cart, err := reader.GetOrCreate(ctx, "user-1")
		assert.NoError(t, err)
		done <- cart
	}()

	<-backing.loaded
	_, err = writer.ReplaceItems(ctx, "user-1", nil)
	require.NoError(t, err)
	close(backing.release)

	old := <-done
	assert.Equal(t, []domain.CartItem{{ProductID: "p1", Quantity: 2}}, old.Items)
	assert.False(t, mr.Exists("cart:user-1"), "stale snapshot must not land in cache")

	fresh, err := writer.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Items)
}

func TestRedisCache_SetIfGeneration(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	cart := domain.Cart{ID: "c1", UserID: "user-1"}

	gen, err := cache.Generation(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, cache.Delete(ctx, "user-1"))
	assert.ErrorIs(t, cache.SetIfGeneration(ctx, cart, gen), ErrStaleFill)
	assert.False(t, mr.Exists("cart:user-1"))

	gen, err = cache.Generation(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.True(t, mr.TTL("cart:gen:user-1") > 0)

	require.NoError(t, cache.SetIfGeneration(ctx, cart, gen))
	assert.True(t, mr.Exists("cart:user-1"))
}
