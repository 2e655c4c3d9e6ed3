package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/domain"
	"github.com/AdanSoria/Project-Shop/internal/storage/memory"
)

func TestCartRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCartRepository()

	cart, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, cart.ID)
	require.Equal(t, "user-1", cart.UserID)
	require.NotNil(t, cart.Items)
	require.Empty(t, cart.Items)

	again, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, cart.ID, again.ID)

	_, err = repo.GetOrCreate(ctx, " ")
	require.ErrorIs(t, err, domain.ErrUserRequired)
}

func TestCartRepository_GetOrCreateConcurrentSingleCart(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCartRepository()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := repo.GetOrCreate(ctx, "user-1")
			if err == nil {
				ids[i] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestCartRepository_ReplaceItems(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCartRepository()

	created, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)

	items := []domain.CartItem{{ProductID: "p1", Quantity: 2}}
	updated, err := repo.ReplaceItems(ctx, "user-1", items)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, items, updated.Items)

	items[0].Quantity = 50
	stored, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, stored.Items[0].Quantity)

	cleared, err := repo.ReplaceItems(ctx, "user-1", nil)
	require.NoError(t, err)
	require.NotNil(t, cleared.Items)
	require.Empty(t, cleared.Items)
}
