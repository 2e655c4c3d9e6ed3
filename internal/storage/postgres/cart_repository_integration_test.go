package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

func TestCartRepository_PostgresGetOrCreateAndReplace(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)
	ctx := context.Background()

	cart, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, cart.ID)
	require.Empty(t, cart.Items)

	again, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, cart.ID, again.ID)

	updated, err := repo.ReplaceItems(ctx, "user-1", []domain.CartItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, cart.ID, updated.ID)
	require.Equal(t, []domain.CartItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}}, updated.Items)

	cleared, err := repo.ReplaceItems(ctx, "user-1", nil)
	require.NoError(t, err)
	require.NotNil(t, cleared.Items)
	require.Empty(t, cleared.Items)
}

func TestCatalogRepositories_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	products := NewProductRepository(store)
	users := NewUserRepository(store)
	ctx := context.Background()

	require.NoError(t, products.Upsert(ctx, domain.Product{ID: "p2", Name: "Poster", Price: 999}))
	require.NoError(t, products.Upsert(ctx, domain.Product{ID: "p1", Name: "Mug", Price: 1000, Stock: 3}))
	require.NoError(t, products.Upsert(ctx, domain.Product{ID: "p1", Name: "Mug v2", Price: 1200, Stock: 3}))

	p1, err := products.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Mug v2", p1.Name)
	require.Equal(t, domain.Money(1200), p1.Price)

	list, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "p1", list[0].ID)

	_, err = products.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	require.NoError(t, users.Upsert(ctx, domain.User{ID: "u1", Email: "ana@example.com", Name: "Ana"}))
	u, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", u.Email)

	_, err = users.Get(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
