package cart_test

import (
	"context"
	"errors"
	"math"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/domain"
	"github.com/AdanSoria/Project-Shop/internal/service/cart"
	"github.com/AdanSoria/Project-Shop/internal/storage/memory"
)

func newService(t *testing.T) *cart.Service {
	t.Helper()

	products := memory.NewProductRepository(
		domain.Product{ID: "p1", Name: "Mug", Price: 1000},
		domain.Product{ID: "p2", Name: "Poster", Price: 24990},
	)
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return cart.NewService(memory.NewCartRepository(), products, log.NewEntry(logger))
}

func TestService_GetCreatesEmptyCart(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	first, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", first.UserID)
	require.NotNil(t, first.Items)
	require.Empty(t, first.Items)

	second, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = svc.Get(ctx, "  ")
	require.ErrorIs(t, err, domain.ErrUserRequired)
}

func TestService_AddItemMergesQuantities(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)
	got, err := svc.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)

	require.Equal(t, []domain.CartItem{
		{ProductID: "p1", Quantity: 5},
		{ProductID: "p2", Quantity: 1},
	}, got.Items)
}

func TestService_AddItemValidation(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		productID string
		qty       int
		wantErr   error
		wantKind  domain.Kind
	}{
		{name: "zero quantity", productID: "p1", qty: 0, wantErr: domain.ErrItemQtyInvalid, wantKind: domain.KindValidation},
		{name: "negative quantity", productID: "p1", qty: -2, wantErr: domain.ErrItemQtyInvalid, wantKind: domain.KindValidation},
		{name: "above line cap", productID: "p1", qty: domain.MaxLineQuantity + 1, wantErr: domain.ErrItemQtyInvalid, wantKind: domain.KindValidation},
		{name: "max int", productID: "p1", qty: math.MaxInt, wantErr: domain.ErrItemQtyInvalid, wantKind: domain.KindValidation},
		{name: "missing product id", productID: "", qty: 1, wantErr: domain.ErrProductIDRequired, wantKind: domain.KindValidation},
		{name: "unknown product", productID: "nope", qty: 1, wantErr: domain.ErrProductNotFound, wantKind: domain.KindNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, "u-validation", tc.productID, tc.qty)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantKind, domain.KindOf(err))
		})
	}

	got, err := svc.Get(ctx, "u-validation")
	require.NoError(t, err)
	require.Empty(t, got.Items, "failed adds must not touch the cart")
}

func TestService_AddItemCapsMergedQuantity(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", domain.MaxLineQuantity-2)
	require.NoError(t, err)

	got, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	require.Equal(t, domain.MaxLineQuantity, got.Items[0].Quantity)

	_, err = svc.AddItem(ctx, "u1", "p1", 1)
	require.ErrorIs(t, err, domain.ErrItemQtyInvalid)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.AddItem(ctx, "u1", "p1", domain.MaxLineQuantity)
	require.ErrorIs(t, err, domain.ErrItemQtyInvalid)

	got, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []domain.CartItem{{ProductID: "p1", Quantity: domain.MaxLineQuantity}}, got.Items)
}

func TestService_SetQuantityCap(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	got, err := svc.SetQuantity(ctx, "u1", "p1", domain.MaxLineQuantity)
	require.NoError(t, err)
	require.Equal(t, domain.MaxLineQuantity, got.Items[0].Quantity)

	for _, qty := range []int{domain.MaxLineQuantity + 1, math.MaxInt} {
		_, err = svc.SetQuantity(ctx, "u1", "p1", qty)
		require.ErrorIs(t, err, domain.ErrItemQtyInvalid)
		require.Equal(t, domain.KindValidation, domain.KindOf(err))
	}

	got, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.MaxLineQuantity, got.Items[0].Quantity)
}

func TestService_SetQuantity(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	got, err := svc.SetQuantity(ctx, "u1", "p1", 7)
	require.NoError(t, err)
	require.Equal(t, 7, got.Items[0].Quantity)

	got, err = svc.SetQuantity(ctx, "u1", "p1", 0)
	require.NoError(t, err)
	require.Equal(t, []domain.CartItem{{ProductID: "p2", Quantity: 1}}, got.Items)

	got, err = svc.SetQuantity(ctx, "u1", "p2", -1)
	require.NoError(t, err)
	require.Empty(t, got.Items)

	_, err = svc.SetQuantity(ctx, "u1", "p1", 3)
	require.ErrorIs(t, err, domain.ErrCartItemNotFound)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestService_RemoveAndClearAreIdempotent(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	got, err := svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, []domain.CartItem{{ProductID: "p2", Quantity: 1}}, got.Items)

	got, err = svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	cleared, err := svc.Clear(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, cleared.Items)
	require.Equal(t, got.ID, cleared.ID)

	cleared, err = svc.Clear(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, cleared.Items)
}

type failingCarts struct {
	domain.CartRepository
}

func (failingCarts) ReplaceItems(context.Context, string, []domain.CartItem) (domain.Cart, error) {
	return domain.Cart{}, errors.New("disk full")
}

func TestService_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	products := memory.NewProductRepository(domain.Product{ID: "p1", Price: 100})
	svc := cart.NewService(failingCarts{memory.NewCartRepository()}, products, nil)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.Error(t, err)
	require.Equal(t, domain.KindInternal, domain.KindOf(err))
}
