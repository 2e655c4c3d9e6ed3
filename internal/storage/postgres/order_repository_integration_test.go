package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

func TestOrderRepository_PostgresCreateGetList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder("order-1", "user-1", now.Add(-2*time.Minute))
	order2 := sampleOrder("order-2", "user-1", now.Add(-time.Minute))

	require.NoError(t, repo.Create(ctx, order1))
	require.NoError(t, repo.Create(ctx, order2))

	got, err := repo.Get(ctx, order1.ID)
	require.NoError(t, err)
	require.Equal(t, order1.UserID, got.UserID)
	require.Equal(t, order1.Total, got.Total)
	require.Equal(t, order1.Items, got.Items)
	require.Equal(t, "pi_order-1", got.PaymentReference)

	listed, err := repo.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, order2.ID, listed[0].ID)

	all, err := repo.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all[1].Items, 2)
}

func TestOrderRepository_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing-order")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	base := sampleOrder("order-dup", "user-2", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, base))
	require.ErrorIs(t, repo.Create(ctx, base), domain.ErrOrderAlreadyExists)
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}

func sampleOrder(id, userID string, createdAt time.Time) domain.Order {
	items := []domain.OrderItem{
		{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: 150},
		{ProductID: "p2", Name: "Poster", Quantity: 1, UnitPrice: 999},
	}

	return domain.Order{
		ID:                id,
		UserID:            userID,
		Status:            domain.OrderStatusPaid,
		Currency:          "mxn",
		Total:             domain.ItemsTotal(items),
		Items:             items,
		PaymentReference:  "pi_" + id,
		CheckoutSessionID: "cs_" + id,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}
