package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:       "order-1",
		UserID:   "user-1",
		Status:   domain.OrderStatusPaid,
		Currency: "mxn",
		Total:    2000,
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: 1000},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{
			name: "no user",
			mut:  func(o *domain.Order) { o.UserID = "" },
			want: domain.ErrUserRequired,
		},
		{
			name: "no currency",
			mut:  func(o *domain.Order) { o.Currency = "" },
			want: domain.ErrCurrencyRequired,
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
				o.Total = 0
			},
			want: domain.ErrItemsRequired,
		},
		{
			name: "zero quantity",
			mut: func(o *domain.Order) {
				o.Items[0].Quantity = 0
				o.Total = 0
			},
			want: domain.ErrItemQtyInvalid,
		},
		{
			name: "quantity above line cap",
			mut: func(o *domain.Order) {
				o.Items = o.Items[:1]
				o.Items[0].Quantity = domain.MaxLineQuantity + 1
				o.Total = domain.ItemsTotal(o.Items)
			},
			want: domain.ErrItemQtyInvalid,
		},
		{
			name: "total mismatch",
			mut:  func(o *domain.Order) { o.Total = 1999 },
			want: domain.ErrAmountMismatch,
		},
		{
			name: "unknown status",
			mut:  func(o *domain.Order) { o.Status = "shipped" },
			want: domain.ErrOrderStatusInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			found := false
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestItemsTotal(t *testing.T) {
	items := []domain.OrderItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 1000},
		{ProductID: "p2", Quantity: 3, UnitPrice: 333},
	}
	if got := domain.ItemsTotal(items); got != 2999 {
		t.Fatalf("expected 2999, got %d", got)
	}
}

func TestOrderIDForSession_Deterministic(t *testing.T) {
	a := domain.OrderIDForSession("cs_test_1")
	b := domain.OrderIDForSession("cs_test_1")
	c := domain.OrderIDForSession("cs_test_2")

	if a != b {
		t.Fatalf("expected same id for same session, got %s and %s", a, b)
	}
	if a == c {
		t.Fatalf("expected different ids for different sessions")
	}
}
