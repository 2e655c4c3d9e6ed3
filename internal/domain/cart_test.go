package domain

import "testing"

func TestCart_LineAndClone(t *testing.T) {
	cart := Cart{ID: "c1", UserID: "u1", Items: []CartItem{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 3}}}

	if idx := cart.Line("p2"); idx != 1 {
		t.Fatalf("expected line 1, got %d", idx)
	}
	if idx := cart.Line("missing"); idx != -1 {
		t.Fatalf("expected -1 for missing product, got %d", idx)
	}

	clone := cart.Clone()
	clone.Items[0].Quantity = 99
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("clone must not share items with original")
	}
}

func TestCloneCartItems_NilBecomesEmpty(t *testing.T) {
	items := CloneCartItems(nil)
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestValidLineQuantity(t *testing.T) {
	cases := map[int]bool{
		-1:                  false,
		0:                   false,
		1:                   true,
		MaxLineQuantity:     true,
		MaxLineQuantity + 1: false,
	}
	for qty, want := range cases {
		if got := ValidLineQuantity(qty); got != want {
			t.Fatalf("ValidLineQuantity(%d) = %v, want %v", qty, got, want)
		}
	}
}
