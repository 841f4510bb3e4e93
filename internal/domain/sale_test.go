package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lineItem(id, productID string, qty int, price string) domain.LineItem {
	p := dec(price)
	return domain.LineItem{
		ID:          id,
		ProductID:   productID,
		ProductName: "product " + productID,
		Quantity:    qty,
		UnitPrice:   p,
		Subtotal:    domain.LineSubtotal(p, qty),
	}
}

func makeSale() domain.Sale {
	s := domain.NewSale("sale-1", "customer-1", domain.PaymentMethodCash, "", time.Now().UTC())
	s.AddItem(lineItem("item-1", "product-1", 2, "25.00"))
	return s
}

func TestSaleTotals_CevicheScenario(t *testing.T) {
	s := makeSale()

	if !s.Subtotal.Equal(dec("50.00")) {
		t.Fatalf("subtotal = %s, want 50.00", s.Subtotal)
	}
	if !s.Surcharge.Equal(dec("9.00")) {
		t.Fatalf("surcharge = %s, want 9.00", s.Surcharge)
	}
	if !s.Total.Equal(dec("59.00")) {
		t.Fatalf("total = %s, want 59.00", s.Total)
	}
	if err := s.ValidateInvariants(); err != nil {
		t.Fatalf("unexpected invariant error: %v", err)
	}
}

func TestSaleTotals_Rounding(t *testing.T) {
	s := domain.NewSale("sale-1", "customer-1", domain.PaymentMethodCard, "", time.Now())
	// 8.25 * 0.18 = 1.485, округление вверх до 1.49
	s.AddItem(lineItem("i1", "p1", 3, "2.75"))

	if got := s.Surcharge.StringFixed(2); got != "1.49" {
		t.Fatalf("surcharge = %s, want 1.49", got)
	}
	if got := s.Total.StringFixed(2); got != "9.74" {
		t.Fatalf("total = %s, want 9.74", got)
	}
}

func TestSaleItems_OrderPreservedAndRecomputed(t *testing.T) {
	s := makeSale()
	s.AddItem(lineItem("item-2", "product-2", 1, "5.00"))
	s.AddItem(lineItem("item-3", "product-3", 4, "2.50"))

	ids := []string{}
	for _, it := range s.Items {
		ids = append(ids, it.ID)
	}
	if len(ids) != 3 || ids[0] != "item-1" || ids[1] != "item-2" || ids[2] != "item-3" {
		t.Fatalf("unexpected item order: %v", ids)
	}
	if !s.Subtotal.Equal(dec("65.00")) {
		t.Fatalf("subtotal = %s, want 65.00", s.Subtotal)
	}

	replacement := []domain.LineItem{s.Items[2], s.Items[0]}
	s.ReplaceItems(replacement)
	replacement[0].Quantity = 99
	if len(s.Items) != 2 || s.Items[0].ID != "item-3" || s.Items[1].ID != "item-1" {
		t.Fatalf("unexpected items after replace: %+v", s.Items)
	}
	if s.Items[0].Quantity != 4 {
		t.Fatal("replaced items must not share the caller's slice")
	}
	if !s.Subtotal.Equal(dec("60.00")) || !s.Total.Equal(dec("70.80")) {
		t.Fatalf("after replace subtotal=%s total=%s", s.Subtotal, s.Total)
	}

	s.ReplaceItems(nil)
	if len(s.Items) != 0 || !s.Total.IsZero() || !s.Surcharge.IsZero() {
		t.Fatalf("expected empty sale with zero totals, got %+v", s)
	}
}

func TestSaleValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(s *domain.Sale)
		want error
	}{
		{name: "no customer", mut: func(s *domain.Sale) { s.CustomerID = "" }, want: domain.ErrCustomerRequired},
		{name: "bad payment method", mut: func(s *domain.Sale) { s.PaymentMethod = "BITCOIN" }, want: domain.ErrPaymentMethodInvalid},
		{name: "bad status", mut: func(s *domain.Sale) { s.Status = "LOST" }, want: domain.ErrStatusInvalid},
		{name: "zero quantity", mut: func(s *domain.Sale) { s.Items[0].Quantity = 0 }, want: domain.ErrQuantityInvalid},
		{name: "tampered total", mut: func(s *domain.Sale) { s.Total = dec("1.00") }, want: domain.ErrTotalsMismatch},
		{name: "tampered item subtotal", mut: func(s *domain.Sale) { s.Items[0].Subtotal = dec("49.99") }, want: domain.ErrTotalsMismatch},
		{name: "line above column limit", mut: func(s *domain.Sale) { s.AddItem(lineItem("item-2", "product-2", 2, "60000000.00")) }, want: domain.ErrAmountTooLarge},
		{name: "total with surcharge above column limit", mut: func(s *domain.Sale) { s.AddItem(lineItem("item-2", "product-2", 1000, "90000.00")) }, want: domain.ErrAmountTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := makeSale()
			tc.mut(&s)
			err := s.ValidateInvariants()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestSaleTransitionTo(t *testing.T) {
	s := makeSale()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := s.TransitionTo(domain.SaleStatusConfirmed, at); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if s.Status != domain.SaleStatusConfirmed || !s.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected sale after confirm: %+v", s)
	}

	err := s.TransitionTo(domain.SaleStatusPending, at)
	var terr *domain.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if terr.From != domain.SaleStatusConfirmed || terr.To != domain.SaleStatusPending {
		t.Fatalf("unexpected transition error: %+v", terr)
	}
	if s.Status != domain.SaleStatusConfirmed {
		t.Fatalf("status must not change on rejected transition, got %s", s.Status)
	}
}

func TestSaleClone_DoesNotShareItems(t *testing.T) {
	s := makeSale()
	c := s.Clone()
	c.Items[0].Quantity = 99

	if s.Items[0].Quantity != 2 {
		t.Fatalf("clone mutated source items: %+v", s.Items[0])
	}
}

func TestSaleFilterMatches(t *testing.T) {
	s := makeSale()
	s.CreatedAt = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		filter domain.SaleFilter
		want   bool
	}{
		{name: "empty", filter: domain.SaleFilter{}, want: true},
		{name: "customer match", filter: domain.SaleFilter{CustomerID: "customer-1"}, want: true},
		{name: "customer mismatch", filter: domain.SaleFilter{CustomerID: "customer-2"}, want: false},
		{name: "status match", filter: domain.SaleFilter{Statuses: []domain.SaleStatus{domain.SaleStatusConfirmed, domain.SaleStatusPending}}, want: true},
		{name: "status mismatch", filter: domain.SaleFilter{Statuses: []domain.SaleStatus{domain.SaleStatusDelivered}}, want: false},
		{name: "product match", filter: domain.SaleFilter{ProductID: "product-1"}, want: true},
		{name: "product mismatch", filter: domain.SaleFilter{ProductID: "product-9"}, want: false},
		{
			name:   "range inclusive bounds",
			filter: domain.SaleFilter{CreatedFrom: s.CreatedAt, CreatedTo: s.CreatedAt},
			want:   true,
		},
		{
			name:   "range after",
			filter: domain.SaleFilter{CreatedFrom: s.CreatedAt.Add(time.Second)},
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(s); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}
