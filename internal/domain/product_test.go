package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func makeProduct() domain.Product {
	return domain.Product{
		ID:     "product-1",
		Name:   "Ceviche",
		Price:  dec("25.00"),
		Stock:  10,
		Unit:   "portion",
		Active: true,
	}
}

func TestProductDebitCredit(t *testing.T) {
	p := makeProduct()

	if err := p.Debit(2); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if p.Stock != 8 {
		t.Fatalf("stock = %d, want 8", p.Stock)
	}

	err := p.Debit(9)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 9 || stockErr.Available != 8 || stockErr.ProductName != "Ceviche" {
		t.Fatalf("unexpected diagnostics: %+v", stockErr)
	}
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatal("expected ErrInsufficientStock kind")
	}
	if p.Stock != 8 {
		t.Fatalf("failed debit must not change stock, got %d", p.Stock)
	}

	if err := p.Credit(2); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if p.Stock != 10 {
		t.Fatalf("stock = %d, want 10", p.Stock)
	}

	if err := p.Debit(0); !errors.Is(err, domain.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
	if err := p.Credit(-1); !errors.Is(err, domain.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
}

func TestProductValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *domain.Product)
		want error
	}{
		{name: "ok", mut: func(p *domain.Product) {}, want: nil},
		{name: "empty name", mut: func(p *domain.Product) { p.Name = "" }, want: domain.ErrNameRequired},
		{name: "zero price", mut: func(p *domain.Product) { p.Price = dec("0") }, want: domain.ErrPriceInvalid},
		{name: "three decimals", mut: func(p *domain.Product) { p.Price = dec("1.005") }, want: domain.ErrPriceInvalid},
		{name: "price above column limit", mut: func(p *domain.Product) { p.Price = dec("100000000.00") }, want: domain.ErrAmountTooLarge},
		{name: "negative stock", mut: func(p *domain.Product) { p.Stock = -1 }, want: domain.ErrStockNegative},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := makeProduct()
			tc.mut(&p)
			err := p.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestProductFilterMatches(t *testing.T) {
	p := makeProduct()
	five := 5
	ten := 10

	if !(domain.ProductFilter{NameContains: "vich"}).Matches(p) {
		t.Fatal("expected case-insensitive name match")
	}
	if (domain.ProductFilter{MaxStock: &five}).Matches(p) {
		t.Fatal("stock 10 must not match threshold 5")
	}
	if !(domain.ProductFilter{MaxStock: &ten}).Matches(p) {
		t.Fatal("threshold is inclusive")
	}
	p.Active = false
	if (domain.ProductFilter{ActiveOnly: true}).Matches(p) {
		t.Fatal("inactive product must not match ActiveOnly")
	}
}
