package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func TestCustomerNormalizeAndValidate(t *testing.T) {
	c := domain.Customer{
		FirstName: "  Juan ",
		LastName:  "Pérez",
		Phone:     " 987654321 ",
		Email:     " Juan.Perez@Email.com ",
	}
	c.Normalize()

	if c.Email != "juan.perez@email.com" || c.Phone != "987654321" || c.FirstName != "Juan" {
		t.Fatalf("unexpected normalized customer: %+v", c)
	}
	if c.FullName() != "Juan Pérez" {
		t.Fatalf("FullName = %q", c.FullName())
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCustomerValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		c    domain.Customer
		want error
	}{
		{name: "missing first name", c: domain.Customer{LastName: "Martínez"}, want: domain.ErrNameRequired},
		{name: "bad email", c: domain.Customer{FirstName: "Ana", LastName: "M", Email: "not-an-email"}, want: domain.ErrEmailInvalid},
		{name: "long phone", c: domain.Customer{FirstName: "Ana", LastName: "M", Phone: "123456789012345678901"}, want: domain.ErrPhoneTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if !errors.Is(err, tc.want) || !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected %v (validation kind), got %v", tc.want, err)
			}
		})
	}
}
