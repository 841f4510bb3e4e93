package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	maxCustomerNameLen = 100
	maxPhoneLen        = 20
	maxAddressLen      = 200
)

var (
	ErrEmailInvalid   = fmt.Errorf("%w: email is malformed", ErrValidation)
	ErrPhoneTooLong   = fmt.Errorf("%w: phone is too long", ErrValidation)
	ErrAddressTooLong = fmt.Errorf("%w: address is too long", ErrValidation)
)

// Customer — клиент ресторана.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName возвращает "Имя Фамилия".
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Normalize приводит контакты к каноничному виду; email сравнивается без учёта регистра.
func (c *Customer) Normalize() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Address = strings.TrimSpace(c.Address)
}

func (c *Customer) Validate() error {
	var errs []error
	if c.FirstName == "" {
		errs = append(errs, ErrNameRequired)
	}
	if len([]rune(c.FirstName)) > maxCustomerNameLen || len([]rune(c.LastName)) > maxCustomerNameLen {
		errs = append(errs, ErrNameTooLong)
	}
	if len(c.Phone) > maxPhoneLen {
		errs = append(errs, ErrPhoneTooLong)
	}
	if len([]rune(c.Address)) > maxAddressLen {
		errs = append(errs, ErrAddressTooLong)
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			errs = append(errs, ErrEmailInvalid)
		}
	}
	return errors.Join(errs...)
}

// CustomerFilter задаёт выборку клиентов.
type CustomerFilter struct {
	ActiveOnly   bool
	NameContains string
}

func (f CustomerFilter) Matches(c Customer) bool {
	if f.ActiveOnly && !c.Active {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(c.FullName()), strings.ToLower(f.NameContains)) {
		return false
	}
	return true
}
