package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxProductNameLen        = 100
	maxProductDescriptionLen = 255
	maxUnitLen               = 50

	// DefaultLowStockThreshold используется, когда порог не задан явно.
	DefaultLowStockThreshold = 5
)

// Product — позиция меню с ценой и складским остатком.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Unit        string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Normalize убирает пробелы по краям текстовых полей.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Unit = strings.TrimSpace(p.Unit)
}

// Validate проверяет поля продукта. Уникальность имени проверяет каталог.
func (p *Product) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if len([]rune(p.Name)) > maxProductNameLen {
		errs = append(errs, ErrNameTooLong)
	}
	if len([]rune(p.Description)) > maxProductDescriptionLen {
		errs = append(errs, ErrDescriptionTooLong)
	}
	if len([]rune(p.Unit)) > maxUnitLen {
		errs = append(errs, ErrUnitTooLong)
	}
	if !ValidPrice(p.Price) {
		errs = append(errs, ErrPriceInvalid)
	}
	if !WithinMaxAmount(p.Price) {
		errs = append(errs, ErrAmountTooLarge)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}
	return errors.Join(errs...)
}

// Debit списывает quantity единиц. Остаток не может уйти в минус.
func (p *Product) Debit(quantity int) error {
	if quantity < 1 {
		return ErrQuantityInvalid
	}
	if p.Stock < quantity {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.Stock,
		}
	}
	p.Stock -= quantity
	return nil
}

// Credit возвращает quantity единиц на склад.
func (p *Product) Credit(quantity int) error {
	if quantity < 1 {
		return ErrQuantityInvalid
	}
	p.Stock += quantity
	return nil
}

// ProductFilter задаёт выборку продуктов.
type ProductFilter struct {
	ActiveOnly   bool
	NameContains string
	// MaxStock != nil ограничивает выборку продуктами с Stock <= *MaxStock.
	MaxStock *int
}

// Matches проверяет продукт на соответствие фильтру.
func (f ProductFilter) Matches(p Product) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if f.MaxStock != nil && p.Stock > *f.MaxStock {
		return false
	}
	return true
}
