package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const maxNoteLen = 255

// LineItem — позиция продажи. Цена и имя продукта фиксируются на момент добавления.
type LineItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Sale — агрегат продажи. Позиции принадлежат только ей и хранятся в порядке добавления.
type Sale struct {
	ID            string
	CustomerID    string
	Status        SaleStatus
	PaymentMethod PaymentMethod
	Note          string
	Items         []LineItem
	Subtotal      decimal.Decimal
	Surcharge     decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSale создаёт пустую продажу в статусе PENDING.
func NewSale(id, customerID string, method PaymentMethod, note string, now time.Time) Sale {
	return Sale{
		ID:            id,
		CustomerID:    customerID,
		Status:        SaleStatusPending,
		PaymentMethod: method,
		Note:          note,
		Subtotal:      decimal.Zero,
		Surcharge:     decimal.Zero,
		Total:         decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddItem добавляет позицию в конец и пересчитывает итоги.
func (s *Sale) AddItem(item LineItem) {
	s.Items = append(s.Items, item)
	s.RecomputeTotals()
}

// ReplaceItems заменяет все позиции разом. Пустой список обнуляет итоги.
func (s *Sale) ReplaceItems(items []LineItem) {
	s.Items = append([]LineItem(nil), items...)
	s.RecomputeTotals()
}

// RecomputeTotals пересчитывает подытог, надбавку и итог по текущим позициям.
func (s *Sale) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, it := range s.Items {
		subtotal = subtotal.Add(it.Subtotal)
	}
	s.Subtotal = RoundMoney(subtotal)
	s.Surcharge = ComputeSurcharge(s.Subtotal)
	s.Total = s.Subtotal.Add(s.Surcharge)
}

// TransitionTo переводит продажу в новый статус согласно таблице переходов.
func (s *Sale) TransitionTo(to SaleStatus, now time.Time) error {
	if err := CheckTransition(s.Status, to); err != nil {
		return err
	}
	s.Status = to
	s.UpdatedAt = now
	return nil
}

// IsPending сообщает, что продажу ещё можно редактировать и удалять.
func (s Sale) IsPending() bool {
	return s.Status == SaleStatusPending
}

// HoldsStock сообщает, что списанный под продажу остаток ещё не возвращён на склад.
func (s Sale) HoldsStock() bool {
	return s.Status != SaleStatusCancelled
}

// TotalUnits возвращает суммарное количество единиц по всем позициям.
func (s Sale) TotalUnits() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Clone возвращает копию, не разделяющую слайс позиций с исходной продажей.
func (s Sale) Clone() Sale {
	dst := s
	dst.Items = append([]LineItem(nil), s.Items...)
	return dst
}

// ValidateInvariants проверяет согласованность агрегата.
func (s *Sale) ValidateInvariants() error {
	var errs []error
	if s.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if !s.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if !s.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if len([]rune(s.Note)) > maxNoteLen {
		errs = append(errs, ErrNoteTooLong)
	}

	subtotal := decimal.Zero
	for _, it := range s.Items {
		if it.ProductID == "" {
			errs = append(errs, ErrProductRequired)
		}
		if it.Quantity < 1 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if !ValidPrice(it.UnitPrice) {
			errs = append(errs, ErrPriceInvalid)
		}
		if !it.Subtotal.Equal(LineSubtotal(it.UnitPrice, it.Quantity)) {
			errs = append(errs, ErrTotalsMismatch)
		}
		if !WithinMaxAmount(it.Subtotal) {
			errs = append(errs, ErrAmountTooLarge)
		}
		subtotal = subtotal.Add(it.Subtotal)
	}

	surcharge := ComputeSurcharge(subtotal)
	if !s.Subtotal.Equal(subtotal) || !s.Surcharge.Equal(surcharge) || !s.Total.Equal(subtotal.Add(surcharge)) {
		errs = append(errs, ErrTotalsMismatch)
	}
	if !WithinMaxAmount(s.Total) {
		errs = append(errs, ErrAmountTooLarge)
	}
	return errors.Join(errs...)
}
