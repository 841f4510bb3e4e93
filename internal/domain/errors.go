package domain

import (
	"errors"
	"fmt"
)

// Базовые категории ошибок. Транспортный слой различает их через errors.Is.
var (
	// ErrNotFound — сущность (клиент, продукт, продажа) отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrValidation — некорректный ввод: пустое обязательное поле, неактивная сущность, дубликат.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock — на складе меньше единиц, чем запрошено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition — запрошенный переход статуса отсутствует в таблице переходов.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidState — операция запрещена в текущем статусе продажи.
	ErrInvalidState = errors.New("operation not allowed in current sale status")
)

var (
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrSaleNotFound     = fmt.Errorf("sale %w", ErrNotFound)

	ErrCustomerRequired     = fmt.Errorf("%w: customer_id is required", ErrValidation)
	ErrCustomerInactive     = fmt.Errorf("%w: customer is inactive", ErrValidation)
	ErrProductRequired      = fmt.Errorf("%w: product_id is required", ErrValidation)
	ErrProductInactive      = fmt.Errorf("%w: product is inactive", ErrValidation)
	ErrItemsRequired        = fmt.Errorf("%w: sale must contain at least one item", ErrValidation)
	ErrQuantityInvalid      = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	ErrPriceInvalid         = fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	ErrAmountTooLarge       = fmt.Errorf("%w: amount exceeds 99999999.99", ErrValidation)
	ErrStockNegative        = fmt.Errorf("%w: stock must be non-negative", ErrValidation)
	ErrPaymentMethodInvalid = fmt.Errorf("%w: unsupported payment method", ErrValidation)
	ErrStatusInvalid        = fmt.Errorf("%w: unsupported sale status", ErrValidation)
	ErrTotalsMismatch       = fmt.Errorf("%w: sale totals do not match line items", ErrValidation)
	ErrNameRequired         = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong          = fmt.Errorf("%w: name is too long", ErrValidation)
	ErrDescriptionTooLong   = fmt.Errorf("%w: description is too long", ErrValidation)
	ErrUnitTooLong          = fmt.Errorf("%w: unit of measure is too long", ErrValidation)
	ErrNoteTooLong          = fmt.Errorf("%w: note is too long", ErrValidation)
	ErrProductNameTaken     = fmt.Errorf("%w: active product with this name already exists", ErrValidation)
	ErrEmailTaken           = fmt.Errorf("%w: email is already registered", ErrValidation)
	ErrPhoneTaken           = fmt.Errorf("%w: phone is already registered", ErrValidation)
	ErrDateRangeInvalid     = fmt.Errorf("%w: date range start must not be after end", ErrValidation)

	// Изменять и удалять можно только продажи в статусе PENDING.
	ErrSaleNotPending = fmt.Errorf("%w: only pending sales can be modified", ErrInvalidState)
)

var ErrOutboxPublish = errors.New("outbox publish failed")

// InsufficientStockError несёт диагностику по продукту, которому не хватило остатка.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// TransitionError описывает отклонённый переход статуса.
type TransitionError struct {
	From SaleStatus
	To   SaleStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IsNotFound проверяет, относится ли ошибка к категории "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation проверяет, является ли ошибка ошибкой входных данных (включая нехватку остатка).
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientStock)
}

// IsConflict проверяет, вызвана ли ошибка текущим статусом продажи, а не вводом.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrInvalidState)
}
