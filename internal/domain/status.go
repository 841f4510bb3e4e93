package domain

import "strings"

// SaleStatus — состояние продажи в жизненном цикле.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusConfirmed SaleStatus = "CONFIRMED"
	SaleStatusDelivered SaleStatus = "DELIVERED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// saleTransitions — полная таблица разрешённых переходов. Всё, чего нет в таблице, запрещено.
var saleTransitions = map[SaleStatus]map[SaleStatus]struct{}{
	SaleStatusPending: {
		SaleStatusConfirmed: {},
		SaleStatusCancelled: {},
	},
	SaleStatusConfirmed: {
		SaleStatusDelivered: {},
		SaleStatusCancelled: {},
	},
	SaleStatusDelivered: {},
	SaleStatusCancelled: {},
}

// AllSaleStatuses возвращает статусы в порядке жизненного цикла.
func AllSaleStatuses() []SaleStatus {
	return []SaleStatus{SaleStatusPending, SaleStatusConfirmed, SaleStatusDelivered, SaleStatusCancelled}
}

// Valid проверяет, что статус известен.
func (s SaleStatus) Valid() bool {
	_, ok := saleTransitions[s]
	return ok
}

// Terminal сообщает, что из статуса нет ни одного перехода.
func (s SaleStatus) Terminal() bool {
	return s.Valid() && len(saleTransitions[s]) == 0
}

// CanTransition сообщает, разрешён ли переход from → to.
func CanTransition(from, to SaleStatus) bool {
	_, ok := saleTransitions[from][to]
	return ok
}

// CheckTransition возвращает *TransitionError для запрещённого перехода.
func CheckTransition(from, to SaleStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// ParseSaleStatus разбирает статус без учёта регистра.
func ParseSaleStatus(raw string) (SaleStatus, error) {
	s := SaleStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrStatusInvalid
	}
	return s, nil
}

// PaymentMethod — способ оплаты продажи.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	// Мобильные кошельки.
	PaymentMethodYape PaymentMethod = "YAPE"
	PaymentMethodPlin PaymentMethod = "PLIN"
)

// AllPaymentMethods возвращает поддерживаемые способы оплаты.
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodYape, PaymentMethodPlin}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodYape, PaymentMethodPlin:
		return true
	default:
		return false
	}
}

// ParsePaymentMethod разбирает способ оплаты без учёта регистра.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", ErrPaymentMethodInvalid
	}
	return m, nil
}
