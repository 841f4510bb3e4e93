package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const AggregateTypeSale = "sale"

// Типы событий продажи, публикуемых через outbox.
const (
	EventSaleCreated       = "SaleCreated"
	EventSaleUpdated       = "SaleUpdated"
	EventSaleStatusChanged = "SaleStatusChanged"
	EventSaleDeleted       = "SaleDeleted"
)

// SaleEvent — тело события продажи, сериализуемое в outbox.
type SaleEvent struct {
	EventType      string          `json:"event_type"`
	SaleID         string          `json:"sale_id"`
	CustomerID     string          `json:"customer_id"`
	Status         SaleStatus      `json:"status"`
	PreviousStatus SaleStatus      `json:"previous_status,omitempty"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Total          decimal.Decimal `json:"total"`
	Units          int             `json:"units"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewSaleEvent собирает событие по текущему состоянию продажи.
func NewSaleEvent(eventType string, s Sale, previous SaleStatus, at time.Time) SaleEvent {
	return SaleEvent{
		EventType:      eventType,
		SaleID:         s.ID,
		CustomerID:     s.CustomerID,
		Status:         s.Status,
		PreviousStatus: previous,
		PaymentMethod:  s.PaymentMethod,
		Total:          s.Total,
		Units:          s.TotalUnits(),
		OccurredAt:     at.UTC(),
	}
}
