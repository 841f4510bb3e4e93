package domain

import "time"

// Типы событий в истории продажи.
const (
	TimelineSaleCreated   = "SaleCreated"
	TimelineItemsReplaced = "ItemsReplaced"
	TimelineStatusChanged = "StatusChanged"
	TimelineStockReturned = "StockReturned"
	TimelineSaleDeleted   = "SaleDeleted"
)

// TimelineEvent описывает событие в жизненном цикле продажи.
type TimelineEvent struct {
	SaleID   string
	Type     string
	Reason   string
	Occurred time.Time
}
