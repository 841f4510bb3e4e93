package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SaleFilter задаёт выборку продаж. Нулевые поля не ограничивают выборку.
type SaleFilter struct {
	CustomerID string
	ProductID  string
	Statuses   []SaleStatus
	// CreatedFrom и CreatedTo включительны.
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
	Offset      int
}

// Matches проверяет продажу на соответствие фильтру (без учёта Limit/Offset).
func (f SaleFilter) Matches(s Sale) bool {
	if f.CustomerID != "" && s.CustomerID != f.CustomerID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if s.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.CreatedFrom.IsZero() && s.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && s.CreatedAt.After(f.CreatedTo) {
		return false
	}
	if f.ProductID != "" {
		for _, it := range s.Items {
			if it.ProductID == f.ProductID {
				return true
			}
		}
		return false
	}
	return true
}

// CustomerRepository хранит клиентов.
type CustomerRepository interface {
	Get(ctx context.Context, id string) (Customer, error)
	Create(ctx context.Context, c Customer) error
	Save(ctx context.Context, c Customer) error
	List(ctx context.Context, filter CustomerFilter) ([]Customer, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// ProductRepository хранит продукты и их остатки.
type ProductRepository interface {
	Get(ctx context.Context, id string) (Product, error)
	// GetForUpdate читает продукт с блокировкой до конца транзакции.
	GetForUpdate(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, p Product) error
	Save(ctx context.Context, p Product) error
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	ExistsActiveByName(ctx context.Context, name string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// SaleRepository хранит продажи вместе с позициями.
type SaleRepository interface {
	Get(ctx context.Context, id string) (Sale, error)
	GetForUpdate(ctx context.Context, id string) (Sale, error)
	Create(ctx context.Context, s Sale) error
	Save(ctx context.Context, s Sale) error
	Delete(ctx context.Context, id string) error
	// List возвращает продажи от новых к старым.
	List(ctx context.Context, filter SaleFilter) ([]Sale, error)
	Count(ctx context.Context, filter SaleFilter) (int, error)
	SumTotals(ctx context.Context, filter SaleFilter) (decimal.Decimal, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит историю изменений продажи.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, saleID string) ([]TimelineEvent, error)
}

// Repositories — набор репозиториев, видящих одно и то же состояние.
type Repositories interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Sales() SaleRepository
	Outbox() OutboxRepository
	Timeline() TimelineRepository
}

// UnitOfWork выполняет fn атомарно: либо фиксируются все изменения, либо ни одно.
// Репозитории вне WithinTx работают без транзакции.
type UnitOfWork interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Attempts      int
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
