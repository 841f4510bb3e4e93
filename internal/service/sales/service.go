// Package sales управляет жизненным циклом продажи: создание против живого склада,
// редактирование в PENDING, переходы статусов и возврат остатков.
package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
)

const (
	opCreate       = "create"
	opUpdate       = "update"
	opChangeStatus = "change_status"
	opDelete       = "delete"
)

// CreateRequest содержит данные для новой продажи.
type CreateRequest struct {
	CustomerID    string
	PaymentMethod domain.PaymentMethod
	Note          string
	Items         []LineItemRequest
}

// UpdateRequest полностью заменяет позиции, способ оплаты и примечание продажи.
type UpdateRequest struct {
	SaleID        string
	PaymentMethod domain.PaymentMethod
	Note          string
	Items         []LineItemRequest
}

// Service — менеджер жизненного цикла продаж.
type Service struct {
	uow      domain.UnitOfWork
	logger   *log.Entry
	metrics  *metrics.SalesMetrics
	now      func() time.Time
	location *time.Location
	newID    func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics включает запись метрик. Без опции метрики не пишутся.
func WithMetrics(m *metrics.SalesMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation задаёт часовой пояс ресторана для "продаж за сегодня" и помесячной выручки.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithIDGenerator подменяет генератор идентификаторов продаж и позиций.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService создаёт менеджер продаж поверх unit of work.
func NewService(uow domain.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:      uow,
		logger:   log.WithField("component", "sales"),
		now:      func() time.Time { return time.Now().UTC() },
		location: time.UTC,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create создаёт продажу в PENDING и списывает остатки по всем позициям.
// Либо проходят все позиции, либо продажа не создаётся и склад не меняется.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Sale, error) {
	start := time.Now()
	defer s.observe(opCreate, start)

	customerID := strings.TrimSpace(req.CustomerID)
	note := strings.TrimSpace(req.Note)
	if err := validateHeader(req.PaymentMethod, req.Items); err != nil {
		return domain.Sale{}, s.fail(opCreate, err, log.Fields{"customer_id": customerID})
	}
	if customerID == "" {
		return domain.Sale{}, s.fail(opCreate, domain.ErrCustomerRequired, nil)
	}

	var (
		created domain.Sale
		ledger  *stockLedger
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		customer, err := tx.Customers().Get(ctx, customerID)
		if err != nil {
			return err
		}
		if !customer.Active {
			return domain.ErrCustomerInactive
		}

		now := s.now()
		sale := domain.NewSale(s.newID(), customer.ID, req.PaymentMethod, note, now)

		ledger = newStockLedger(tx.Products())
		if err := ledger.Lock(ctx, productIDs(req.Items)); err != nil {
			return err
		}
		if err := s.addLineItems(ctx, ledger, &sale, req.Items); err != nil {
			return err
		}
		if err := sale.ValidateInvariants(); err != nil {
			return err
		}
		if err := ledger.Flush(ctx); err != nil {
			return err
		}
		if err := tx.Sales().Create(ctx, sale); err != nil {
			return fmt.Errorf("persist sale: %w", err)
		}
		if err := s.recordEvent(ctx, tx, domain.EventSaleCreated, sale, "", now); err != nil {
			return err
		}
		if err := s.appendTimeline(ctx, tx, sale.ID, domain.TimelineSaleCreated,
			fmt.Sprintf("created with %d item(s), total %s", len(sale.Items), sale.Total.StringFixed(2)), now); err != nil {
			return err
		}
		created = sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, s.fail(opCreate, err, log.Fields{"customer_id": customerID})
	}

	if s.metrics != nil {
		s.metrics.RecordSaleCreated()
		s.metrics.RecordStockMovement(ledger.debited, ledger.credited)
	}
	s.logger.WithFields(log.Fields{
		"sale_id":     created.ID,
		"customer_id": created.CustomerID,
		"total":       created.Total.StringFixed(2),
	}).Info("sale created")
	return created, nil
}

// Update заменяет позиции PENDING-продажи: сначала весь старый остаток возвращается,
// затем новые позиции проверяются и списываются заново.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (domain.Sale, error) {
	start := time.Now()
	defer s.observe(opUpdate, start)

	saleID := strings.TrimSpace(req.SaleID)
	note := strings.TrimSpace(req.Note)
	if err := validateHeader(req.PaymentMethod, req.Items); err != nil {
		return domain.Sale{}, s.fail(opUpdate, err, log.Fields{"sale_id": saleID})
	}

	var (
		updated domain.Sale
		ledger  *stockLedger
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		sale, err := tx.Sales().GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !sale.IsPending() {
			return domain.ErrSaleNotPending
		}

		ledger = newStockLedger(tx.Products())
		lockIDs := append(itemProductIDs(sale.Items), productIDs(req.Items)...)
		if err := ledger.Lock(ctx, lockIDs); err != nil {
			return err
		}
		if err := ledger.CreditItems(ctx, sale.Items); err != nil {
			return err
		}
		items, err := s.buildLineItems(ctx, ledger, req.Items)
		if err != nil {
			return err
		}
		sale.ReplaceItems(items)

		now := s.now()
		sale.PaymentMethod = req.PaymentMethod
		sale.Note = note
		sale.UpdatedAt = now
		if err := sale.ValidateInvariants(); err != nil {
			return err
		}
		if err := ledger.Flush(ctx); err != nil {
			return err
		}
		if err := tx.Sales().Save(ctx, sale); err != nil {
			return fmt.Errorf("persist sale: %w", err)
		}
		if err := s.recordEvent(ctx, tx, domain.EventSaleUpdated, sale, "", now); err != nil {
			return err
		}
		if err := s.appendTimeline(ctx, tx, sale.ID, domain.TimelineItemsReplaced,
			fmt.Sprintf("items replaced, %d item(s), total %s", len(sale.Items), sale.Total.StringFixed(2)), now); err != nil {
			return err
		}
		updated = sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, s.fail(opUpdate, err, log.Fields{"sale_id": saleID})
	}

	if s.metrics != nil {
		s.metrics.RecordSaleUpdated()
		s.metrics.RecordStockMovement(ledger.debited, ledger.credited)
	}
	s.logger.WithFields(log.Fields{
		"sale_id": updated.ID,
		"total":   updated.Total.StringFixed(2),
	}).Info("sale updated")
	return updated, nil
}

// ChangeStatus переводит продажу по таблице переходов. При отмене остаток возвращается на склад.
func (s *Service) ChangeStatus(ctx context.Context, saleID string, to domain.SaleStatus) (domain.Sale, error) {
	start := time.Now()
	defer s.observe(opChangeStatus, start)

	saleID = strings.TrimSpace(saleID)
	if !to.Valid() {
		return domain.Sale{}, s.fail(opChangeStatus, domain.ErrStatusInvalid, log.Fields{"sale_id": saleID, "to": to})
	}

	var (
		changed  domain.Sale
		from     domain.SaleStatus
		credited int
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		sale, err := tx.Sales().GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		from = sale.Status
		if err := domain.CheckTransition(from, to); err != nil {
			return err
		}

		now := s.now()
		if to == domain.SaleStatusCancelled && sale.HoldsStock() {
			ledger := newStockLedger(tx.Products())
			if err := ledger.Lock(ctx, itemProductIDs(sale.Items)); err != nil {
				return err
			}
			if err := ledger.CreditItems(ctx, sale.Items); err != nil {
				return err
			}
			if err := ledger.Flush(ctx); err != nil {
				return err
			}
			credited = ledger.credited
		}

		if err := sale.TransitionTo(to, now); err != nil {
			return err
		}
		if err := tx.Sales().Save(ctx, sale); err != nil {
			return fmt.Errorf("persist sale: %w", err)
		}
		if err := s.recordEvent(ctx, tx, domain.EventSaleStatusChanged, sale, from, now); err != nil {
			return err
		}
		if err := s.appendTimeline(ctx, tx, sale.ID, domain.TimelineStatusChanged,
			fmt.Sprintf("%s -> %s", from, to), now); err != nil {
			return err
		}
		if credited > 0 {
			if err := s.appendTimeline(ctx, tx, sale.ID, domain.TimelineStockReturned,
				fmt.Sprintf("%d unit(s) returned to stock", credited), now); err != nil {
				return err
			}
		}
		changed = sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, s.fail(opChangeStatus, err, log.Fields{"sale_id": saleID, "from": from, "to": to})
	}

	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(from), string(to))
		s.metrics.RecordStockMovement(0, credited)
	}
	s.logger.WithFields(log.Fields{
		"sale_id": changed.ID,
		"from":    from,
		"to":      to,
	}).Info("sale status changed")
	return changed, nil
}

// Delete удаляет PENDING-продажу, предварительно вернув весь её остаток.
func (s *Service) Delete(ctx context.Context, saleID string) error {
	start := time.Now()
	defer s.observe(opDelete, start)

	saleID = strings.TrimSpace(saleID)

	credited := 0
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		sale, err := tx.Sales().GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !sale.IsPending() {
			return domain.ErrSaleNotPending
		}

		ledger := newStockLedger(tx.Products())
		if err := ledger.Lock(ctx, itemProductIDs(sale.Items)); err != nil {
			return err
		}
		if err := ledger.CreditItems(ctx, sale.Items); err != nil {
			return err
		}
		if err := ledger.Flush(ctx); err != nil {
			return err
		}
		if err := tx.Sales().Delete(ctx, sale.ID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}

		now := s.now()
		if err := s.recordEvent(ctx, tx, domain.EventSaleDeleted, sale, "", now); err != nil {
			return err
		}
		if err := s.appendTimeline(ctx, tx, sale.ID, domain.TimelineSaleDeleted,
			fmt.Sprintf("deleted, %d unit(s) returned to stock", ledger.credited), now); err != nil {
			return err
		}
		credited = ledger.credited
		return nil
	})
	if err != nil {
		return s.fail(opDelete, err, log.Fields{"sale_id": saleID})
	}

	if s.metrics != nil {
		s.metrics.RecordSaleDeleted()
		s.metrics.RecordStockMovement(0, credited)
	}
	s.logger.WithField("sale_id", saleID).Info("sale deleted")
	return nil
}

func validateHeader(method domain.PaymentMethod, items []LineItemRequest) error {
	if !method.Valid() {
		return domain.ErrPaymentMethodInvalid
	}
	if len(items) == 0 {
		return domain.ErrItemsRequired
	}
	return nil
}

func (s *Service) recordEvent(ctx context.Context, tx domain.Repositories, eventType string, sale domain.Sale, previous domain.SaleStatus, at time.Time) error {
	payload, err := json.Marshal(domain.NewSaleEvent(eventType, sale, previous, at))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeSale,
		AggregateID:   sale.ID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
	return nil
}

func (s *Service) appendTimeline(ctx context.Context, tx domain.Repositories, saleID, eventType, reason string, at time.Time) error {
	if err := tx.Timeline().Append(ctx, domain.TimelineEvent{
		SaleID:   saleID,
		Type:     eventType,
		Reason:   reason,
		Occurred: at,
	}); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
	return nil
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

// fail логирует и учитывает ошибку операции; ошибки ввода и статуса пишутся в Warn, остальное в Error.
func (s *Service) fail(operation string, err error, fields log.Fields) error {
	kind := errorKind(err)
	if s.metrics != nil {
		s.metrics.RecordFailure(operation, kind)
	}

	entry := s.logger.WithError(err).WithFields(fields).WithField("operation", operation)
	if kind == "internal" {
		entry.Error("sale operation failed")
	} else {
		entry.Warn("sale operation rejected")
	}
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
