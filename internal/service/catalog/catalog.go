// Package catalog ведёт справочники клиентов и продуктов.
package catalog

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// Service управляет клиентами и продуктами.
type Service struct {
	uow               domain.UnitOfWork
	logger            *log.Entry
	now               func() time.Time
	newID             func() string
	lowStockThreshold int
}

type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLowStockThreshold задаёт порог LowStock по умолчанию.
func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.lowStockThreshold = threshold
		}
	}
}

func NewService(uow domain.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:               uow,
		logger:            log.WithField("component", "catalog"),
		now:               func() time.Time { return time.Now().UTC() },
		newID:             uuid.NewString,
		lowStockThreshold: domain.DefaultLowStockThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
