package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// state — всё содержимое хранилища.
type state struct {
	customers map[string]domain.Customer
	products  map[string]domain.Product
	sales     map[string]domain.Sale
	outbox    map[string]outboxRecord
	timeline  map[string][]domain.TimelineEvent
	outboxSeq int64
}

func newState() *state {
	return &state{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		sales:     make(map[string]domain.Sale),
		outbox:    make(map[string]outboxRecord),
		timeline:  make(map[string][]domain.TimelineEvent),
	}
}

// undoLog копит обратные операции для ключей, изменённых внутри WithinTx.
// Откат стоит пропорционально числу записей транзакции, а не размеру хранилища.
type undoLog struct {
	ops []func()
}

func (u *undoLog) rollback() {
	for i := len(u.ops) - 1; i >= 0; i-- {
		u.ops[i]()
	}
	u.ops = nil
}

// remember сохраняет прежнее значение ключа до записи. Вне транзакции ничего не делает.
// Значения в картах заменяются целиком и не мутируются на месте, поэтому копии достаточно.
func remember[V any](v view, m map[string]V, key string) {
	if v.undo == nil {
		return
	}
	prev, existed := m[key]
	v.undo.ops = append(v.undo.ops, func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

// Store реализует UnitOfWork в памяти процесса, для локальной разработки и тестов.
// Транзакции сериализуются одной блокировкой на запись.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

// view — доступ к состоянию. Внутри WithinTx блокировка уже взята, а записи журналируются в undo.
type view struct {
	store *Store
	undo  *undoLog
}

func (v view) inTx() bool { return v.undo != nil }

func (v view) rlock() func() {
	if v.inTx() {
		return func() {}
	}
	v.store.mu.RLock()
	return v.store.mu.RUnlock
}

func (v view) lock() func() {
	if v.inTx() {
		return func() {}
	}
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

func (v view) st() *state { return v.store.state }

type repositories struct {
	v view
}

func (r repositories) Customers() domain.CustomerRepository { return customerRepository{r.v} }
func (r repositories) Products() domain.ProductRepository   { return productRepository{r.v} }
func (r repositories) Sales() domain.SaleRepository         { return saleRepository{r.v} }
func (r repositories) Outbox() domain.OutboxRepository      { return outboxRepository{r.v} }
func (r repositories) Timeline() domain.TimelineRepository  { return timelineRepository{r.v} }

func (s *Store) Customers() domain.CustomerRepository { return s.repos().Customers() }
func (s *Store) Products() domain.ProductRepository   { return s.repos().Products() }
func (s *Store) Sales() domain.SaleRepository         { return s.repos().Sales() }
func (s *Store) Outbox() domain.OutboxRepository      { return s.repos().Outbox() }
func (s *Store) Timeline() domain.TimelineRepository  { return s.repos().Timeline() }

func (s *Store) repos() repositories { return repositories{v: view{store: s}} }

// WithinTx выполняет fn под блокировкой хранилища; при ошибке или панике состояние откатывается.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	undo := &undoLog{}
	seq := s.state.outboxSeq
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("memory tx panic: %v", p)
		}
		if err != nil {
			undo.rollback()
			s.state.outboxSeq = seq
		}
	}()

	return fn(ctx, repositories{v: view{store: s, undo: undo}})
}

var _ domain.UnitOfWork = (*Store)(nil)
