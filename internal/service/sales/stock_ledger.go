package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// stockLedger накапливает списания и возвраты по продуктам внутри одной транзакции.
// Остатки меняются на копиях и пишутся в хранилище только в Flush, поэтому
// неудачная операция не оставляет частичных списаний.
type stockLedger struct {
	products domain.ProductRepository
	loaded   map[string]*domain.Product
	touched  map[string]struct{}
	debited  int
	credited int
}

func newStockLedger(products domain.ProductRepository) *stockLedger {
	return &stockLedger{
		products: products,
		loaded:   make(map[string]*domain.Product),
		touched:  make(map[string]struct{}),
	}
}

// Lock блокирует продукты в порядке ID, чтобы параллельные транзакции не взаимоблокировались.
// Отсутствующие продукты пропускаются: ошибку вернёт первая позиция, которая на них сошлётся.
func (l *stockLedger) Lock(ctx context.Context, productIDs []string) error {
	ids := uniqueSorted(productIDs)
	for _, id := range ids {
		if _, ok := l.loaded[id]; ok {
			continue
		}
		p, err := l.products.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("lock product %s: %w", id, err)
		}
		l.loaded[id] = &p
	}
	return nil
}

// Product возвращает рабочую копию продукта с учётом уже проведённых движений.
func (l *stockLedger) Product(ctx context.Context, id string) (*domain.Product, error) {
	if p, ok := l.loaded[id]; ok {
		return p, nil
	}
	p, err := l.products.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	l.loaded[id] = &p
	return &p, nil
}

// Debit списывает quantity единиц с рабочей копии продукта.
func (l *stockLedger) Debit(ctx context.Context, productID string, quantity int) error {
	p, err := l.Product(ctx, productID)
	if err != nil {
		return err
	}
	if err := p.Debit(quantity); err != nil {
		return err
	}
	l.touched[productID] = struct{}{}
	l.debited += quantity
	return nil
}

// Credit возвращает quantity единиц; неактивность продукта возврату не мешает.
func (l *stockLedger) Credit(ctx context.Context, productID string, quantity int) error {
	p, err := l.Product(ctx, productID)
	if err != nil {
		return err
	}
	if err := p.Credit(quantity); err != nil {
		return err
	}
	l.touched[productID] = struct{}{}
	l.credited += quantity
	return nil
}

// CreditItems возвращает на склад все позиции продажи.
func (l *stockLedger) CreditItems(ctx context.Context, items []domain.LineItem) error {
	for _, it := range items {
		if err := l.Credit(ctx, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("return stock for item %s: %w", it.ID, err)
		}
	}
	return nil
}

// Flush сохраняет изменённые остатки.
func (l *stockLedger) Flush(ctx context.Context) error {
	ids := make([]string, 0, len(l.touched))
	for id := range l.touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := l.products.Save(ctx, *l.loaded[id]); err != nil {
			return fmt.Errorf("save product %s stock: %w", id, err)
		}
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
