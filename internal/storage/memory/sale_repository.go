package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type saleRepository struct {
	v view
}

func (r saleRepository) Get(_ context.Context, id string) (domain.Sale, error) {
	defer r.v.rlock()()

	s, ok := r.v.st().sales[id]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return s.Clone(), nil
}

func (r saleRepository) GetForUpdate(ctx context.Context, id string) (domain.Sale, error) {
	return r.Get(ctx, id)
}

func (r saleRepository) Create(_ context.Context, s domain.Sale) error {
	defer r.v.lock()()

	if _, exists := r.v.st().sales[s.ID]; exists {
		return fmt.Errorf("%w: sale %s already exists", domain.ErrValidation, s.ID)
	}
	// Храним копию, чтобы вызывающий код не мутировал позиции в хранилище.
	remember(r.v, r.v.st().sales, s.ID)
	r.v.st().sales[s.ID] = s.Clone()
	return nil
}

func (r saleRepository) Save(_ context.Context, s domain.Sale) error {
	defer r.v.lock()()

	if _, ok := r.v.st().sales[s.ID]; !ok {
		return domain.ErrSaleNotFound
	}
	remember(r.v, r.v.st().sales, s.ID)
	r.v.st().sales[s.ID] = s.Clone()
	return nil
}

func (r saleRepository) Delete(_ context.Context, id string) error {
	defer r.v.lock()()

	if _, ok := r.v.st().sales[id]; !ok {
		return domain.ErrSaleNotFound
	}
	remember(r.v, r.v.st().sales, id)
	delete(r.v.st().sales, id)
	return nil
}

func (r saleRepository) List(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	defer r.v.rlock()()

	result := r.matching(filter)
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Sale{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	for i := range result {
		result[i] = result[i].Clone()
	}
	return result, nil
}

func (r saleRepository) Count(_ context.Context, filter domain.SaleFilter) (int, error) {
	defer r.v.rlock()()
	return len(r.matching(filter)), nil
}

func (r saleRepository) SumTotals(_ context.Context, filter domain.SaleFilter) (decimal.Decimal, error) {
	defer r.v.rlock()()

	sum := decimal.Zero
	for _, s := range r.matching(filter) {
		sum = sum.Add(s.Total)
	}
	return sum, nil
}

func (r saleRepository) matching(filter domain.SaleFilter) []domain.Sale {
	result := make([]domain.Sale, 0, len(r.v.st().sales))
	for _, s := range r.v.st().sales {
		if filter.Matches(s) {
			result = append(result, s)
		}
	}
	return result
}

var _ domain.SaleRepository = saleRepository{}
