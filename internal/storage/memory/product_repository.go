package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type productRepository struct {
	v view
}

func (r productRepository) Get(_ context.Context, id string) (domain.Product, error) {
	defer r.v.rlock()()

	p, ok := r.v.st().products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// GetForUpdate совпадает с Get: транзакции хранилища и так сериализованы.
func (r productRepository) GetForUpdate(ctx context.Context, id string) (domain.Product, error) {
	return r.Get(ctx, id)
}

func (r productRepository) Create(_ context.Context, p domain.Product) error {
	defer r.v.lock()()

	if _, exists := r.v.st().products[p.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", domain.ErrValidation, p.ID)
	}
	remember(r.v, r.v.st().products, p.ID)
	r.v.st().products[p.ID] = p
	return nil
}

func (r productRepository) Save(_ context.Context, p domain.Product) error {
	defer r.v.lock()()

	if _, ok := r.v.st().products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	remember(r.v, r.v.st().products, p.ID)
	r.v.st().products[p.ID] = p
	return nil
}

// List возвращает продукты по имени.
func (r productRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	defer r.v.rlock()()

	result := make([]domain.Product, 0, len(r.v.st().products))
	for _, p := range r.v.st().products {
		if filter.Matches(p) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ExistsActiveByName сравнивает имена без учёта регистра.
func (r productRepository) ExistsActiveByName(_ context.Context, name string) (bool, error) {
	defer r.v.rlock()()

	for _, p := range r.v.st().products {
		if p.Active && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r productRepository) Count(_ context.Context) (int, error) {
	defer r.v.rlock()()
	return len(r.v.st().products), nil
}

var _ domain.ProductRepository = productRepository{}
