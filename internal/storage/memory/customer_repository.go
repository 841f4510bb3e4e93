package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type customerRepository struct {
	v view
}

func (r customerRepository) Get(_ context.Context, id string) (domain.Customer, error) {
	defer r.v.rlock()()

	c, ok := r.v.st().customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return c, nil
}

func (r customerRepository) Create(_ context.Context, c domain.Customer) error {
	defer r.v.lock()()

	if _, exists := r.v.st().customers[c.ID]; exists {
		return fmt.Errorf("%w: customer %s already exists", domain.ErrValidation, c.ID)
	}
	remember(r.v, r.v.st().customers, c.ID)
	r.v.st().customers[c.ID] = c
	return nil
}

func (r customerRepository) Save(_ context.Context, c domain.Customer) error {
	defer r.v.lock()()

	if _, ok := r.v.st().customers[c.ID]; !ok {
		return domain.ErrCustomerNotFound
	}
	remember(r.v, r.v.st().customers, c.ID)
	r.v.st().customers[c.ID] = c
	return nil
}

// List возвращает клиентов, отсортированных по фамилии и имени.
func (r customerRepository) List(_ context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	defer r.v.rlock()()

	result := make([]domain.Customer, 0, len(r.v.st().customers))
	for _, c := range r.v.st().customers {
		if filter.Matches(c) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		if result[i].FirstName != result[j].FirstName {
			return result[i].FirstName < result[j].FirstName
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r customerRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	defer r.v.rlock()()

	for _, c := range r.v.st().customers {
		if email != "" && c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r customerRepository) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	defer r.v.rlock()()

	for _, c := range r.v.st().customers {
		if phone != "" && c.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r customerRepository) Count(_ context.Context) (int, error) {
	defer r.v.rlock()()
	return len(r.v.st().customers), nil
}

var _ domain.CustomerRepository = customerRepository{}
