package catalog

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// CustomerInput содержит редактируемые поля клиента.
type CustomerInput struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Address   string
}

func (in CustomerInput) apply(c *domain.Customer) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Phone = in.Phone
	c.Email = in.Email
	c.Address = in.Address
	c.Normalize()
}

// CreateCustomer регистрирует активного клиента. Email и телефон уникальны, если заданы.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (domain.Customer, error) {
	var created domain.Customer
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		now := s.now()
		c := domain.Customer{ID: s.newID(), Active: true, CreatedAt: now, UpdatedAt: now}
		in.apply(&c)
		if err := c.Validate(); err != nil {
			return err
		}
		if err := checkContactsFree(ctx, tx.Customers(), c.Email, c.Phone); err != nil {
			return err
		}
		if err := tx.Customers().Create(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("customer create rejected")
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", created.ID).Info("customer created")
	return created, nil
}

// UpdateCustomer обновляет поля клиента; уникальность перепроверяется только для изменённых контактов.
func (s *Service) UpdateCustomer(ctx context.Context, id string, in CustomerInput) (domain.Customer, error) {
	var updated domain.Customer
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		c, err := tx.Customers().Get(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		prevEmail, prevPhone := c.Email, c.Phone
		in.apply(&c)
		if err := c.Validate(); err != nil {
			return err
		}

		email, phone := c.Email, c.Phone
		if email == prevEmail {
			email = ""
		}
		if phone == prevPhone {
			phone = ""
		}
		if err := checkContactsFree(ctx, tx.Customers(), email, phone); err != nil {
			return err
		}

		c.UpdatedAt = s.now()
		if err := tx.Customers().Save(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("customer_id", id).Warn("customer update rejected")
		return domain.Customer{}, err
	}
	return updated, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return s.uow.Customers().Get(ctx, strings.TrimSpace(id))
}

func (s *Service) ListCustomers(ctx context.Context, activeOnly bool) ([]domain.Customer, error) {
	return s.uow.Customers().List(ctx, domain.CustomerFilter{ActiveOnly: activeOnly})
}

// SearchCustomers ищет по подстроке в имени или фамилии без учёта регистра.
func (s *Service) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	return s.uow.Customers().List(ctx, domain.CustomerFilter{NameContains: strings.TrimSpace(query)})
}

func (s *Service) ActivateCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return s.setCustomerActive(ctx, id, true)
}

// DeactivateCustomer запрещает новые продажи клиенту; существующие продажи не меняются.
func (s *Service) DeactivateCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return s.setCustomerActive(ctx, id, false)
}

func (s *Service) setCustomerActive(ctx context.Context, id string, active bool) (domain.Customer, error) {
	var result domain.Customer
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		c, err := tx.Customers().Get(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		c.Active = active
		c.UpdatedAt = s.now()
		if err := tx.Customers().Save(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	s.logger.WithFields(log.Fields{"customer_id": result.ID, "active": active}).Info("customer activity changed")
	return result, nil
}

func checkContactsFree(ctx context.Context, repo domain.CustomerRepository, email, phone string) error {
	if email != "" {
		taken, err := repo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}
	}
	if phone != "" {
		taken, err := repo.ExistsByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrPhoneTaken
		}
	}
	return nil
}
