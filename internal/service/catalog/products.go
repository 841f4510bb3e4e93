package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// ProductInput содержит редактируемые поля продукта.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Unit        string
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.Unit = in.Unit
	p.Normalize()
}

// CreateProduct добавляет активный продукт. Имя уникально среди активных продуктов.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	var created domain.Product
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		now := s.now()
		p := domain.Product{ID: s.newID(), Active: true, CreatedAt: now, UpdatedAt: now}
		in.apply(&p)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := checkNameFree(ctx, tx.Products(), p.Name); err != nil {
			return err
		}
		if err := tx.Products().Create(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("product create rejected")
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{"product_id": created.ID, "name": created.Name}).Info("product created")
	return created, nil
}

// UpdateProduct обновляет продукт под блокировкой строки. Цена уже проданных позиций не меняется.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	var updated domain.Product
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		p, err := tx.Products().GetForUpdate(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		prevName := p.Name
		in.apply(&p)
		if err := p.Validate(); err != nil {
			return err
		}
		if p.Active && !strings.EqualFold(prevName, p.Name) {
			if err := checkNameFree(ctx, tx.Products(), p.Name); err != nil {
				return err
			}
		}
		p.UpdatedAt = s.now()
		if err := tx.Products().Save(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", id).Warn("product update rejected")
		return domain.Product{}, err
	}
	return updated, nil
}

// SetStock выставляет абсолютный остаток продукта.
func (s *Service) SetStock(ctx context.Context, id string, stock int) (domain.Product, error) {
	if stock < 0 {
		return domain.Product{}, domain.ErrStockNegative
	}

	var (
		updated  domain.Product
		previous int
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		p, err := tx.Products().GetForUpdate(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		previous = p.Stock
		p.Stock = stock
		p.UpdatedAt = s.now()
		if err := tx.Products().Save(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": updated.ID,
		"from":       previous,
		"to":         stock,
	}).Info("product stock adjusted")
	return updated, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.uow.Products().Get(ctx, strings.TrimSpace(id))
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	return s.uow.Products().List(ctx, domain.ProductFilter{ActiveOnly: activeOnly})
}

// SearchProducts ищет активные продукты по подстроке в имени.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return s.uow.Products().List(ctx, domain.ProductFilter{ActiveOnly: true, NameContains: strings.TrimSpace(query)})
}

// LowStock возвращает активные продукты с остатком <= threshold. При threshold < 0 берётся порог по умолчанию.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	if threshold < 0 {
		threshold = s.lowStockThreshold
	}
	return s.uow.Products().List(ctx, domain.ProductFilter{ActiveOnly: true, MaxStock: &threshold})
}

// LowStockThreshold возвращает порог по умолчанию.
func (s *Service) LowStockThreshold() int {
	return s.lowStockThreshold
}

func (s *Service) ActivateProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.setProductActive(ctx, id, true)
}

// DeactivateProduct убирает продукт из продажи; возвраты остатка по нему продолжают работать.
func (s *Service) DeactivateProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.setProductActive(ctx, id, false)
}

func (s *Service) setProductActive(ctx context.Context, id string, active bool) (domain.Product, error) {
	var result domain.Product
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		p, err := tx.Products().GetForUpdate(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if active && !p.Active {
			if err := checkNameFree(ctx, tx.Products(), p.Name); err != nil {
				return err
			}
		}
		p.Active = active
		p.UpdatedAt = s.now()
		if err := tx.Products().Save(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.WithFields(log.Fields{"product_id": result.ID, "active": active}).Info("product activity changed")
	return result, nil
}

func checkNameFree(ctx context.Context, repo domain.ProductRepository, name string) error {
	taken, err := repo.ExistsActiveByName(ctx, name)
	if err != nil {
		return fmt.Errorf("check product name: %w", err)
	}
	if taken {
		return domain.ErrProductNameTaken
	}
	return nil
}
