package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// LineItemRequest — запрошенная позиция: продукт и количество.
type LineItemRequest struct {
	ProductID string
	Quantity  int
}

func productIDs(items []LineItemRequest) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, strings.TrimSpace(it.ProductID))
	}
	return ids
}

func itemProductIDs(items []domain.LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// processLineItem проверяет позицию, списывает остаток и возвращает позицию с зафиксированной ценой.
// Порядок проверок: количество, существование, активность, остаток.
func processLineItem(ctx context.Context, ledger *stockLedger, req LineItemRequest, itemID string) (domain.LineItem, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return domain.LineItem{}, domain.ErrProductRequired
	}
	if req.Quantity < 1 {
		return domain.LineItem{}, domain.ErrQuantityInvalid
	}

	product, err := ledger.Product(ctx, productID)
	if err != nil {
		return domain.LineItem{}, err
	}
	if !product.Active {
		return domain.LineItem{}, domain.ErrProductInactive
	}
	// Копируем цену и имя до списания: позиция хранит снимок на момент продажи.
	price := product.Price
	name := product.Name

	if err := ledger.Debit(ctx, productID, req.Quantity); err != nil {
		return domain.LineItem{}, err
	}

	return domain.LineItem{
		ID:          itemID,
		ProductID:   productID,
		ProductName: name,
		Quantity:    req.Quantity,
		UnitPrice:   price,
		Subtotal:    domain.LineSubtotal(price, req.Quantity),
	}, nil
}

// buildLineItems прогоняет запросы через processLineItem в исходном порядке.
func (s *Service) buildLineItems(ctx context.Context, ledger *stockLedger, reqs []LineItemRequest) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(reqs))
	for i, req := range reqs {
		item, err := processLineItem(ctx, ledger, req, s.newID())
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// addLineItems добавляет позиции в новую продажу.
func (s *Service) addLineItems(ctx context.Context, ledger *stockLedger, sale *domain.Sale, reqs []LineItemRequest) error {
	items, err := s.buildLineItems(ctx, ledger, reqs)
	if err != nil {
		return err
	}
	for _, item := range items {
		sale.AddItem(item)
	}
	return nil
}
