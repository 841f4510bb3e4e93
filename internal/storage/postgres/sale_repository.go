package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const saleColumns = `s.id, s.customer_id, s.status, s.payment_method, s.note, s.subtotal, s.surcharge, s.total, s.created_at, s.updated_at`

type saleRepository struct {
	c conn
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var (
		s      domain.Sale
		status string
		method string
	)
	if err := row.Scan(&s.ID, &s.CustomerID, &status, &method, &s.Note,
		&s.Subtotal, &s.Surcharge, &s.Total, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Sale{}, err
	}
	s.Status = domain.SaleStatus(status)
	s.PaymentMethod = domain.PaymentMethod(method)
	return s, nil
}

func (r *saleRepository) Get(ctx context.Context, id string) (domain.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales s WHERE s.id = $1`, id)
}

// GetForUpdate блокирует строку продажи до конца транзакции.
func (r *saleRepository) GetForUpdate(ctx context.Context, id string) (domain.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales s WHERE s.id = $1 FOR UPDATE`, id)
}

func (r *saleRepository) get(ctx context.Context, query, id string) (domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	sale, err := scanSale(r.c.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, domain.ErrSaleNotFound
		}
		return domain.Sale{}, fmt.Errorf("select sale: %w", err)
	}

	items, err := loadSaleItems(ctx, r.c.q, sale.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (r *saleRepository) Create(ctx context.Context, s domain.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.c.atomic(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO sales (
				id, customer_id, status, payment_method, note, subtotal, surcharge, total, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			s.ID, s.CustomerID, string(s.Status), string(s.PaymentMethod), s.Note,
			s.Subtotal, s.Surcharge, s.Total, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: sale %s already exists", domain.ErrValidation, s.ID)
			}
			return fmt.Errorf("insert sale: %w", err)
		}
		return insertSaleItems(ctx, q, s)
	})
}

// Save перезаписывает шапку продажи и полностью заменяет позиции.
func (r *saleRepository) Save(ctx context.Context, s domain.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.c.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE sales
			SET customer_id = $2,
			    status = $3,
			    payment_method = $4,
			    note = $5,
			    subtotal = $6,
			    surcharge = $7,
			    total = $8,
			    updated_at = $9
			WHERE id = $1
		`,
			s.ID, s.CustomerID, string(s.Status), string(s.PaymentMethod), s.Note,
			s.Subtotal, s.Surcharge, s.Total, s.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		if err := requireAffected(res, domain.ErrSaleNotFound); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, s.ID); err != nil {
			return fmt.Errorf("delete sale items: %w", err)
		}
		return insertSaleItems(ctx, q, s)
	})
}

func (r *saleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Позиции удаляются каскадом.
	res, err := r.c.q.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return requireAffected(res, domain.ErrSaleNotFound)
}

func (r *saleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args := saleWhere(filter)
	query := `SELECT ` + saleColumns + ` FROM sales s` + where + ` ORDER BY s.created_at DESC, s.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	rows.Close()

	for i := range result {
		items, err := loadSaleItems(ctx, r.c.q, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}

func (r *saleRepository) Count(ctx context.Context, filter domain.SaleFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args := saleWhere(filter)
	var n int
	if err := r.c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales s`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

func (r *saleRepository) SumTotals(ctx context.Context, filter domain.SaleFilter) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args := saleWhere(filter)
	var sum decimal.Decimal
	if err := r.c.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(s.total), 0) FROM sales s`+where, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum sale totals: %w", err)
	}
	return sum, nil
}

// saleWhere строит WHERE по фильтру; параметры нумеруются с $1.
func saleWhere(filter domain.SaleFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CustomerID != "" {
		conds = append(conds, "s.customer_id = "+next(filter.CustomerID))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			placeholders = append(placeholders, next(string(st)))
		}
		conds = append(conds, "s.status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "s.created_at >= "+next(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "s.created_at <= "+next(filter.CreatedTo.UTC()))
	}
	if filter.ProductID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM sale_items i WHERE i.sale_id = s.id AND i.product_id = "+next(filter.ProductID)+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func insertSaleItems(ctx context.Context, q querier, s domain.Sale) error {
	for pos, item := range s.Items {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, sale_id, position, product_id, product_name, quantity, unit_price, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, s.ID, pos, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal,
		); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return nil
}

func loadSaleItems(ctx context.Context, q querier, saleID string) ([]domain.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price, subtotal
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}
	return items, nil
}

var _ domain.SaleRepository = (*saleRepository)(nil)
