package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const productColumns = `id, name, description, price, stock, unit, active, created_at, updated_at`

type productRepository struct {
	c conn
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Unit, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate блокирует строку продукта до конца транзакции.
func (r *productRepository) GetForUpdate(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *productRepository) get(ctx context.Context, query, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.c.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *productRepository) Create(ctx context.Context, p domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.Unit, p.Active, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return productWriteError("insert product", err)
	}
	return nil
}

func (r *productRepository) Save(ctx context.Context, p domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.c.q.ExecContext(ctx, `
		UPDATE products
		SET name = $2,
		    description = $3,
		    price = $4,
		    stock = $5,
		    unit = $6,
		    active = $7,
		    updated_at = $8
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.Unit, p.Active, p.UpdatedAt.UTC())
	if err != nil {
		return productWriteError("update product", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE ($1 = FALSE OR active)`
	args := []any{filter.ActiveOnly}
	if filter.NameContains != "" {
		args = append(args, "%"+escapeLike(filter.NameContains)+"%")
		query += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	if filter.MaxStock != nil {
		args = append(args, *filter.MaxStock)
		query += fmt.Sprintf(` AND stock <= $%d`, len(args))
	}
	query += ` ORDER BY name, id`

	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

func (r *productRepository) ExistsActiveByName(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.c.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE active AND LOWER(name) = LOWER($1))
	`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var n int
	if err := r.c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func productWriteError(op string, err error) error {
	if constraint, ok := uniqueConstraint(err); ok {
		if constraint == "products_active_name_key" {
			return domain.ErrProductNameTaken
		}
		return fmt.Errorf("%w: product already exists", domain.ErrValidation)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ domain.ProductRepository = (*productRepository)(nil)
