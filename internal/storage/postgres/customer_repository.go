package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const customerColumns = `id, first_name, last_name, phone, email, address, active, created_at, updated_at`

type customerRepository struct {
	c conn
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.Address, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *customerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	c, err := scanCustomer(r.c.q.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

func (r *customerRepository) Create(ctx context.Context, c domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID, c.FirstName, c.LastName, c.Phone, c.Email, c.Address, c.Active, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return customerWriteError("insert customer", err)
	}
	return nil
}

func (r *customerRepository) Save(ctx context.Context, c domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.c.q.ExecContext(ctx, `
		UPDATE customers
		SET first_name = $2,
		    last_name = $3,
		    phone = $4,
		    email = $5,
		    address = $6,
		    active = $7,
		    updated_at = $8
		WHERE id = $1
	`, c.ID, c.FirstName, c.LastName, c.Phone, c.Email, c.Address, c.Active, c.UpdatedAt.UTC())
	if err != nil {
		return customerWriteError("update customer", err)
	}
	return requireAffected(res, domain.ErrCustomerNotFound)
}

func (r *customerRepository) List(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + customerColumns + ` FROM customers WHERE ($1 = FALSE OR active)`
	args := []any{filter.ActiveOnly}
	if filter.NameContains != "" {
		query += ` AND (first_name || ' ' || last_name) ILIKE $2`
		args = append(args, "%"+escapeLike(filter.NameContains)+"%")
	}
	query += ` ORDER BY last_name, first_name, id`

	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return result, nil
}

func (r *customerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE email = $1)`, email)
}

func (r *customerRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE phone = $1)`, phone)
}

func (r *customerRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var n int
	if err := r.c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (r *customerRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.c.q.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer exists: %w", err)
	}
	return exists, nil
}

func customerWriteError(op string, err error) error {
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case "customers_email_key":
			return domain.ErrEmailTaken
		case "customers_phone_key":
			return domain.ErrPhoneTaken
		default:
			return fmt.Errorf("%w: customer already exists", domain.ErrValidation)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

// escapeLike экранирует спецсимволы LIKE в пользовательском вводе.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
