package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// Repository abstracts customer persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	SetActive(ctx context.Context, id int64, active bool) (Customer, error)
	Delete(ctx context.Context, id int64) error
	HasOrders(ctx context.Context, id int64) (bool, error)
}

const customerColumns = `id, name, rut, email, phone, address, active, created_at, updated_at`

type repository struct {
	db   db.Querier
	pool *pgxpool.Pool
}

// NewRepository constructs a pool backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// NewQuerierRepository binds a Repository to an open transaction or connection. WithTx on it runs
// fn on the same querier.
func NewQuerierRepository(q db.Querier) Repository {
	return &repository{db: q}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("customers: get: %w", err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var clauses []string
	var args []any
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, `(name ILIKE $`+n+` OR rut ILIKE $`+n+` OR email ILIKE $`+n+`)`)
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, `active = $`+strconv.Itoa(len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	args = append(args, shared.ClampPageSize(filter.Limit), filter.Offset)
	query := `SELECT ` + customerColumns + ` FROM customers` + where +
		` ORDER BY name ASC, id ASC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()
	items := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("customers: scan: %w", err)
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	created, err := scanCustomer(r.db.QueryRow(ctx, `INSERT INTO customers (name, rut, email, phone, address, active)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+customerColumns, c.Name, c.RUT, c.Email, c.Phone, c.Address, c.Active))
	if err != nil {
		return Customer{}, uniqueError("create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, c Customer) (Customer, error) {
	updated, err := scanCustomer(r.db.QueryRow(ctx, `UPDATE customers
SET name=$2, rut=$3, email=$4, phone=$5, address=$6, updated_at=NOW()
WHERE id=$1
RETURNING `+customerColumns, c.ID, c.Name, c.RUT, c.Email, c.Phone, c.Address))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customers: customer %d: %w", c.ID, shared.ErrNotFound)
	}
	if err != nil {
		return Customer{}, uniqueError("update", err)
	}
	return updated, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `UPDATE customers SET active=$2, updated_at=NOW() WHERE id=$1 RETURNING `+customerColumns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("customers: set active: %w", err)
	}
	return c, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("customers: delete %d: %w", id, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) HasOrders(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE customer_id=$1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("customers: has orders: %w", err)
	}
	return exists, nil
}

func uniqueError(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err, "customers_rut_key"):
		return fmt.Errorf("customers: %s: rut already registered: %w", op, shared.ErrDuplicate)
	case db.IsUniqueViolation(err, "customers_email_key"):
		return fmt.Errorf("customers: %s: email already registered: %w", op, shared.ErrDuplicate)
	}
	return fmt.Errorf("customers: %s: %w", op, db.Classify(err))
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.RUT, &c.Email, &c.Phone, &c.Address, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
