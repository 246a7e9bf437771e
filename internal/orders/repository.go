package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/catalog"
	"github.com/seafood-erp/seafood-erp/internal/parties/customers"
	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
}

// TxRepository exposes the statements the engine runs inside one transaction. Catalog and
// customer reads go through the same transaction so a rollback undoes reservations too.
type TxRepository interface {
	GetCustomer(ctx context.Context, id int64) (customers.Customer, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	AdjustStock(ctx context.Context, id int64, delta decimal.Decimal, mv catalog.Movement) (catalog.Product, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	InsertLine(ctx context.Context, l Line) (Line, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	ListLines(ctx context.Context, orderID int64) ([]Line, error)
	DeleteLine(ctx context.Context, orderID, lineID int64) (Line, error)
	UpdateStatus(ctx context.Context, id, version int64, status Status) (Order, error)
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) (Order, error)
}

const (
	orderColumns = `o.id, o.reference, o.customer_id, COALESCE(c.name, ''), o.status, o.notes, o.total, o.version, o.created_by, o.created_at, o.updated_at`
	orderFrom    = ` FROM orders o LEFT JOIN customers c ON c.id = o.customer_id`
	lineColumns  = `id, order_id, product_id, product_name, quantity, unit_price, lot_code, notes, created_at`
	returning    = ` RETURNING id, reference, customer_id, '', status, notes, total, version, created_by, created_at, updated_at`
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	*catalog.Store
	customers customers.Repository
	tx        pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			Store:     catalog.NewStore(tx),
			customers: customers.NewQuerierRepository(tx),
			tx:        tx,
		})
	})
}

// Get loads an order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("orders: order %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: get: %w", err)
	}
	o.Lines, err = listLines(ctx, r.pool, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns a page of orders, newest first, without lines.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, `o.status = $`+strconv.Itoa(len(args)))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		clauses = append(clauses, `o.customer_id = $`+strconv.Itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, `o.created_at >= $`+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, `o.created_at < $`+strconv.Itoa(len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("orders: count: %w", err)
	}
	args = append(args, shared.ClampPageSize(filter.Limit), filter.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+orderFrom+where+
		` ORDER BY o.created_at DESC, o.id DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("orders: scan: %w", err)
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *txRepo) GetCustomer(ctx context.Context, id int64) (customers.Customer, error) {
	return r.customers.Get(ctx, id)
}

func (r *txRepo) InsertOrder(ctx context.Context, o Order) (Order, error) {
	created, err := scanOrder(r.tx.QueryRow(ctx, `INSERT INTO orders (reference, customer_id, status, notes, total, created_by)
VALUES ($1,$2,$3,$4,$5,$6)`+returning, o.Reference, o.CustomerID, string(o.Status), o.Notes, o.Total, o.CreatedBy))
	if err != nil {
		return Order{}, fmt.Errorf("orders: insert order: %w", db.Classify(err))
	}
	return created, nil
}

func (r *txRepo) InsertLine(ctx context.Context, l Line) (Line, error) {
	created, err := scanLine(r.tx.QueryRow(ctx, `INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price, lot_code, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+lineColumns, l.OrderID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.LotCode, l.Notes))
	if err != nil {
		return Line{}, fmt.Errorf("orders: insert line: %w", db.Classify(err))
	}
	return created, nil
}

// GetOrderForUpdate locks the order row for the rest of the transaction.
func (r *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id=$1 FOR UPDATE OF o`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("orders: order %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: lock order: %w", db.Classify(err))
	}
	return o, nil
}

func (r *txRepo) ListLines(ctx context.Context, orderID int64) ([]Line, error) {
	return listLines(ctx, r.tx, orderID)
}

func (r *txRepo) DeleteLine(ctx context.Context, orderID, lineID int64) (Line, error) {
	l, err := scanLine(r.tx.QueryRow(ctx, `DELETE FROM order_lines WHERE id=$1 AND order_id=$2 RETURNING `+lineColumns, lineID, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, fmt.Errorf("orders: line %d of order %d: %w", lineID, orderID, shared.ErrNotFound)
	}
	if err != nil {
		return Line{}, fmt.Errorf("orders: delete line: %w", db.Classify(err))
	}
	return l, nil
}

// UpdateStatus writes the new status only when version still matches.
func (r *txRepo) UpdateStatus(ctx context.Context, id, version int64, status Status) (Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, `UPDATE orders SET status=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2`+returning, id, version, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("orders: order %d version %d: %w", id, version, shared.ErrConcurrentModification)
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: update status: %w", db.Classify(err))
	}
	return o, nil
}

func (r *txRepo) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) (Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, `UPDATE orders SET total=$2, updated_at=NOW() WHERE id=$1`+returning, id, total))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("orders: order %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: update total: %w", db.Classify(err))
	}
	return o, nil
}

func listLines(ctx context.Context, q db.Querier, orderID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list lines: %w", db.Classify(err))
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("orders: scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.Reference, &o.CustomerID, &o.CustomerName, &status, &o.Notes, &o.Total, &o.Version, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.LotCode, &l.Notes, &l.CreatedAt)
	return l, err
}
