package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/platform/db"
)

// Repository exposes the read-only aggregations the dashboard is built from. Only fulfilled
// orders count as sales.
type Repository interface {
	SalesBetween(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error)
	OrderStatusCounts(ctx context.Context) (map[string]int, error)
	MonthlySales(ctx context.Context, since time.Time) ([]MonthlySales, error)
	TopProductsBySales(ctx context.Context, limit int) ([]ProductSales, error)
	TopProductsByQuantity(ctx context.Context, since time.Time, limit int) ([]ProductQuantity, error)
	StockItems(ctx context.Context) ([]StockItem, error)
	CustomerCounts(ctx context.Context) (PartyCounts, error)
	SupplierCounts(ctx context.Context) (PartyCounts, error)
	TopCustomers(ctx context.Context, limit int) ([]CustomerSpend, error)
}

// PGRepository implements Repository over Postgres.
type PGRepository struct {
	db db.Querier
}

// NewRepository constructs a repository on q.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{db: q}
}

var _ Repository = (*PGRepository)(nil)

const fulfilled = `'fulfilled'`

func (r *PGRepository) SalesBetween(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error) {
	var count int
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
FROM orders
WHERE status = `+fulfilled+` AND created_at >= $1 AND created_at < $2`, from, to).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("dashboard: sales between: %w", err)
	}
	return count, total, nil
}

func (r *PGRepository) OrderStatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("dashboard: status counts: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("dashboard: scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PGRepository) MonthlySales(ctx context.Context, since time.Time) ([]MonthlySales, error) {
	rows, err := r.db.Query(ctx, `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COALESCE(SUM(total), 0)
FROM orders
WHERE status = `+fulfilled+` AND created_at >= $1
GROUP BY month
ORDER BY month`, since)
	if err != nil {
		return nil, fmt.Errorf("dashboard: monthly sales: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (MonthlySales, error) {
		var m MonthlySales
		err := row.Scan(&m.Month, &m.Total)
		return m, err
	})
}

func (r *PGRepository) TopProductsBySales(ctx context.Context, limit int) ([]ProductSales, error) {
	rows, err := r.db.Query(ctx, `SELECT l.product_id, p.name, SUM(l.quantity * l.unit_price) AS sales
FROM order_lines l
JOIN orders o ON o.id = l.order_id
JOIN products p ON p.id = l.product_id
WHERE o.status = `+fulfilled+`
GROUP BY l.product_id, p.name
ORDER BY sales DESC, l.product_id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: top products by sales: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (ProductSales, error) {
		var p ProductSales
		err := row.Scan(&p.ProductID, &p.Name, &p.Sales)
		return p, err
	})
}

func (r *PGRepository) TopProductsByQuantity(ctx context.Context, since time.Time, limit int) ([]ProductQuantity, error) {
	rows, err := r.db.Query(ctx, `SELECT l.product_id, p.name, SUM(l.quantity) AS qty
FROM order_lines l
JOIN orders o ON o.id = l.order_id
JOIN products p ON p.id = l.product_id
WHERE o.status = `+fulfilled+` AND o.created_at >= $1
GROUP BY l.product_id, p.name
ORDER BY qty DESC, l.product_id
LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: top products by quantity: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (ProductQuantity, error) {
		var p ProductQuantity
		err := row.Scan(&p.ProductID, &p.Name, &p.Quantity)
		return p, err
	})
}

func (r *PGRepository) StockItems(ctx context.Context) ([]StockItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, unit, price, on_hand, active FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("dashboard: stock items: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (StockItem, error) {
		var s StockItem
		err := row.Scan(&s.ProductID, &s.Code, &s.Name, &s.Unit, &s.Price, &s.OnHand, &s.Active)
		return s, err
	})
}

func (r *PGRepository) CustomerCounts(ctx context.Context) (PartyCounts, error) {
	return r.partyCounts(ctx, "customers")
}

func (r *PGRepository) SupplierCounts(ctx context.Context) (PartyCounts, error) {
	return r.partyCounts(ctx, "suppliers")
}

func (r *PGRepository) partyCounts(ctx context.Context, table string) (PartyCounts, error) {
	var c PartyCounts
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM `+pgx.Identifier{table}.Sanitize()).Scan(&c.Total, &c.Active)
	if err != nil {
		return PartyCounts{}, fmt.Errorf("dashboard: %s counts: %w", table, err)
	}
	return c, nil
}

func (r *PGRepository) TopCustomers(ctx context.Context, limit int) ([]CustomerSpend, error) {
	rows, err := r.db.Query(ctx, `SELECT c.id, c.name, COUNT(o.id), SUM(o.total) AS spent
FROM orders o
JOIN customers c ON c.id = o.customer_id
WHERE o.status = `+fulfilled+`
GROUP BY c.id, c.name
ORDER BY spent DESC, c.id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: top customers: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (CustomerSpend, error) {
		var c CustomerSpend
		err := row.Scan(&c.CustomerID, &c.Name, &c.Orders, &c.Spent)
		return c, err
	})
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("dashboard: scan: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
