package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

const productColumns = `id, code, name, lot_code, category, description, unit, price, cost, on_hand, active, version, created_at, updated_at`

// Store runs catalog statements against a pool or an open transaction. The order engine binds a
// Store to its own transaction so reservations commit or roll back with the order.
type Store struct {
	db db.Querier
}

// NewStore binds a Store to q.
func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

// GetProduct loads a product by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product: %w", db.Classify(err))
	}
	return p, nil
}

// AdjustStock applies delta to on-hand in a single conditional statement, so the sufficiency
// check and the write cannot be interleaved by another writer. A ledger row is written on the
// same connection; callers outside a transaction should use Repository.AdjustStock.
func (s *Store) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal, mv Movement) (Product, error) {
	row := s.db.QueryRow(ctx, `UPDATE products
SET on_hand = on_hand + $2, version = version + 1, updated_at = NOW()
WHERE id = $1 AND on_hand + $2 >= 0
RETURNING `+productColumns, id, delta)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
			return Product{}, fmt.Errorf("catalog: adjust stock: %w", db.Classify(err))
		}
		if !exists {
			return Product{}, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
		}
		return Product{}, fmt.Errorf("catalog: product %d delta %s: %w", id, delta, shared.ErrWouldGoNegative)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: adjust stock: %w", db.Classify(err))
	}

	mv.ProductID = id
	mv.Delta = delta
	mv.Balance = p.OnHand
	if err := s.insertMovement(ctx, mv); err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListActive returns active products matching filter.
func (s *Store) ListActive(ctx context.Context, filter ListFilter) ([]Product, error) {
	active := true
	filter.Active = &active
	products, _, err := s.list(ctx, filter, false)
	return products, err
}

func (s *Store) insertMovement(ctx context.Context, mv Movement) error {
	_, err := s.db.Exec(ctx, `INSERT INTO stock_movements (product_id, delta, balance, reason, ref_module, ref_id, actor, note)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, mv.ProductID, mv.Delta, mv.Balance, string(mv.Reason), mv.RefModule, mv.RefID, mv.Actor, mv.Note)
	if err != nil {
		return fmt.Errorf("catalog: insert movement: %w", db.Classify(err))
	}
	return nil
}

func (s *Store) list(ctx context.Context, filter ListFilter, withCount bool) ([]Product, int, error) {
	where, args := buildWhere(filter)

	total := 0
	if withCount {
		if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("catalog: count products: %w", err)
		}
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name ASC, id ASC`
	limit := shared.ClampPageSize(filter.Limit)
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if !withCount {
		total = len(products)
	}
	return products, total, nil
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, `(name ILIKE $`+n+` OR code ILIKE $`+n+` OR lot_code ILIKE $`+n+`)`)
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, `category = $`+strconv.Itoa(len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, `active = $`+strconv.Itoa(len(args)))
	}
	if filter.AtOrBelow != nil {
		args = append(args, *filter.AtOrBelow)
		clauses = append(clauses, `on_hand <= $`+strconv.Itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var unit string
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.LotCode, &p.Category, &p.Description, &unit, &p.Price, &p.Cost, &p.OnHand, &p.Active, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	p.Unit = Unit(unit)
	return p, err
}
