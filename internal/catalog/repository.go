package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	*Store
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool), pool: pool}
}

// List returns a page of products and the total number of matches.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return r.list(ctx, filter, true)
}

// Create inserts a product and, when it starts with stock, its initial ledger row.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	var created Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO products (code, name, lot_code, category, description, unit, price, cost, on_hand, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING `+productColumns, p.Code, p.Name, p.LotCode, p.Category, p.Description, string(p.Unit), p.Price, p.Cost, p.OnHand, p.Active)
		var err error
		created, err = scanProduct(row)
		if err != nil {
			return fmt.Errorf("catalog: insert product: %w", db.Classify(err))
		}
		if created.OnHand.IsPositive() {
			return NewStore(tx).insertMovement(ctx, Movement{
				ProductID: created.ID,
				Delta:     created.OnHand,
				Balance:   created.OnHand,
				Reason:    ReasonInitial,
				Actor:     shared.ActorFromContext(ctx).ID,
			})
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

// Update writes descriptive fields and price. On-hand is only changed through AdjustStock.
// The write is rejected with ErrConcurrentModification when p.Version is stale.
func (r *Repository) Update(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET name=$3, lot_code=$4, category=$5, description=$6, unit=$7, price=$8, cost=$9, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2
RETURNING `+productColumns, p.ID, p.Version, p.Name, p.LotCode, p.Category, p.Description, string(p.Unit), p.Price, p.Cost)
	updated, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetProduct(ctx, p.ID); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, fmt.Errorf("catalog: product %d version %d: %w", p.ID, p.Version, shared.ErrConcurrentModification)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update product: %w", db.Classify(err))
	}
	return updated, nil
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products SET active=$2, version=version+1, updated_at=NOW() WHERE id=$1 RETURNING `+productColumns, id, active)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: set active: %w", db.Classify(err))
	}
	return p, nil
}

// Delete removes a product. Products referenced by order lines or quality records are kept and
// ErrInUse is returned.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product %d: %w", id, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// AdjustStock runs the conditional update and its ledger row in one transaction.
func (r *Repository) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal, mv Movement) (Product, error) {
	var p Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		p, err = NewStore(tx).AdjustStock(ctx, id, delta, mv)
		return err
	})
	return p, err
}

// Movements lists the newest ledger rows of a product.
func (r *Repository) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, delta, balance, reason, ref_module, ref_id, actor, note, created_at
FROM stock_movements WHERE product_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, shared.ClampPageSize(limit))
	if err != nil {
		return nil, fmt.Errorf("catalog: list movements: %w", err)
	}
	defer rows.Close()
	out := []Movement{}
	for rows.Next() {
		var mv Movement
		var reason string
		if err := rows.Scan(&mv.ID, &mv.ProductID, &mv.Delta, &mv.Balance, &reason, &mv.RefModule, &mv.RefID, &mv.Actor, &mv.Note, &mv.CreatedAt); err != nil {
			return nil, err
		}
		mv.Reason = MovementReason(reason)
		out = append(out, mv)
	}
	return out, rows.Err()
}
