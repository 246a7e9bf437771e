package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// Repository abstracts supplier persistence.
type Repository interface {
	Get(ctx context.Context, id int64) (Supplier, error)
	List(ctx context.Context, filter ListFilter) ([]Supplier, int, error)
	Create(ctx context.Context, s Supplier) (Supplier, error)
	Update(ctx context.Context, s Supplier) (Supplier, error)
	SetActive(ctx context.Context, id int64, active bool) (Supplier, error)
	Delete(ctx context.Context, id int64) error
}

const supplierColumns = `id, name, rut, email, phone, address, contact, notes, active, created_at, updated_at`

type repository struct {
	db db.Querier
}

// NewRepository constructs Repository over a pool or transaction.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("suppliers: supplier %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("suppliers: get: %w", err)
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Supplier, int, error) {
	var clauses []string
	var args []any
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, `(name ILIKE $`+n+` OR rut ILIKE $`+n+` OR contact ILIKE $`+n+`)`)
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("suppliers: count: %w", err)
	}

	args = append(args, shared.ClampPageSize(filter.Limit), filter.Offset)
	rows, err := r.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers`+where+
		` ORDER BY name ASC, id ASC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("suppliers: list: %w", err)
	}
	defer rows.Close()
	items := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("suppliers: scan: %w", err)
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	created, err := scanSupplier(r.db.QueryRow(ctx, `INSERT INTO suppliers (name, rut, email, phone, address, contact, notes, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING `+supplierColumns, s.Name, s.RUT, s.Email, s.Phone, s.Address, s.Contact, s.Notes, s.Active))
	if err != nil {
		return Supplier{}, uniqueError("create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	updated, err := scanSupplier(r.db.QueryRow(ctx, `UPDATE suppliers
SET name=$2, rut=$3, email=$4, phone=$5, address=$6, contact=$7, notes=$8, updated_at=NOW()
WHERE id=$1
RETURNING `+supplierColumns, s.ID, s.Name, s.RUT, s.Email, s.Phone, s.Address, s.Contact, s.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("suppliers: supplier %d: %w", s.ID, shared.ErrNotFound)
	}
	if err != nil {
		return Supplier{}, uniqueError("update", err)
	}
	return updated, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) (Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx, `UPDATE suppliers SET active=$2, updated_at=NOW() WHERE id=$1 RETURNING `+supplierColumns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("suppliers: supplier %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("suppliers: set active: %w", err)
	}
	return s, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("suppliers: delete %d: %w", id, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("suppliers: supplier %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func uniqueError(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err, "suppliers_rut_key"):
		return fmt.Errorf("suppliers: %s: rut already registered: %w", op, shared.ErrDuplicate)
	case db.IsUniqueViolation(err, "suppliers_email_key"):
		return fmt.Errorf("suppliers: %s: email already registered: %w", op, shared.ErrDuplicate)
	}
	return fmt.Errorf("suppliers: %s: %w", op, db.Classify(err))
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.RUT, &s.Email, &s.Phone, &s.Address, &s.Contact, &s.Notes, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
