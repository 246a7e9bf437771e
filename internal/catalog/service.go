package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListActive(ctx context.Context, filter ListFilter) ([]Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	SetActive(ctx context.Context, id int64, active bool) (Product, error)
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta decimal.Decimal, mv Movement) (Product, error)
	Movements(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo     RepositoryPort
	cache    *Cache
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
	retry    shared.RetryPolicy
	now      func() time.Time
}

// NewService builds Service. cache and audit may be nil.
func NewService(repo RepositoryPort, cache *Cache, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		audit:    audit,
		logger:   logger,
		validate: shared.NewValidator(),
		retry:    shared.DefaultRetryPolicy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithRetry sets how often a stock adjustment that lost a race with another writer is retried.
func (s *Service) WithRetry(policy shared.RetryPolicy) *Service {
	if policy.Attempts > 0 {
		s.retry = policy
	}
	return s
}

// GetProduct returns a product, served from cache when possible.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.cache.Get(ctx, id, s.repo.GetProduct)
}

// ListActive returns active products.
func (s *Service) ListActive(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.ListActive(ctx, filter)
}

// List returns a page of products with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.repo.List(ctx, filter)
}

// LowStock lists active products at or below threshold.
func (s *Service) LowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]Product, error) {
	return s.repo.ListActive(ctx, ListFilter{AtOrBelow: &threshold, Limit: limit})
}

// Create validates and stores a product, generating its code when missing.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Product{}, err
	}
	fields := map[string]string{}
	checkMoney(fields, "price", req.Price)
	checkMoney(fields, "cost", req.Cost)
	checkMoney(fields, "on_hand", req.OnHand)
	if len(fields) > 0 {
		return Product{}, &shared.ValidationError{Fields: fields}
	}
	p := Product{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		LotCode:     req.LotCode,
		Category:    req.Category,
		Description: req.Description,
		Unit:        req.Unit,
		Price:       req.Price,
		Cost:        req.Cost,
		OnHand:      req.OnHand,
		Active:      true,
	}
	if p.Unit == "" {
		p.Unit = UnitKilogram
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if p.Code == "" {
		p.Code = GenerateCode(s.now())
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "catalog.create", created.ID, map[string]any{"code": created.Code, "on_hand": created.OnHand.String()})
	return created, nil
}

// Update changes descriptive fields and price using optimistic concurrency on version.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Product{}, err
	}
	fields := map[string]string{}
	checkMoney(fields, "price", req.Price)
	checkMoney(fields, "cost", req.Cost)
	if len(fields) > 0 {
		return Product{}, &shared.ValidationError{Fields: fields}
	}
	updated, err := s.repo.Update(ctx, Product{
		ID:          id,
		Version:     req.Version,
		Name:        strings.TrimSpace(req.Name),
		LotCode:     req.LotCode,
		Category:    req.Category,
		Description: req.Description,
		Unit:        req.Unit,
		Price:       req.Price,
		Cost:        req.Cost,
	})
	if err != nil {
		return Product{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.record(ctx, "catalog.update", id, map[string]any{"price": updated.Price.String(), "version": updated.Version})
	return updated, nil
}

// SetActive activates or deactivates a product.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Product, error) {
	p, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Product{}, err
	}
	s.cache.Invalidate(ctx, id)
	action := "catalog.deactivate"
	if active {
		action = "catalog.activate"
	}
	s.record(ctx, action, id, nil)
	return p, nil
}

// Delete removes a product that no order line references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.record(ctx, "catalog.delete", id, nil)
	return nil
}

// AdjustStock applies a manual correction. Removing more than is on hand fails with
// ErrWouldGoNegative and leaves the product unchanged.
func (s *Service) AdjustStock(ctx context.Context, id int64, req AdjustStockRequest) (Product, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Product{}, err
	}
	if !req.Quantity.IsPositive() {
		return Product{}, shared.FieldError("quantity", "must be greater than 0")
	}
	if !req.Quantity.Equal(req.Quantity.Round(2)) {
		return Product{}, shared.FieldError("quantity", "must have at most 2 decimals")
	}
	if req.Quantity.GreaterThan(MaxAmount) {
		return Product{}, shared.FieldError("quantity", "must not exceed "+MaxAmount.String())
	}
	reason := ReasonManualIn
	if req.Operation == OperationRemove {
		reason = ReasonManualOut
	}
	actor := shared.ActorFromContext(ctx)
	var p Product
	err := shared.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		var err error
		p, err = s.repo.AdjustStock(ctx, id, req.Delta(), Movement{
			Reason:    reason,
			RefModule: "catalog",
			Actor:     actor.ID,
			Note:      req.Note,
		})
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.record(ctx, "catalog.adjust_stock", id, map[string]any{"delta": req.Delta().String(), "on_hand": p.OnHand.String()})
	return p, nil
}

// Movements returns the newest stock ledger rows of a product.
func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.Movements(ctx, productID, limit)
}

// GenerateCode builds a product code of the form PROD-yymmdd-XXXXXX.
func GenerateCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PROD-%s-%s", now.Format("060102"), suffix)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("catalog audit", slog.String("action", action), slog.Int64("product_id", id), slog.Any("error", err))
	}
}

func checkMoney(fields map[string]string, name string, v decimal.Decimal) {
	switch {
	case v.IsNegative():
		fields[name] = "must not be negative"
	case !v.Equal(v.Round(2)):
		fields[name] = "must have at most 2 decimals"
	case v.GreaterThan(MaxAmount):
		fields[name] = "must not exceed " + MaxAmount.String()
	}
}
