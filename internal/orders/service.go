package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/catalog"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

const idempotencyModule = "orders"

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort is implemented by *shared.IdempotencyStore.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Complete(ctx context.Context, key, ref string) error
	Lookup(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// ProductCache drops cached products after their stock changed.
type ProductCache interface {
	Invalidate(ctx context.Context, ids ...int64)
}

// DashboardCache is bumped whenever order data changes.
type DashboardCache interface {
	Bump(ctx context.Context) error
}

// MetricsPort receives engine outcomes.
type MetricsPort interface {
	OrderCreated(total decimal.Decimal)
	OrderTransitioned(from, to string)
	OrderRejected(op, reason string)
	OrderRetried(op string)
}

// Dependencies groups the optional collaborators of Service. Nil members are skipped.
type Dependencies struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Products    ProductCache
	Dashboard   DashboardCache
	Metrics     MetricsPort
	Logger      *slog.Logger
}

// ServiceConfig groups engine settings.
type ServiceConfig struct {
	Retry shared.RetryPolicy
}

// Service is the order engine.
type Service struct {
	repo     RepositoryPort
	deps     Dependencies
	logger   *slog.Logger
	retry    shared.RetryPolicy
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps Dependencies, cfg ServiceConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := cfg.Retry
	if retry.Attempts <= 0 {
		retry = shared.DefaultRetryPolicy
	}
	return &Service{
		repo:     repo,
		deps:     deps,
		logger:   logger,
		retry:    retry,
		validate: shared.NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of orders and the total matches.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.FieldError("status", "unknown status "+string(filter.Status))
	}
	return s.repo.List(ctx, filter)
}

// CreateOrder places an order. Every requested product must be active and have the requested
// quantity on hand; otherwise nothing is written and the error names all offending products.
// On success the stock is reserved, one line per request line is stored at the current product
// price and the total is computed, all in one transaction.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if err := s.validateCreate(req); err != nil {
		s.rejected("create", err)
		return Order{}, err
	}

	key := ""
	if req.IdempotencyKey != "" && s.deps.Idempotency != nil {
		key = "orders:create:" + req.IdempotencyKey
		if err := s.deps.Idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return s.replay(ctx, key)
			}
			return Order{}, fmt.Errorf("orders: idempotency: %w", err)
		}
	}

	actor := shared.ActorFromContext(ctx)
	var created Order
	var touched []int64
	err := s.withRetry(ctx, "create", func(ctx context.Context, tx TxRepository) error {
		var err error
		created, touched, err = s.placeOrder(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		if key != "" {
			if derr := s.deps.Idempotency.Delete(ctx, key); derr != nil {
				s.logger.Warn("orders idempotency release", slog.String("key", key), slog.Any("error", derr))
			}
		}
		s.rejected("create", err)
		return Order{}, err
	}
	if key != "" {
		if err := s.deps.Idempotency.Complete(ctx, key, strconv.FormatInt(created.ID, 10)); err != nil {
			s.logger.Warn("orders idempotency complete", slog.String("key", key), slog.Any("error", err))
		}
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.OrderCreated(created.Total)
	}
	s.afterCommit(ctx, "orders.create", created, touched, map[string]any{
		"reference": created.Reference,
		"lines":     len(created.Lines),
		"total":     created.Total.String(),
	})
	return created, nil
}

func (s *Service) placeOrder(ctx context.Context, tx TxRepository, req CreateOrderRequest, actor shared.Actor) (Order, []int64, error) {
	customer, err := tx.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return Order{}, nil, err
	}
	if !customer.Active {
		return Order{}, nil, fmt.Errorf("orders: customer %d: %w", customer.ID, shared.ErrInactive)
	}

	wanted := map[int64]decimal.Decimal{}
	for _, l := range req.Lines {
		wanted[l.ProductID] = wanted[l.ProductID].Add(l.Quantity)
	}
	ids := sortedIDs(wanted)

	products := make(map[int64]catalog.Product, len(ids))
	var short []int64
	for _, id := range ids {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return Order{}, nil, err
		}
		products[id] = p
		if !p.Active || p.OnHand.LessThan(wanted[id]) {
			short = append(short, id)
		}
	}
	if len(short) > 0 {
		return Order{}, nil, shared.NewInsufficientStockError(short...)
	}

	order, err := tx.InsertOrder(ctx, Order{
		Reference:  GenerateReference(s.now()),
		CustomerID: customer.ID,
		Status:     StatusPlaced,
		Notes:      strings.TrimSpace(req.Notes),
		Total:      decimal.Zero,
		CreatedBy:  actor.ID,
	})
	if err != nil {
		return Order{}, nil, err
	}

	// Ascending product order keeps concurrent placements from deadlocking on row locks.
	for _, id := range ids {
		_, err := tx.AdjustStock(ctx, id, wanted[id].Neg(), catalog.Movement{
			Reason:    catalog.ReasonOrderReserve,
			RefModule: "orders",
			RefID:     order.Reference,
			Actor:     actor.ID,
		})
		if errors.Is(err, shared.ErrWouldGoNegative) {
			short = append(short, id)
			continue
		}
		if err != nil {
			return Order{}, nil, err
		}
	}
	if len(short) > 0 {
		return Order{}, nil, shared.NewInsufficientStockError(short...)
	}

	for _, l := range req.Lines {
		p := products[l.ProductID]
		lot := strings.TrimSpace(l.LotCode)
		if lot == "" {
			lot = p.LotCode
		}
		if _, err := tx.InsertLine(ctx, Line{
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			UnitPrice:   p.Price,
			LotCode:     lot,
			Notes:       strings.TrimSpace(l.Notes),
		}); err != nil {
			return Order{}, nil, err
		}
	}

	order, err = recompute(ctx, tx, order.ID)
	if err != nil {
		return Order{}, nil, err
	}
	order.CustomerName = customer.Name
	return order, ids, nil
}

// TransitionStatus moves an order to next. Cancelling releases every line's quantity back to
// stock in the same transaction. A rejected transition changes nothing.
func (s *Service) TransitionStatus(ctx context.Context, id int64, next Status) (Order, error) {
	if !next.Valid() {
		err := shared.FieldError("new_status", "unknown status "+string(next))
		s.rejected("transition", err)
		return Order{}, err
	}
	actor := shared.ActorFromContext(ctx)
	var updated Order
	var from Status
	var released []int64
	err := s.withRetry(ctx, "transition", func(ctx context.Context, tx TxRepository) error {
		released = nil
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(order.Status, next) {
			return fmt.Errorf("orders: order %d %s -> %s: %w", id, order.Status, next, shared.ErrInvalidTransition)
		}
		if next == StatusCancelled {
			lines, err := tx.ListLines(ctx, id)
			if err != nil {
				return err
			}
			released, err = release(ctx, tx, order, lines, actor)
			if err != nil {
				return err
			}
		}
		updated, err = tx.UpdateStatus(ctx, id, order.Version, next)
		if err != nil {
			return err
		}
		updated.CustomerName = order.CustomerName
		updated.Lines, err = tx.ListLines(ctx, id)
		return err
	})
	if err != nil {
		s.rejected("transition", err)
		return Order{}, err
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.OrderTransitioned(string(from), string(next))
	}
	s.afterCommit(ctx, "orders.transition", updated, released, map[string]any{
		"from": string(from),
		"to":   string(next),
	})
	return updated, nil
}

// RecomputeTotal sets the order total to the sum of its line subtotals.
func (s *Service) RecomputeTotal(ctx context.Context, id int64) (Order, error) {
	var order Order
	err := s.withRetry(ctx, "recompute", func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetOrderForUpdate(ctx, id); err != nil {
			return err
		}
		var err error
		order, err = recompute(ctx, tx, id)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// AddLine adds a line to a placed order, reserving its quantity.
func (s *Service) AddLine(ctx context.Context, orderID int64, req LineRequest) (Order, error) {
	if err := s.validateLine("", req); err != nil {
		s.rejected("add_line", err)
		return Order{}, err
	}
	actor := shared.ActorFromContext(ctx)
	var updated Order
	err := s.withRetry(ctx, "add_line", func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPlaced {
			return fmt.Errorf("orders: order %d is %s, lines change only while placed: %w", orderID, order.Status, shared.ErrInvalidTransition)
		}
		p, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if !p.Active {
			return shared.NewInsufficientStockError(p.ID)
		}
		_, err = tx.AdjustStock(ctx, p.ID, req.Quantity.Neg(), catalog.Movement{
			Reason:    catalog.ReasonOrderReserve,
			RefModule: "orders",
			RefID:     order.Reference,
			Actor:     actor.ID,
		})
		if errors.Is(err, shared.ErrWouldGoNegative) {
			return shared.NewInsufficientStockError(p.ID)
		}
		if err != nil {
			return err
		}
		lot := strings.TrimSpace(req.LotCode)
		if lot == "" {
			lot = p.LotCode
		}
		if _, err := tx.InsertLine(ctx, Line{
			OrderID:     orderID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    req.Quantity,
			UnitPrice:   p.Price,
			LotCode:     lot,
			Notes:       strings.TrimSpace(req.Notes),
		}); err != nil {
			return err
		}
		updated, err = recompute(ctx, tx, orderID)
		updated.CustomerName = order.CustomerName
		return err
	})
	if err != nil {
		s.rejected("add_line", err)
		return Order{}, err
	}
	s.afterCommit(ctx, "orders.add_line", updated, []int64{req.ProductID}, map[string]any{
		"product_id": req.ProductID,
		"quantity":   req.Quantity.String(),
	})
	return updated, nil
}

// RemoveLine deletes a line from a placed order and releases its quantity. The last line cannot
// be removed; cancel the order instead.
func (s *Service) RemoveLine(ctx context.Context, orderID, lineID int64) (Order, error) {
	actor := shared.ActorFromContext(ctx)
	var updated Order
	var removed Line
	err := s.withRetry(ctx, "remove_line", func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPlaced {
			return fmt.Errorf("orders: order %d is %s, lines change only while placed: %w", orderID, order.Status, shared.ErrInvalidTransition)
		}
		lines, err := tx.ListLines(ctx, orderID)
		if err != nil {
			return err
		}
		if len(lines) == 1 && lines[0].ID == lineID {
			return shared.FieldError("line_id", "an order keeps at least one line, cancel it instead")
		}
		removed, err = tx.DeleteLine(ctx, orderID, lineID)
		if err != nil {
			return err
		}
		if _, err := release(ctx, tx, order, []Line{removed}, actor); err != nil {
			return err
		}
		updated, err = recompute(ctx, tx, orderID)
		updated.CustomerName = order.CustomerName
		return err
	})
	if err != nil {
		s.rejected("remove_line", err)
		return Order{}, err
	}
	s.afterCommit(ctx, "orders.remove_line", updated, []int64{removed.ProductID}, map[string]any{
		"line_id":    lineID,
		"product_id": removed.ProductID,
		"quantity":   removed.Quantity.String(),
	})
	return updated, nil
}

// GenerateReference builds an order reference of the form ORD-yymmdd-XXXXXXXX.
func GenerateReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("060102"), suffix)
}

func (s *Service) withRetry(ctx context.Context, op string, fn func(context.Context, TxRepository) error) error {
	attempt := 0
	return shared.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		if attempt > 0 && s.deps.Metrics != nil {
			s.deps.Metrics.OrderRetried(op)
		}
		attempt++
		return s.repo.WithTx(ctx, fn)
	})
}

func (s *Service) replay(ctx context.Context, key string) (Order, error) {
	ref, found, err := s.deps.Idempotency.Lookup(ctx, key)
	if err != nil {
		return Order{}, fmt.Errorf("orders: idempotency lookup: %w", err)
	}
	if !found || ref == "" {
		return Order{}, fmt.Errorf("orders: request %q still in flight: %w", key, shared.ErrConcurrentModification)
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return Order{}, fmt.Errorf("orders: idempotency ref %q: %w", ref, err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) validateCreate(req CreateOrderRequest) error {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return err
	}
	for i, l := range req.Lines {
		if err := s.validateLine(fmt.Sprintf("lines[%d].", i), l); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateLine(prefix string, l LineRequest) error {
	if prefix == "" {
		if err := shared.ValidateStruct(s.validate, l); err != nil {
			return err
		}
	}
	switch {
	case !l.Quantity.IsPositive():
		return shared.FieldError(prefix+"quantity", "must be greater than 0")
	case !l.Quantity.Equal(l.Quantity.Round(2)):
		return shared.FieldError(prefix+"quantity", "must have at most 2 decimals")
	}
	return nil
}

func (s *Service) rejected(op string, err error) {
	if s.deps.Metrics == nil || err == nil {
		return
	}
	s.deps.Metrics.OrderRejected(op, reason(err))
}

// afterCommit runs side effects of a committed change. Failures are logged, never returned.
func (s *Service) afterCommit(ctx context.Context, action string, order Order, productIDs []int64, meta map[string]any) {
	if s.deps.Products != nil && len(productIDs) > 0 {
		s.deps.Products.Invalidate(ctx, productIDs...)
	}
	if s.deps.Dashboard != nil {
		if err := s.deps.Dashboard.Bump(ctx); err != nil {
			s.logger.Warn("orders dashboard bump", slog.Int64("order_id", order.ID), slog.Any("error", err))
		}
	}
	if s.deps.Audit != nil {
		if err := s.deps.Audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "order",
			EntityID: strconv.FormatInt(order.ID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("orders audit", slog.String("action", action), slog.Int64("order_id", order.ID), slog.Any("error", err))
		}
	}
	s.logger.Info(action,
		slog.Int64("order_id", order.ID),
		slog.String("reference", order.Reference),
		slog.String("status", string(order.Status)),
		slog.String("total", order.Total.StringFixed(2)))
}

// release returns the quantity of lines to stock, one adjustment per product in ascending order.
func release(ctx context.Context, tx TxRepository, order Order, lines []Line, actor shared.Actor) ([]int64, error) {
	qty := map[int64]decimal.Decimal{}
	for _, l := range lines {
		qty[l.ProductID] = qty[l.ProductID].Add(l.Quantity)
	}
	ids := sortedIDs(qty)
	for _, id := range ids {
		if _, err := tx.AdjustStock(ctx, id, qty[id], catalog.Movement{
			Reason:    catalog.ReasonOrderRelease,
			RefModule: "orders",
			RefID:     order.Reference,
			Actor:     actor.ID,
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func recompute(ctx context.Context, tx TxRepository, orderID int64) (Order, error) {
	lines, err := tx.ListLines(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	order, err := tx.UpdateTotal(ctx, orderID, SumLines(lines))
	if err != nil {
		return Order{}, err
	}
	order.Lines = lines
	return order, nil
}

func sortedIDs(m map[int64]decimal.Decimal) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func reason(err error) string {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrInactive):
		return "inactive"
	case errors.Is(err, shared.ErrConcurrentModification):
		return "conflict"
	default:
		return "error"
	}
}
