package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// AuditPort records registry changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the customer registry.
type Service struct {
	repo     Repository
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service. audit may be nil.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, validate: shared.NewValidator()}
}

// Create registers a customer. RUT and email must not be registered yet.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Customer{}, err
	}
	created, err := s.repo.Create(ctx, Customer{
		Name:    strings.TrimSpace(req.Name),
		RUT:     shared.NormalizeRUT(req.RUT),
		Email:   normalizeEmail(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Active:  true,
	})
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customers.create", created.ID, map[string]any{"rut": created.RUT})
	return created, nil
}

// Get returns a customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of customers and the total matches.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	return s.repo.List(ctx, filter)
}

// Update replaces the editable fields of a customer.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (Customer, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Customer{}, err
	}
	updated, err := s.repo.Update(ctx, Customer{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		RUT:     shared.NormalizeRUT(req.RUT),
		Email:   normalizeEmail(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customers.update", id, nil)
	return updated, nil
}

// SetActive activates or deactivates a customer. Inactive customers cannot place orders.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Customer, error) {
	c, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Customer{}, err
	}
	action := "customers.deactivate"
	if active {
		action = "customers.activate"
	}
	s.record(ctx, action, id, nil)
	return c, nil
}

// Delete removes a customer without orders.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		hasOrders, err := repo.HasOrders(ctx, id)
		if err != nil {
			return err
		}
		if hasOrders {
			return fmt.Errorf("customers: customer %d has orders: %w", id, shared.ErrInUse)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "customers.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("customers audit", slog.String("action", action), slog.Int64("customer_id", id), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
