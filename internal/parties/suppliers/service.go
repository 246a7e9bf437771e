package suppliers

import (
	"context"
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

// Service implements the supplier registry.
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

func (s *Service) Create(ctx context.Context, req SupplierRequest) (Supplier, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Supplier{}, err
	}
	sup := fromRequest(req)
	sup.Active = true
	created, err := s.repo.Create(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "suppliers.create", created.ID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Supplier, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id int64, req SupplierRequest) (Supplier, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Supplier{}, err
	}
	sup := fromRequest(req)
	sup.ID = id
	updated, err := s.repo.Update(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "suppliers.update", id)
	return updated, nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Supplier, error) {
	sup, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Supplier{}, err
	}
	if active {
		s.record(ctx, "suppliers.activate", id)
	} else {
		s.record(ctx, "suppliers.deactivate", id)
	}
	return sup, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "suppliers.delete", id)
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "supplier", EntityID: strconv.FormatInt(id, 10)}); err != nil {
		s.logger.Warn("suppliers audit", slog.String("action", action), slog.Int64("supplier_id", id), slog.Any("error", err))
	}
}

func fromRequest(req SupplierRequest) Supplier {
	return Supplier{
		Name:    strings.TrimSpace(req.Name),
		RUT:     shared.NormalizeRUT(req.RUT),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Contact: strings.TrimSpace(req.Contact),
		Notes:   req.Notes,
	}
}
