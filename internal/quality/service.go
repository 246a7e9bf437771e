package quality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seafood-erp/seafood-erp/internal/catalog"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// AuditPort records quality changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ProductLookup resolves the product a record or incident refers to.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// Service implements HACCP control points, quality records and incidents.
type Service struct {
	repo     Repository
	products ProductLookup
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service. audit may be nil.
func NewService(repo Repository, products ProductLookup, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, products: products, audit: audit, logger: logger, validate: shared.NewValidator(), now: time.Now}
}

func (s *Service) ListControlPoints(ctx context.Context) ([]ControlPoint, error) {
	return s.repo.ListControlPoints(ctx)
}

func (s *Service) GetControlPoint(ctx context.Context, id int64) (ControlPoint, error) {
	return s.repo.GetControlPoint(ctx, id)
}

func (s *Service) CreateControlPoint(ctx context.Context, req ControlPointRequest) (ControlPoint, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return ControlPoint{}, err
	}
	cp, err := s.repo.CreateControlPoint(ctx, controlPointFromRequest(req))
	if err != nil {
		return ControlPoint{}, err
	}
	s.record(ctx, "quality.control_point.create", "haccp_control_point", cp.ID, nil)
	return cp, nil
}

func (s *Service) UpdateControlPoint(ctx context.Context, id int64, req ControlPointRequest) (ControlPoint, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return ControlPoint{}, err
	}
	cp := controlPointFromRequest(req)
	cp.ID = id
	updated, err := s.repo.UpdateControlPoint(ctx, cp)
	if err != nil {
		return ControlPoint{}, err
	}
	s.record(ctx, "quality.control_point.update", "haccp_control_point", id, nil)
	return updated, nil
}

// DeleteControlPoint removes a control point. Points with records are kept (ErrInUse).
func (s *Service) DeleteControlPoint(ctx context.Context, id int64) error {
	if err := s.repo.DeleteControlPoint(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "quality.control_point.delete", "haccp_control_point", id, nil)
	return nil
}

func (s *Service) GetRecord(ctx context.Context, id int64) (Record, error) {
	return s.repo.GetRecord(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.FieldError("status", "must be one of pending conforming nonconforming")
	}
	return s.repo.ListRecords(ctx, filter)
}

// CreateRecord logs a measurement against an existing product and control point.
func (s *Service) CreateRecord(ctx context.Context, req CreateRecordRequest) (Record, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Record{}, err
	}
	if err := s.checkProduct(ctx, req.ProductID); err != nil {
		return Record{}, err
	}
	if _, err := s.repo.GetControlPoint(ctx, req.ControlPointID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Record{}, shared.FieldError("control_point_id", "does not exist")
		}
		return Record{}, err
	}
	status := RecordStatus(req.Status)
	if status == "" {
		status = RecordPending
	}
	rec, err := s.repo.CreateRecord(ctx, Record{
		ProductID:      req.ProductID,
		ControlPointID: req.ControlPointID,
		MeasuredValue:  strings.TrimSpace(req.MeasuredValue),
		Status:         status,
		Observations:   req.Observations,
		RecordedBy:     shared.ActorFromContext(ctx).ID,
	})
	if err != nil {
		return Record{}, err
	}
	s.record(ctx, "quality.record.create", "quality_record", rec.ID, map[string]any{"status": string(rec.Status)})
	return rec, nil
}

// ReviewRecord settles a pending record as conforming or nonconforming.
func (s *Service) ReviewRecord(ctx context.Context, id int64, req ReviewRecordRequest) (Record, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Record{}, err
	}
	current, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	to := RecordStatus(req.Status)
	if !CanReview(current.Status, to) {
		return Record{}, fmt.Errorf("quality: record %d: %s -> %s: %w", id, current.Status, to, shared.ErrInvalidTransition)
	}
	observations := current.Observations
	if strings.TrimSpace(req.Observations) != "" {
		observations = req.Observations
	}
	rec, err := s.repo.ReviewRecord(ctx, id, current.Status, to, observations)
	if err != nil {
		return Record{}, err
	}
	s.record(ctx, "quality.record.review", "quality_record", id, map[string]any{"from": string(current.Status), "to": string(to)})
	if to == RecordNonconforming {
		s.logger.Warn("quality: nonconforming record",
			slog.Int64("record_id", id),
			slog.Int64("product_id", rec.ProductID),
			slog.String("control_point", rec.ControlPointName),
			slog.String("measured_value", rec.MeasuredValue))
	}
	return rec, nil
}

func (s *Service) GetIncident(ctx context.Context, id int64) (Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

func (s *Service) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.FieldError("status", "must be one of open in_progress resolved closed")
	}
	return s.repo.ListIncidents(ctx, filter)
}

// OpenIncident records a new incident in the open state.
func (s *Service) OpenIncident(ctx context.Context, req CreateIncidentRequest) (Incident, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Incident{}, err
	}
	if err := s.checkProduct(ctx, req.ProductID); err != nil {
		return Incident{}, err
	}
	inc, err := s.repo.CreateIncident(ctx, Incident{
		ProductID:        req.ProductID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Severity:         Severity(req.Severity),
		Status:           IncidentOpen,
		CorrectiveAction: req.CorrectiveAction,
	})
	if err != nil {
		return Incident{}, err
	}
	s.record(ctx, "quality.incident.open", "quality_incident", inc.ID, map[string]any{"severity": string(inc.Severity)})
	if inc.Severity == SeverityCritical {
		s.logger.Warn("quality: critical incident opened", slog.Int64("incident_id", inc.ID), slog.Int64("product_id", inc.ProductID), slog.String("title", inc.Title))
	}
	return inc, nil
}

// TransitionIncident moves an incident along open, in_progress, resolved, closed. Resolving
// needs a corrective action and stamps resolved_at.
func (s *Service) TransitionIncident(ctx context.Context, id int64, req IncidentTransitionRequest) (Incident, error) {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Incident{}, err
	}
	current, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return Incident{}, err
	}
	to := IncidentStatus(req.Status)
	if !CanTransitionIncident(current.Status, to) {
		return Incident{}, fmt.Errorf("quality: incident %d: %s -> %s: %w", id, current.Status, to, shared.ErrInvalidTransition)
	}
	action := current.CorrectiveAction
	if strings.TrimSpace(req.CorrectiveAction) != "" {
		action = strings.TrimSpace(req.CorrectiveAction)
	}
	var resolvedAt *time.Time
	if to == IncidentResolved {
		if strings.TrimSpace(action) == "" {
			return Incident{}, shared.FieldError("corrective_action", "is required to resolve an incident")
		}
		now := s.now().UTC()
		resolvedAt = &now
	}
	inc, err := s.repo.UpdateIncidentStatus(ctx, id, current.Status, to, action, resolvedAt)
	if err != nil {
		return Incident{}, err
	}
	s.record(ctx, "quality.incident.transition", "quality_incident", id, map[string]any{"from": string(current.Status), "to": string(to)})
	return inc, nil
}

func (s *Service) checkProduct(ctx context.Context, id int64) error {
	if s.products == nil {
		return nil
	}
	if _, err := s.products.GetProduct(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.FieldError("product_id", "does not exist")
		}
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: strconv.FormatInt(id, 10), Meta: meta}); err != nil {
		s.logger.Warn("quality audit", slog.String("action", action), slog.Int64("entity_id", id), slog.Any("error", err))
	}
}

func controlPointFromRequest(req ControlPointRequest) ControlPoint {
	return ControlPoint{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		CriticalLimit:    strings.TrimSpace(req.CriticalLimit),
		CorrectiveAction: req.CorrectiveAction,
	}
}
