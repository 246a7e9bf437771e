package quality

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// Repository abstracts quality persistence.
type Repository interface {
	ListControlPoints(ctx context.Context) ([]ControlPoint, error)
	GetControlPoint(ctx context.Context, id int64) (ControlPoint, error)
	CreateControlPoint(ctx context.Context, cp ControlPoint) (ControlPoint, error)
	UpdateControlPoint(ctx context.Context, cp ControlPoint) (ControlPoint, error)
	DeleteControlPoint(ctx context.Context, id int64) error

	GetRecord(ctx context.Context, id int64) (Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, int, error)
	CreateRecord(ctx context.Context, rec Record) (Record, error)
	// ReviewRecord moves a record out of from; ErrInvalidTransition when it is no longer in from.
	ReviewRecord(ctx context.Context, id int64, from, to RecordStatus, observations string) (Record, error)

	GetIncident(ctx context.Context, id int64) (Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, int, error)
	CreateIncident(ctx context.Context, inc Incident) (Incident, error)
	// UpdateIncidentStatus moves an incident out of from; ErrInvalidTransition when it is no longer in from.
	UpdateIncidentStatus(ctx context.Context, id int64, from, to IncidentStatus, correctiveAction string, resolvedAt *time.Time) (Incident, error)
}

const controlPointColumns = `id, name, description, critical_limit, corrective_action, created_at, updated_at`

const recordSelect = `SELECT r.id, r.product_id, p.name, r.control_point_id, cp.name, r.measured_value, r.status, r.observations, r.recorded_by, r.recorded_at
FROM quality_records r
JOIN products p ON p.id = r.product_id
JOIN haccp_control_points cp ON cp.id = r.control_point_id`

const incidentSelect = `SELECT i.id, i.product_id, p.name, i.title, i.description, i.severity, i.status, i.corrective_action, i.detected_at, i.resolved_at
FROM quality_incidents i
JOIN products p ON p.id = i.product_id`

type repository struct {
	db db.Querier
}

// NewRepository constructs Repository over a pool or transaction.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

func (r *repository) ListControlPoints(ctx context.Context) ([]ControlPoint, error) {
	rows, err := r.db.Query(ctx, `SELECT `+controlPointColumns+` FROM haccp_control_points ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("quality: list control points: %w", err)
	}
	defer rows.Close()
	items := []ControlPoint{}
	for rows.Next() {
		cp, err := scanControlPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("quality: scan control point: %w", err)
		}
		items = append(items, cp)
	}
	return items, rows.Err()
}

func (r *repository) GetControlPoint(ctx context.Context, id int64) (ControlPoint, error) {
	cp, err := scanControlPoint(r.db.QueryRow(ctx, `SELECT `+controlPointColumns+` FROM haccp_control_points WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ControlPoint{}, fmt.Errorf("quality: control point %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return ControlPoint{}, fmt.Errorf("quality: get control point: %w", err)
	}
	return cp, nil
}

func (r *repository) CreateControlPoint(ctx context.Context, cp ControlPoint) (ControlPoint, error) {
	created, err := scanControlPoint(r.db.QueryRow(ctx, `INSERT INTO haccp_control_points (name, description, critical_limit, corrective_action)
VALUES ($1,$2,$3,$4)
RETURNING `+controlPointColumns, cp.Name, cp.Description, cp.CriticalLimit, cp.CorrectiveAction))
	if err != nil {
		return ControlPoint{}, fmt.Errorf("quality: create control point: %w", db.Classify(err))
	}
	return created, nil
}

func (r *repository) UpdateControlPoint(ctx context.Context, cp ControlPoint) (ControlPoint, error) {
	updated, err := scanControlPoint(r.db.QueryRow(ctx, `UPDATE haccp_control_points
SET name=$2, description=$3, critical_limit=$4, corrective_action=$5, updated_at=NOW()
WHERE id=$1
RETURNING `+controlPointColumns, cp.ID, cp.Name, cp.Description, cp.CriticalLimit, cp.CorrectiveAction))
	if errors.Is(err, pgx.ErrNoRows) {
		return ControlPoint{}, fmt.Errorf("quality: control point %d: %w", cp.ID, shared.ErrNotFound)
	}
	if err != nil {
		return ControlPoint{}, fmt.Errorf("quality: update control point: %w", db.Classify(err))
	}
	return updated, nil
}

func (r *repository) DeleteControlPoint(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM haccp_control_points WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("quality: delete control point %d: %w", id, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quality: control point %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) GetRecord(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, recordSelect+` WHERE r.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("quality: record %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("quality: get record: %w", err)
	}
	return rec, nil
}

func (r *repository) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, int, error) {
	var clauses []string
	var args []any
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		clauses = append(clauses, `r.product_id = $`+strconv.Itoa(len(args)))
	}
	if filter.ControlPointID > 0 {
		args = append(args, filter.ControlPointID)
		clauses = append(clauses, `r.control_point_id = $`+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, `r.status = $`+strconv.Itoa(len(args)))
	}
	where := whereClause(clauses)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quality_records r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quality: count records: %w", err)
	}
	args = append(args, shared.ClampPageSize(filter.Limit), filter.Offset)
	rows, err := r.db.Query(ctx, recordSelect+where+
		` ORDER BY r.recorded_at DESC, r.id DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("quality: list records: %w", err)
	}
	defer rows.Close()
	items := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("quality: scan record: %w", err)
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repository) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quality_records (product_id, control_point_id, measured_value, status, observations, recorded_by)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`, rec.ProductID, rec.ControlPointID, rec.MeasuredValue, string(rec.Status), rec.Observations, rec.RecordedBy).Scan(&id)
	if err != nil {
		return Record{}, fmt.Errorf("quality: create record: %w", db.Classify(err))
	}
	return r.GetRecord(ctx, id)
}

func (r *repository) ReviewRecord(ctx context.Context, id int64, from, to RecordStatus, observations string) (Record, error) {
	tag, err := r.db.Exec(ctx, `UPDATE quality_records SET status=$3, observations=$4 WHERE id=$1 AND status=$2`,
		id, string(from), string(to), observations)
	if err != nil {
		return Record{}, fmt.Errorf("quality: review record: %w", db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetRecord(ctx, id); err != nil {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("quality: record %d is no longer %s: %w", id, from, shared.ErrInvalidTransition)
	}
	return r.GetRecord(ctx, id)
}

func (r *repository) GetIncident(ctx context.Context, id int64) (Incident, error) {
	inc, err := scanIncident(r.db.QueryRow(ctx, incidentSelect+` WHERE i.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Incident{}, fmt.Errorf("quality: incident %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Incident{}, fmt.Errorf("quality: get incident: %w", err)
	}
	return inc, nil
}

func (r *repository) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, int, error) {
	var clauses []string
	var args []any
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		clauses = append(clauses, `i.product_id = $`+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, `i.status = $`+strconv.Itoa(len(args)))
	}
	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		clauses = append(clauses, `i.severity = $`+strconv.Itoa(len(args)))
	}
	where := whereClause(clauses)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quality_incidents i`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quality: count incidents: %w", err)
	}
	args = append(args, shared.ClampPageSize(filter.Limit), filter.Offset)
	rows, err := r.db.Query(ctx, incidentSelect+where+
		` ORDER BY i.detected_at DESC, i.id DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("quality: list incidents: %w", err)
	}
	defer rows.Close()
	items := []Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("quality: scan incident: %w", err)
		}
		items = append(items, inc)
	}
	return items, total, rows.Err()
}

func (r *repository) CreateIncident(ctx context.Context, inc Incident) (Incident, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quality_incidents (product_id, title, description, severity, status, corrective_action)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`, inc.ProductID, inc.Title, inc.Description, string(inc.Severity), string(inc.Status), inc.CorrectiveAction).Scan(&id)
	if err != nil {
		return Incident{}, fmt.Errorf("quality: create incident: %w", db.Classify(err))
	}
	return r.GetIncident(ctx, id)
}

func (r *repository) UpdateIncidentStatus(ctx context.Context, id int64, from, to IncidentStatus, correctiveAction string, resolvedAt *time.Time) (Incident, error) {
	tag, err := r.db.Exec(ctx, `UPDATE quality_incidents
SET status=$3, corrective_action=$4, resolved_at=COALESCE($5, resolved_at)
WHERE id=$1 AND status=$2`, id, string(from), string(to), correctiveAction, resolvedAt)
	if err != nil {
		return Incident{}, fmt.Errorf("quality: update incident: %w", db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetIncident(ctx, id); err != nil {
			return Incident{}, err
		}
		return Incident{}, fmt.Errorf("quality: incident %d is no longer %s: %w", id, from, shared.ErrInvalidTransition)
	}
	return r.GetIncident(ctx, id)
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `)
}

func scanControlPoint(row pgx.Row) (ControlPoint, error) {
	var cp ControlPoint
	err := row.Scan(&cp.ID, &cp.Name, &cp.Description, &cp.CriticalLimit, &cp.CorrectiveAction, &cp.CreatedAt, &cp.UpdatedAt)
	return cp, err
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.ControlPointID, &rec.ControlPointName,
		&rec.MeasuredValue, &status, &rec.Observations, &rec.RecordedBy, &rec.RecordedAt)
	rec.Status = RecordStatus(status)
	return rec, err
}

func scanIncident(row pgx.Row) (Incident, error) {
	var inc Incident
	var severity, status string
	err := row.Scan(&inc.ID, &inc.ProductID, &inc.ProductName, &inc.Title, &inc.Description, &severity, &status,
		&inc.CorrectiveAction, &inc.DetectedAt, &inc.ResolvedAt)
	inc.Severity = Severity(severity)
	inc.Status = IncidentStatus(status)
	return inc, err
}
