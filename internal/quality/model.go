package quality

import "time"

// ControlPoint is a HACCP critical control point.
type ControlPoint struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	CriticalLimit    string    `json:"critical_limit"`
	CorrectiveAction string    `json:"corrective_action"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RecordStatus is the review outcome of a quality record.
type RecordStatus string

const (
	RecordPending       RecordStatus = "pending"
	RecordConforming    RecordStatus = "conforming"
	RecordNonconforming RecordStatus = "nonconforming"
)

// Valid reports whether s is a known record status.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordPending, RecordConforming, RecordNonconforming:
		return true
	}
	return false
}

// CanReview reports whether a record in from may be reviewed into to. Reviews are final.
func CanReview(from, to RecordStatus) bool {
	return from == RecordPending && (to == RecordConforming || to == RecordNonconforming)
}

// Record is one measurement taken at a control point for a product.
type Record struct {
	ID               int64        `json:"id"`
	ProductID        int64        `json:"product_id"`
	ProductName      string       `json:"product_name"`
	ControlPointID   int64        `json:"control_point_id"`
	ControlPointName string       `json:"control_point_name"`
	MeasuredValue    string       `json:"measured_value"`
	Status           RecordStatus `json:"status"`
	Observations     string       `json:"observations"`
	RecordedBy       string       `json:"recorded_by"`
	RecordedAt       time.Time    `json:"recorded_at"`
}

// Severity grades an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IncidentStatus tracks an incident through resolution.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
	IncidentClosed     IncidentStatus = "closed"
)

var incidentTransitions = map[IncidentStatus][]IncidentStatus{
	IncidentOpen:       {IncidentInProgress, IncidentResolved},
	IncidentInProgress: {IncidentResolved},
	IncidentResolved:   {IncidentClosed},
}

// Valid reports whether s is a known incident status.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentOpen, IncidentInProgress, IncidentResolved, IncidentClosed:
		return true
	}
	return false
}

// CanTransitionIncident reports whether an incident may move from one status to another.
func CanTransitionIncident(from, to IncidentStatus) bool {
	for _, next := range incidentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Incident is a quality problem detected on a product.
type Incident struct {
	ID               int64          `json:"id"`
	ProductID        int64          `json:"product_id"`
	ProductName      string         `json:"product_name"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Severity         Severity       `json:"severity"`
	Status           IncidentStatus `json:"status"`
	CorrectiveAction string         `json:"corrective_action"`
	DetectedAt       time.Time      `json:"detected_at"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	ProductID      int64
	ControlPointID int64
	Status         RecordStatus
	Limit          int
	Offset         int
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	ProductID int64
	Status    IncidentStatus
	Severity  Severity
	Limit     int
	Offset    int
}
