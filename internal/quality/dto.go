package quality

// ControlPointRequest creates or replaces a control point.
type ControlPointRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Description      string `json:"description" validate:"required,max=4000"`
	CriticalLimit    string `json:"critical_limit" validate:"required,max=200"`
	CorrectiveAction string `json:"corrective_action" validate:"required,max=4000"`
}

// CreateRecordRequest logs a measurement. Status defaults to pending.
type CreateRecordRequest struct {
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	ControlPointID int64  `json:"control_point_id" validate:"required,gt=0"`
	MeasuredValue  string `json:"measured_value" validate:"required,max=100"`
	Status         string `json:"status" validate:"omitempty,oneof=pending conforming nonconforming"`
	Observations   string `json:"observations" validate:"max=2000"`
}

// ReviewRecordRequest settles a pending record.
type ReviewRecordRequest struct {
	Status       string `json:"status" validate:"required,oneof=conforming nonconforming"`
	Observations string `json:"observations" validate:"max=2000"`
}

// CreateIncidentRequest opens an incident.
type CreateIncidentRequest struct {
	ProductID        int64  `json:"product_id" validate:"required,gt=0"`
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"required,max=4000"`
	Severity         string `json:"severity" validate:"required,oneof=low medium high critical"`
	CorrectiveAction string `json:"corrective_action" validate:"max=4000"`
}

// IncidentTransitionRequest moves an incident along its workflow.
type IncidentTransitionRequest struct {
	Status           string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	CorrectiveAction string `json:"corrective_action" validate:"max=4000"`
}
