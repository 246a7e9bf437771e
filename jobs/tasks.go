package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLowStockScan lists active products at or below the stock threshold.
	TaskLowStockScan = "stock:low-scan"
	// TaskDashboardWarmup precomputes the dashboard summary and reports.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskIdempotencyCleanup deletes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// DefaultIdempotencyRetention is how long idempotency keys are kept.
const DefaultIdempotencyRetention = 72 * time.Hour

// LowStockScanPayload overrides the configured threshold when Threshold is set.
type LowStockScanPayload struct {
	Threshold string `json:"threshold,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// DashboardWarmupPayload is empty today; the trigger source is logged.
type DashboardWarmupPayload struct {
	Source string `json:"source,omitempty"`
}

// IdempotencyCleanupPayload selects the retention window.
type IdempotencyCleanupPayload struct {
	Retention Duration `json:"retention,omitempty"`
}

// Duration marshals as a Go duration string ("72h").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("jobs: duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewLowStockScanTask builds a low stock scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	return newTask(TaskLowStockScan, payload)
}

// NewDashboardWarmupTask builds a dashboard warmup task.
func NewDashboardWarmupTask(source string) (*asynq.Task, error) {
	return newTask(TaskDashboardWarmup, DashboardWarmupPayload{Source: source})
}

// NewIdempotencyCleanupTask builds a cleanup task. A zero retention uses the default.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{Retention: Duration(retention)})
}

// NewTaskByName builds the task behind a short CLI name (low-stock, warmup, cleanup) or a
// full task type.
func NewTaskByName(name string) (*asynq.Task, error) {
	switch name {
	case "low-stock", TaskLowStockScan:
		return NewLowStockScanTask(LowStockScanPayload{})
	case "warmup", TaskDashboardWarmup:
		return NewDashboardWarmupTask("manual")
	case "cleanup", TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(0)
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}
