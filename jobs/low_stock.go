package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/catalog"
	jobmetrics "github.com/seafood-erp/seafood-erp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StockScanner lists active products at or below a threshold.
type StockScanner interface {
	LowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]catalog.Product, error)
}

// LowStockScanJob logs products running out and publishes their count as a gauge.
type LowStockScanJob struct {
	Catalog   StockScanner
	Threshold decimal.Decimal
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewLowStockScanJob wires the scan handler. A non-positive threshold defaults to 10.
func NewLowStockScanJob(scanner StockScanner, threshold decimal.Decimal, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	if !threshold.IsPositive() {
		threshold = decimal.NewFromInt(10)
	}
	return &LowStockScanJob{
		Catalog:   scanner,
		Threshold: threshold,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskLowStockScan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	threshold := j.Threshold
	if payload.Threshold != "" {
		parsed, err := decimal.NewFromString(payload.Threshold)
		if err != nil || !parsed.IsPositive() {
			j.logger().Warn("invalid threshold in payload", slog.String("threshold", payload.Threshold))
			return asynq.SkipRetry
		}
		threshold = parsed
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = 500
	}

	start := j.now()
	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("threshold", threshold.String()))
	products, err := j.Catalog.LowStock(ctx, threshold, limit)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}
	for _, p := range products {
		logger.Warn("low stock",
			slog.Int64("product_id", p.ID),
			slog.String("code", p.Code),
			slog.String("name", p.Name),
			slog.String("on_hand", p.OnHand.String()),
			slog.String("unit", string(p.Unit)))
	}
	j.metrics().SetLowStock(len(products))
	logger.Info("completed low stock scan", slog.Int("products", len(products)), slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LowStockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
