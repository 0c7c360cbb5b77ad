package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brickline-erp/brickline/internal/insights"
	"github.com/brickline-erp/brickline/internal/observability"
)

// InsightsWarmupJob pre-populates the cached aggregation views so the first
// dashboard request after an invalidation does not pay the compute cost.
type InsightsWarmupJob struct {
	Insights *insights.Service
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewInsightsWarmupJob wires dependencies for the warmup handler.
func NewInsightsWarmupJob(insightsSvc *insights.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *InsightsWarmupJob {
	return &InsightsWarmupJob{Insights: insightsSvc, Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes insights warmup tasks.
func (j *InsightsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Insights == nil {
		return errors.New("insights warmup: handler not configured")
	}
	var payload InsightsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	start := time.Now()

	vendors := []int64{payload.VendorID}
	if payload.VendorID == 0 {
		var err error
		vendors, err = j.activeVendors(ctx)
		if err != nil {
			j.Metrics.JobProcessed(TaskInsightsWarmup, "error")
			logger.Error("load warmup vendors", slog.Any("error", err))
			return err
		}
	}

	for _, vendorID := range vendors {
		warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		err := j.Insights.Warm(warmCtx, vendorID)
		cancel()
		if err != nil {
			j.Metrics.JobProcessed(TaskInsightsWarmup, "error")
			logger.Error("warm vendor views", slog.Int64("vendor_id", vendorID), slog.Any("error", err))
			return err
		}
	}

	j.Metrics.JobProcessed(TaskInsightsWarmup, "ok")
	logger.Info("completed insights warmup", slog.Int("vendors", len(vendors)), slog.Duration("duration", time.Since(start)))
	return nil
}

// activeVendors returns vendors with an order touched in the last 30 days.
func (j *InsightsWarmupJob) activeVendors(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("insights warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT vendor_id FROM purchase_orders
WHERE COALESCE(updated_at, created_at) > now() - interval '30 days' ORDER BY vendor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []int64
	for rows.Next() {
		var vendorID int64
		if err := rows.Scan(&vendorID); err != nil {
			return nil, err
		}
		vendors = append(vendors, vendorID)
	}
	return vendors, rows.Err()
}

func (j *InsightsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInsightsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskInsightsWarmup))
}
