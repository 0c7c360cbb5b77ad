package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brickline-erp/brickline/internal/insights"
	"github.com/brickline-erp/brickline/internal/observability"
)

// PendingActionScanJob recomputes per-vendor pending counts and produces a
// notification payload for every vendor with something waiting on them: a
// pending invoice, an order in negotiation, or an order stale in sent or
// in_negotiation past the stale window. The job stops at enqueueing the
// payload; delivery is a separate consumer's concern.
type PendingActionScanJob struct {
	Pool    *pgxpool.Pool
	Source  insights.DataSource
	Client  *Client
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewPendingActionScanJob wires dependencies for the scan handler.
func NewPendingActionScanJob(pool *pgxpool.Pool, source insights.DataSource, client *Client, logger *slog.Logger, metrics *observability.Metrics) *PendingActionScanJob {
	return &PendingActionScanJob{Pool: pool, Source: source, Client: client, Logger: logger, Metrics: metrics}
}

type staleOrder struct {
	ID       int64
	Number   string
	VendorID int64
	Status   string
	Age      time.Duration
}

// Handle processes pending action scan tasks.
func (j *PendingActionScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Source == nil {
		return errors.New("pending scan: handler not configured")
	}
	var payload PendingActionScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.StaleAfterHours <= 0 {
		payload.StaleAfterHours = 48
	}

	logger := j.logger()
	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(payload.StaleAfterHours) * time.Hour)

	stale, err := j.staleOrders(ctx, cutoff)
	if err != nil {
		j.Metrics.JobProcessed(TaskPendingActionScan, "error")
		return err
	}
	invoiceVendors, err := j.pendingInvoiceVendors(ctx)
	if err != nil {
		j.Metrics.JobProcessed(TaskPendingActionScan, "error")
		return err
	}

	notifications, err := j.buildNotifications(ctx, stale, invoiceVendors, now)
	if err != nil {
		j.Metrics.JobProcessed(TaskPendingActionScan, "error")
		return err
	}

	for _, n := range notifications {
		if j.Client == nil {
			serialized, _ := json.Marshal(n)
			logger.Info("produced vendor notification", slog.String("payload", string(serialized)))
			continue
		}
		if _, err := j.Client.EnqueueVendorPendingNotification(ctx, n); err != nil {
			j.Metrics.JobProcessed(TaskPendingActionScan, "error")
			logger.Error("enqueue vendor notification", slog.Int64("vendor_id", n.VendorID), slog.Any("error", err))
			return err
		}
	}

	j.Metrics.JobProcessed(TaskPendingActionScan, "ok")
	logger.Info("completed pending action scan",
		slog.Int("stale_orders", len(stale)),
		slog.Int("notifications", len(notifications)))
	return nil
}

// buildNotifications recomputes the pending count per vendor over the
// vendor's full order and invoice sets, attaching that vendor's stale order
// references. Vendors with nothing pending and nothing stale are skipped.
func (j *PendingActionScanJob) buildNotifications(ctx context.Context, stale []staleOrder, extraVendors []int64, at time.Time) ([]VendorPendingNotification, error) {
	staleByVendor := make(map[int64][]StaleOrderRef)
	for _, so := range stale {
		staleByVendor[so.VendorID] = append(staleByVendor[so.VendorID], StaleOrderRef{
			ID:       so.ID,
			Number:   so.Number,
			Status:   so.Status,
			AgeHours: int(so.Age.Hours()),
		})
	}

	vendorSet := make(map[int64]struct{}, len(staleByVendor)+len(extraVendors))
	for vendorID := range staleByVendor {
		vendorSet[vendorID] = struct{}{}
	}
	for _, vendorID := range extraVendors {
		vendorSet[vendorID] = struct{}{}
	}
	vendors := make([]int64, 0, len(vendorSet))
	for vendorID := range vendorSet {
		vendors = append(vendors, vendorID)
	}
	sort.Slice(vendors, func(i, k int) bool { return vendors[i] < vendors[k] })

	var out []VendorPendingNotification
	for _, vendorID := range vendors {
		orders, err := j.Source.VendorOrders(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		invoices, err := j.Source.VendorInvoices(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		count := insights.VendorPendingCount(vendorID, orders, invoices)
		refs := staleByVendor[vendorID]
		if count == 0 && len(refs) == 0 {
			continue
		}
		out = append(out, VendorPendingNotification{
			VendorID:     vendorID,
			PendingCount: count,
			StaleOrders:  refs,
			GeneratedAt:  at,
		})
	}
	return out, nil
}

func (j *PendingActionScanJob) staleOrders(ctx context.Context, cutoff time.Time) ([]staleOrder, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id, number, vendor_id, status, COALESCE(updated_at, created_at)
FROM purchase_orders
WHERE status IN ('sent', 'in_negotiation') AND COALESCE(updated_at, created_at) < $1
ORDER BY COALESCE(updated_at, created_at)`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []staleOrder
	for rows.Next() {
		var so staleOrder
		var touched time.Time
		if err := rows.Scan(&so.ID, &so.Number, &so.VendorID, &so.Status, &touched); err != nil {
			return nil, err
		}
		so.Age = time.Since(touched)
		stale = append(stale, so)
	}
	return stale, rows.Err()
}

func (j *PendingActionScanJob) pendingInvoiceVendors(ctx context.Context) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT vendor_id FROM vendor_invoices WHERE status = 'pending' ORDER BY vendor_id`)
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

func (j *PendingActionScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPendingActionScan))
	}
	return slog.Default().With(slog.String("job", TaskPendingActionScan))
}
