package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications holds produced notification payloads for an
	// external delivery consumer; this worker never processes it.
	QueueNotifications = "notifications"
	// TaskInsightsWarmup pre-populates the cached aggregation views.
	TaskInsightsWarmup = "insights:warmup"
	// TaskPendingActionScan recomputes per-vendor pending counts and
	// produces notification payloads for vendors with stale actions.
	TaskPendingActionScan = "orders:pending_scan"
	// TaskVendorPendingNotification carries one vendor's pending summary.
	TaskVendorPendingNotification = "vendors:pending_notification"
)

// InsightsWarmupPayload scopes a warmup run. A zero VendorID warms every
// vendor with recent activity.
type InsightsWarmupPayload struct {
	VendorID int64 `json:"vendorId"`
}

// NewInsightsWarmupTask constructs an Asynq task.
func NewInsightsWarmupTask(payload InsightsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightsWarmup, data), nil
}

// StaleOrderRef identifies one order waiting on a response past the stale
// window.
type StaleOrderRef struct {
	ID       int64  `json:"id"`
	Number   string `json:"number"`
	Status   string `json:"status"`
	AgeHours int    `json:"ageHours"`
}

// VendorPendingNotification is the payload a pending-action scan produces
// per vendor. Delivery belongs to whoever consumes the notifications queue.
type VendorPendingNotification struct {
	VendorID     int64           `json:"vendorId"`
	PendingCount int             `json:"pendingCount"`
	StaleOrders  []StaleOrderRef `json:"staleOrders,omitempty"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// NewVendorPendingNotificationTask constructs an Asynq task.
func NewVendorPendingNotificationTask(payload VendorPendingNotification) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVendorPendingNotification, data), nil
}

// PendingActionScanPayload bounds the scan window in hours.
type PendingActionScanPayload struct {
	StaleAfterHours int `json:"staleAfterHours"`
}

// NewPendingActionScanTask constructs an Asynq task.
func NewPendingActionScanTask(payload PendingActionScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPendingActionScan, data), nil
}
