// Package jobs defines the background tasks and the Asynq worker that runs
// them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lumina-dist/lumina/internal/jobs"
	"github.com/lumina-dist/lumina/internal/reports"
	"github.com/lumina-dist/lumina/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan walks the stock levels and flags items at or below
	// the threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// idempotencyRetention is how long processed keys stay around before the
// cleanup cron removes them.
const idempotencyRetention = 7 * 24 * time.Hour

// LowStockScanPayload parametrises a scan run. A zero threshold uses the
// service's configured one.
type LowStockScanPayload struct {
	RequestedBy int64 `json:"requested_by,omitempty"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// Deps carries what the task handlers need.
type Deps struct {
	Logger      *slog.Logger
	Reports     *reports.Service
	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore
	Metrics     *jobmetrics.Metrics
}

// HandleLowStockScan finds items at or below the threshold and writes one
// audit row per finding. The alert surface reads those rows.
func (d Deps) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := d.Metrics.Track("low_stock_scan")
	items, err := d.Reports.LowStock(ctx)
	if err != nil {
		return tracker.End(err)
	}
	d.Metrics.SetLowStockCount(len(items))

	for _, item := range items {
		err := d.Audit.Record(ctx, shared.AuditLog{
			ActorID:  payload.RequestedBy,
			Action:   "inventory.low_stock",
			Entity:   "item",
			EntityID: strconv.FormatInt(item.ID, 10),
			Meta: map[string]any{
				"sku":            item.SKU,
				"name":           item.Name,
				"total_quantity": item.TotalQuantity,
				"threshold":      d.Reports.Threshold(),
			},
			At: time.Now().UTC(),
		})
		if err != nil {
			d.Logger.Warn("low stock audit", slog.String("sku", item.SKU), slog.Any("error", err))
		}
	}
	d.Logger.Info("low stock scan complete", slog.Int("flagged", len(items)))
	return tracker.End(nil)
}

// HandleIdempotencyCleanup prunes keys older than the retention window.
func (d Deps) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	tracker := d.Metrics.Track("idempotency_cleanup")
	return tracker.End(d.Idempotency.Cleanup(ctx, idempotencyRetention))
}
