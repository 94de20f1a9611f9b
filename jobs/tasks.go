package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gescom-erp/gescom-erp/internal/ledger/reports"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeTBSnapshot materializes a trial balance snapshot for a range.
	TaskTypeTBSnapshot = "reports:tb_snapshot"
	// TaskTypeCacheWarm pre-builds the current-month reports after a bump.
	TaskTypeCacheWarm = "reports:cache_warm"
	// TaskTypeIntegrity runs the nightly ledger integrity check.
	TaskTypeIntegrity = "ledger:integrity"
)

// TBSnapshotPayload bounds the snapshot range.
type TBSnapshotPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// NewTBSnapshotTask constructs an Asynq task for a trial balance snapshot.
func NewTBSnapshotTask(payload TBSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTBSnapshot, data), nil
}

// SnapshotStore persists materialized trial balances.
type SnapshotStore interface {
	SaveTrialBalanceSnapshot(ctx context.Context, tb reports.TrialBalance) error
}

// NewTBSnapshotHandler builds the handler processing TaskTypeTBSnapshot.
func NewTBSnapshotHandler(svc *reports.Service, store SnapshotStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TBSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		start, err := time.Parse("2006-01-02", payload.StartDate)
		if err != nil {
			return asynq.SkipRetry
		}
		end, err := time.Parse("2006-01-02", payload.EndDate)
		if err != nil {
			return asynq.SkipRetry
		}
		tb, err := svc.TrialBalance(ctx, start, end)
		if err != nil {
			return err
		}
		if store != nil {
			if err := store.SaveTrialBalanceSnapshot(ctx, tb); err != nil {
				return err
			}
		}
		if logger != nil {
			logger.Info("trial balance snapshot stored",
				slog.String("start", payload.StartDate),
				slog.String("end", payload.EndDate),
				slog.Int("lines", len(tb.Lines)))
		}
		return nil
	}
}

// NewCacheWarmHandler rebuilds the month-to-date reports so the first
// request after an invalidation does not pay the build cost.
func NewCacheWarmHandler(svc *reports.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		if _, err := svc.TrialBalance(ctx, start, now); err != nil {
			return err
		}
		if _, err := svc.BalanceSheet(ctx, now); err != nil {
			return err
		}
		if logger != nil {
			logger.Info("report caches warmed", slog.String("job", "cache_warm"))
		}
		return nil
	}
}
