package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/octane-tech/nfc-tracker/internal/jobs"
)

// KeyCleaner removes expired idempotency claims.
type KeyCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes the idempotency_keys table.
type IdempotencyCleanupJob struct {
	cleaner KeyCleaner
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job handler.
func NewIdempotencyCleanupJob(cleaner KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{cleaner: cleaner, logger: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("idempotency_cleanup")
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.RetentionHours <= 0 {
		return tracker.End(fmt.Errorf("invalid cleanup payload: %w", asynq.SkipRetry))
	}
	removed, err := j.cleaner.Cleanup(ctx, time.Duration(payload.RetentionHours)*time.Hour)
	if err != nil {
		return tracker.End(err)
	}
	j.logger.Info("idempotency keys pruned", slog.Int64("removed", removed), slog.Int("retention_hours", payload.RetentionHours))
	return tracker.End(nil)
}
