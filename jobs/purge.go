package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/octane-tech/nfc-tracker/internal/jobs"
	"github.com/octane-tech/nfc-tracker/internal/nfc"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// MonthPurger is the subset of the NFC service the purge job needs.
type MonthPurger interface {
	PurgeMonth(ctx context.Context, actor shared.Identity, month string) (*nfc.PurgeResult, error)
}

// PurgeMonthJob runs month purges queued by admins.
type PurgeMonthJob struct {
	purger  MonthPurger
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewPurgeMonthJob constructs the job handler.
func NewPurgeMonthJob(purger MonthPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurgeMonthJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeMonthJob{purger: purger, logger: logger, metrics: metrics}
}

// Handle processes TaskPurgeMonth tasks.
func (j *PurgeMonthJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("purge_month")
	var payload PurgeMonthPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
	}
	actor := shared.Identity{ID: payload.ActorID, Role: shared.RoleAdmin}
	result, err := j.purger.PurgeMonth(ctx, actor, payload.Month)
	if err != nil {
		j.logger.Error("purge month job", slog.String("month", payload.Month), slog.Any("error", err))
		if errors.Is(err, httpx.ErrValidation) {
			err = fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return tracker.End(err)
	}
	j.metrics.AddImageDeletes(result.ImagesDeleted, result.ImagesFailed)
	if w := task.ResultWriter(); w != nil {
		if data, err := json.Marshal(result); err == nil {
			_, _ = w.Write(data)
		}
	}
	return tracker.End(nil)
}
