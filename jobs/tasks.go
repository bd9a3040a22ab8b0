package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeMonth purges a calendar month of acknowledgments.
	TaskPurgeMonth = "acknowledgments:purge_month"
	// TaskIdempotencyCleanup drops expired Idempotency-Key claims.
	TaskIdempotencyCleanup = "idempotency:cleanup"

	// PurgeResultRetention keeps completed purges and their counts readable.
	PurgeResultRetention = 24 * time.Hour
)

// PurgeMonthPayload identifies the month to purge and the admin who asked.
type PurgeMonthPayload struct {
	ActorID int64  `json:"actor_id"`
	Month   string `json:"month"`
}

// NewPurgeMonthTask constructs the purge task. Purges are never retried:
// a second attempt would find no rows and report misleading counts.
func NewPurgeMonthTask(payload PurgeMonthPayload) (*asynq.Task, error) {
	if payload.Month == "" || payload.ActorID <= 0 {
		return nil, errors.New("jobs: purge payload requires month and actor")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeMonth, data,
		asynq.MaxRetry(0), asynq.Queue(QueueDefault), asynq.Retention(PurgeResultRetention)), nil
}

// IdempotencyCleanupPayload sets how long claimed keys are retained.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	hours := int(retention / time.Hour)
	if hours <= 0 {
		return nil, errors.New("jobs: cleanup retention must be at least one hour")
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
