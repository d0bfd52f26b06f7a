package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/parcelhub/parcelhub/internal/jobs"
)

const defaultKeyRetention = 72 * time.Hour

// KeyCleaner removes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes booking idempotency keys.
type IdempotencyCleanupJob struct {
	Store   KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob initialises the handler.
func NewIdempotencyCleanupJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes one cleanup run.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("idempotency cleanup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = defaultKeyRetention
	}

	run := j.Metrics.Start(TaskIdempotencyCleanup)
	defer func() { err = run.Finish(err) }()

	removed, err := j.Store.Cleanup(ctx, retention)
	j.Metrics.Pruned(removed)
	if err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("idempotency keys pruned", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return nil
}
