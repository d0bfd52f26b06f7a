package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/parcelhub/parcelhub/jobs"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    enqueuer
	inspector queueInspector
	// Retention is used for manually triggered idempotency cleanups.
	Retention time.Duration
}

// NewJobsCLI initialises the CLI helpers against the given Redis connection.
func NewJobsCLI(opts asynq.RedisClientOpt) (*JobsCLI, error) {
	if opts.Addr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskIdempotencyCleanup:
		task, err = jobs.NewIdempotencyCleanupTask(c.Retention)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the state of one queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueues reports metrics for the notification and default queues.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	out := make([]QueueStats, 0, 2)
	for _, queue := range []string{jobs.QueueNotifications, jobs.QueueDefault} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats := QueueStats{Queue: queue}
		info, err := c.inspector.GetQueueInfo(queue)
		if err != nil {
			// Queues are created lazily, so an unused queue is simply empty.
			if errors.Is(err, asynq.ErrQueueNotFound) {
				out = append(out, stats)
				continue
			}
			return nil, fmt.Errorf("jobs cli: inspect %s: %w", queue, err)
		}
		if info != nil {
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
			stats.Archived = info.Archived
		}
		out = append(out, stats)
	}
	return out, nil
}

// ListScheduled returns scheduled task infos on the default queue.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// StatsOptions controls the output of StatsCommand.
type StatsOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// StatsCommand prints queue stats and returns a process exit code. Exit code
// 10 means at least one queue has archived (dead) tasks.
func (c *JobsCLI) StatsCommand(ctx context.Context, opts StatsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	stats, err := c.InspectQueues(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "%-14s %8s %8s %10s %6s %9s\n", "QUEUE", "PENDING", "ACTIVE", "SCHEDULED", "RETRY", "ARCHIVED")
		for _, s := range stats {
			_, _ = fmt.Fprintf(opts.Stdout, "%-14s %8d %8d %10d %6d %9d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
		}
	}
	for _, s := range stats {
		if s.Archived > 0 {
			return 10
		}
	}
	return 0
}
