package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 5
	smsRetryBase       = 10 * time.Second
	smsRetryCap        = 10 * time.Minute
)

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
	// Concurrency defaults to 5.
	Concurrency int
}

// Worker drains the notification and maintenance queues and fires the cron
// schedule.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker validates cfg and builds the asynq server and scheduler.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, fmt.Errorf("worker: incomplete handler registration %q", h.Type)
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueNotifications: 3,
			QueueDefault:       1,
		},
		RetryDelayFunc: retryDelay,
		ErrorHandler:   asynq.ErrorHandlerFunc(failureLogger(logger)),
		Logger:         asynqLogger{logger},
	})

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   asynqLogger{logger},
		})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				return nil, errors.New("worker: cron entry needs a spec and a task")
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, fmt.Errorf("worker: register %s: %w", entry.Task.Type(), err)
			}
		}
	}
	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Run processes tasks until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("worker: start server: %w", err)
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("worker: start scheduler: %w", err)
		}
	}
	w.logger.Info("worker started")

	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	return ctx.Err()
}

// retryDelay backs SMS off exponentially from 10s up to 10m. Other tasks use
// the asynq default.
func retryDelay(n int, err error, t *asynq.Task) time.Duration {
	if t.Type() != TaskTypeSendSMS {
		return asynq.DefaultRetryDelayFunc(n, err, t)
	}
	d := smsRetryBase
	for i := 0; i < n && d < smsRetryCap; i++ {
		d *= 2
	}
	return min(d, smsRetryCap)
}

func failureLogger(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, t *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		attrs := []any{
			slog.String("task", t.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.Any("error", err),
		}
		if errors.Is(err, asynq.SkipRetry) || retried >= maxRetry {
			logger.Error("task archived", attrs...)
			return
		}
		logger.Warn("task failed, retry scheduled", attrs...)
	}
}

// asynqLogger adapts slog to the asynq logger interface.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
