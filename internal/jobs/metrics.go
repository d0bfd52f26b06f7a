// Package jobmetrics instruments the asynq task handlers.
package jobmetrics

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// SMSOutcome labels one delivery attempt.
type SMSOutcome string

const (
	SMSSent      SMSOutcome = "sent"
	SMSRetry     SMSOutcome = "retry"
	SMSFailed    SMSOutcome = "failed"
	SMSSimulated SMSOutcome = "simulated"
)

// Run statuses recorded on parcelhub_jobs_total.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	// StatusDropped marks a run that returned asynq.SkipRetry.
	StatusDropped = "dropped"
)

// Metrics holds the worker's collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sms      *prometheus.CounterVec
	pruned   prometheus.Counter
}

// NewMetrics builds the collectors and registers them when registerer is
// not nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parcelhub_jobs_total",
			Help: "Task runs by task type and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parcelhub_jobs_failures_total",
			Help: "Task runs that returned an error, retried or not.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parcelhub_job_duration_seconds",
			Help:    "Task run duration in seconds.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"job"}),
		sms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parcelhub_sms_total",
			Help: "SMS delivery attempts by outcome.",
		}, []string{"outcome"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parcelhub_idempotency_keys_pruned_total",
			Help: "Booking idempotency keys removed by the cleanup task.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.runs, m.failures, m.duration, m.sms, m.pruned)
	}
	return m
}

// Run times one task execution.
type Run struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Start opens a Run for the task type job.
func (m *Metrics) Start(job string) Run {
	return Run{metrics: m, job: job, start: time.Now()}
}

// Finish records the run's status and duration and returns err unchanged,
// so handlers can write `defer func() { err = run.Finish(err) }()`.
func (r Run) Finish(err error) error {
	if r.metrics == nil || r.job == "" {
		return err
	}
	r.metrics.runs.WithLabelValues(r.job, status(err)).Inc()
	if err != nil {
		r.metrics.failures.WithLabelValues(r.job).Inc()
	}
	r.metrics.duration.WithLabelValues(r.job).Observe(time.Since(r.start).Seconds())
	return err
}

func status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, asynq.SkipRetry):
		return StatusDropped
	default:
		return StatusFailure
	}
}

// SMS counts one delivery attempt.
func (m *Metrics) SMS(outcome SMSOutcome) {
	if m == nil {
		return
	}
	m.sms.WithLabelValues(string(outcome)).Inc()
}

// Pruned adds n removed idempotency keys.
func (m *Metrics) Pruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}
