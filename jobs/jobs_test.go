package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/parcelhub/parcelhub/internal/jobs"
	"github.com/parcelhub/parcelhub/internal/notify"
)

type fakeGateway struct {
	err  error
	to   string
	body string
	n    int
}

func (f *fakeGateway) Send(_ context.Context, to, body string) error {
	f.n++
	f.to, f.body = to, body
	return f.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func smsTask(t *testing.T, sms notify.SMS) *asynq.Task {
	t.Helper()
	task, err := NewSendSMSTask(sms)
	require.NoError(t, err)
	return task
}

func TestNewSendSMSTaskPayload(t *testing.T) {
	task := smsTask(t, notify.SMS{MessageID: 4, To: "+9779800000002", Body: "Parcel TRK-000001 is now in transit."})
	assert.Equal(t, TaskTypeSendSMS, task.Type())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, "+9779800000002", decoded["to"])
	assert.Equal(t, "Parcel TRK-000001 is now in transit.", decoded["message"])
}

func TestSendSMSDelivers(t *testing.T) {
	gw := &fakeGateway{}
	job := NewSendSMSJob(gw, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), smsTask(t, notify.SMS{To: "+9779800000001", Body: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, 1, gw.n)
	assert.Equal(t, "+9779800000001", gw.to)
	assert.Equal(t, "hello", gw.body)
}

func TestSendSMSRejectedSkipsRetry(t *testing.T) {
	gw := &fakeGateway{err: errors.Join(notify.ErrGatewayRejected, errors.New("status 400"))}
	job := NewSendSMSJob(gw, quietLogger(), nil)

	err := job.Handle(context.Background(), smsTask(t, notify.SMS{To: "+1", Body: "x"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendSMSTransientErrorRetries(t *testing.T) {
	gw := &fakeGateway{err: errors.New("sms gateway: status 503")}
	job := NewSendSMSJob(gw, quietLogger(), nil)

	err := job.Handle(context.Background(), smsTask(t, notify.SMS{To: "+1", Body: "x"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestSendSMSSimulatesWithoutGateway(t *testing.T) {
	var gw *notify.Gateway
	job := NewSendSMSJob(gw, quietLogger(), nil)
	assert.NoError(t, job.Handle(context.Background(), smsTask(t, notify.SMS{To: "+1", Body: "x"})))

	job = NewSendSMSJob(nil, quietLogger(), nil)
	assert.NoError(t, job.Handle(context.Background(), smsTask(t, notify.SMS{To: "+1", Body: "x"})))
}

func TestSendSMSBadPayload(t *testing.T) {
	job := NewSendSMSJob(&fakeGateway{}, quietLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendSMS, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendSMS, []byte(`{"to":""}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeCleaner struct {
	olderThan time.Duration
	err       error
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 7, f.err
}

func TestIdempotencyCleanup(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, quietLogger(), nil)

	task, err := NewIdempotencyCleanupTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, cleaner.olderThan)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, defaultKeyRetention, cleaner.olderThan)

	cleaner.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestHealthWithoutInspector(t *testing.T) {
	res := serveHealth(NewHandler(nil, quietLogger()))
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Data []QueueHealth `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, []QueueHealth{{Queue: QueueNotifications}, {Queue: QueueDefault}}, body.Data)
}

type stubInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func serveHealth(h *Handler) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return res
}

func TestHealthReportsQueueDepth(t *testing.T) {
	insp := stubInspector{infos: map[string]*asynq.QueueInfo{
		QueueNotifications: {Queue: QueueNotifications, Pending: 4, Retry: 2, Archived: 1},
	}}
	res := serveHealth(NewHandler(insp, quietLogger()))
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Data []QueueHealth `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, QueueHealth{Queue: QueueNotifications, Pending: 4, Retry: 2, Archived: 1}, body.Data[0])
	assert.Equal(t, QueueHealth{Queue: QueueDefault}, body.Data[1])
}

func TestHealthUnavailableWhenRedisFails(t *testing.T) {
	res := serveHealth(NewHandler(stubInspector{err: errors.New("dial tcp: refused")}, quietLogger()))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.NotContains(t, res.Body.String(), "refused")
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	s.opts = append(s.opts, opts)
	return &asynq.TaskInfo{}, s.err
}

func (s *stubEnqueuer) Close() error { return nil }

func TestEnqueueSMSKeysTaskByMessage(t *testing.T) {
	stub := &stubEnqueuer{}
	c := &Client{client: stub, smsMaxRetry: 8}

	require.NoError(t, c.EnqueueSMS(context.Background(), notify.SMS{MessageID: 42, To: "+1", Body: "x"}))
	require.Len(t, stub.tasks, 1)
	assert.Equal(t, TaskTypeSendSMS, stub.tasks[0].Type())
	assert.Contains(t, stub.opts[0], asynq.TaskID("sms-42"))
	assert.Contains(t, stub.opts[0], asynq.MaxRetry(8))

	stub.err = asynq.ErrTaskIDConflict
	assert.NoError(t, c.EnqueueSMS(context.Background(), notify.SMS{MessageID: 42, To: "+1", Body: "x"}))

	stub.err = errors.New("redis down")
	assert.Error(t, c.EnqueueSMS(context.Background(), notify.SMS{To: "+1", Body: "x"}))
	assert.Len(t, stub.opts[2], 1)
}

func TestRetryDelay(t *testing.T) {
	sms := asynq.NewTask(TaskTypeSendSMS, nil)
	assert.Equal(t, 10*time.Second, retryDelay(0, nil, sms))
	assert.Equal(t, 40*time.Second, retryDelay(2, nil, sms))
	assert.Equal(t, smsRetryCap, retryDelay(20, nil, sms))
	assert.Positive(t, retryDelay(1, nil, asynq.NewTask(TaskIdempotencyCleanup, nil)))
}

func TestNewWorkerRejectsIncompleteRegistration(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Logger: quietLogger(), Handlers: []TaskHandler{{Type: TaskTypeSendSMS}}})
	assert.Error(t, err)
}
