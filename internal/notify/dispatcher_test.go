package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []Message
	err    error
}

func (m *memoryRepo) Insert(_ context.Context, msg Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Message{}, m.err
	}
	m.nextID++
	msg.ID = m.nextID
	msg.CreatedAt = time.Now()
	m.rows = append(m.rows, msg)
	return msg, nil
}

func (m *memoryRepo) List(_ context.Context, scope Scope, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if scope.covers(m.rows[i].OfficeID) {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkRead(_ context.Context, scope Scope, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && scope.covers(m.rows[i].OfficeID) {
			m.rows[i].IsRead = true
			return nil
		}
	}
	return ErrMessageNotFound
}

type recordingQueue struct {
	sent []SMS
	err  error
}

func (q *recordingQueue) EnqueueSMS(_ context.Context, sms SMS) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, sms)
	return nil
}

type recordingFeed struct {
	got []Message
}

func (f *recordingFeed) Broadcast(msg Message) { f.got = append(f.got, msg) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherRecordsBroadcastsAndQueues(t *testing.T) {
	repo := &memoryRepo{}
	queue := &recordingQueue{}
	feed := &recordingFeed{}
	d := NewDispatcher(repo, queue, feed, quietLogger())

	err := d.Notify(context.Background(), Notification{
		Recipient:  Receiver,
		Phone:      "+9779800000000",
		TrackingID: "TRK-100100",
		Message:    "Parcel TRK-100100 is now in transit",
		OfficeID:   "branch-a",
	})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, Receiver, repo.rows[0].Recipient)
	require.Len(t, feed.got, 1)
	assert.Equal(t, int64(1), feed.got[0].ID)
	require.Len(t, queue.sent, 1)
	assert.Equal(t, SMS{MessageID: 1, To: "+9779800000000", Body: "Parcel TRK-100100 is now in transit"}, queue.sent[0])
}

func TestDispatcherSimulatesWithoutQueue(t *testing.T) {
	repo := &memoryRepo{}
	d := NewDispatcher(repo, nil, nil, quietLogger())

	err := d.Notify(context.Background(), Notification{Recipient: Sender, Phone: "+9779800000001", TrackingID: "TRK-1", Message: "hi"})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 1)
}

func TestDispatcherReportsPartialFailure(t *testing.T) {
	repo := &memoryRepo{err: errors.New("db down")}
	queue := &recordingQueue{}
	d := NewDispatcher(repo, queue, nil, quietLogger())

	err := d.Notify(context.Background(), Notification{Recipient: Sender, Phone: "+9779800000001", TrackingID: "TRK-1", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Len(t, queue.sent, 1, "sms still queued when the log write fails")
}

func TestDispatcherRejectsInvalidNotification(t *testing.T) {
	d := NewDispatcher(&memoryRepo{}, nil, nil, quietLogger())

	assert.Error(t, d.Notify(context.Background(), Notification{Recipient: "BOTH", Message: "x"}))
	assert.Error(t, d.Notify(context.Background(), Notification{Recipient: Sender, Message: "  "}))
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	assert.Equal(t, "1,250.00", FormatAmount(1250))
	assert.Equal(t, "0.50", FormatAmount(0.5))
}
