package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/parcelhub/parcelhub/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries outbound SMS and is weighted above maintenance work.
	QueueNotifications = "notifications"

	// TaskTypeSendSMS delivers one notification through the SMS gateway.
	TaskTypeSendSMS = "sms:send"
	// TaskIdempotencyCleanup prunes expired booking idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

const (
	smsMaxRetry = 5
	smsTimeout  = 30 * time.Second
)

// IdempotencyCleanupPayload configures a cleanup run.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSendSMSTask constructs an Asynq task for one SMS.
func NewSendSMSTask(sms notify.SMS) (*asynq.Task, error) {
	data, err := json.Marshal(sms)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendSMS, data,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(smsMaxRetry),
		asynq.Timeout(smsTimeout),
	), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
