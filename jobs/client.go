package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/parcelhub/parcelhub/internal/notify"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client puts notifications on the SMS queue.
type Client struct {
	client      taskEnqueuer
	smsMaxRetry int
}

// NewClient connects to the queue. smsMaxRetry overrides the task default
// when positive.
func NewClient(redisOpts asynq.RedisClientOpt, smsMaxRetry int) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts), smsMaxRetry: smsMaxRetry}, nil
}

// EnqueueSMS hands one SMS to the worker. A message that already has a
// queued task is not enqueued twice.
func (c *Client) EnqueueSMS(ctx context.Context, sms notify.SMS) error {
	task, err := NewSendSMSTask(sms)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if c.smsMaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(c.smsMaxRetry))
	}
	if sms.MessageID > 0 {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("sms-%d", sms.MessageID)))
	}
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ notify.SMSQueue = (*Client)(nil)
