package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/parcelhub/parcelhub/internal/jobs"
	"github.com/parcelhub/parcelhub/internal/notify"
)

// SMSSender is the outbound gateway.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// SendSMSJob delivers queued notifications.
type SendSMSJob struct {
	Gateway SMSSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSendSMSJob initialises the handler. A nil gateway simulates delivery.
func NewSendSMSJob(gateway SMSSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendSMSJob {
	return &SendSMSJob{Gateway: gateway, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendSMS tasks. Gateway rejections are not retried.
func (j *SendSMSJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("sms send: handler not configured")
	}
	var sms notify.SMS
	if err := json.Unmarshal(t.Payload(), &sms); err != nil {
		return fmt.Errorf("sms send: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if sms.To == "" || sms.Body == "" {
		return fmt.Errorf("sms send: empty recipient or body: %w", asynq.SkipRetry)
	}

	run := j.Metrics.Start(TaskTypeSendSMS)
	defer func() { err = run.Finish(err) }()

	logger := j.logger().With(slog.Int64("message_id", sms.MessageID), slog.String("to", sms.To))
	if isNil(j.Gateway) {
		logger.Info("sms delivery simulated", slog.String("message", sms.Body))
		j.Metrics.SMS(jobmetrics.SMSSimulated)
		return nil
	}

	if err := j.Gateway.Send(ctx, sms.To, sms.Body); err != nil {
		if errors.Is(err, notify.ErrGatewayRejected) {
			logger.Warn("sms rejected", slog.Any("error", err))
			j.Metrics.SMS(jobmetrics.SMSFailed)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Warn("sms delivery failed, will retry", slog.Any("error", err))
		j.Metrics.SMS(jobmetrics.SMSRetry)
		return err
	}
	logger.Debug("sms sent")
	j.Metrics.SMS(jobmetrics.SMSSent)
	return nil
}

func (j *SendSMSJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// isNil catches a typed nil *notify.Gateway stored in the interface.
func isNil(s SMSSender) bool {
	if s == nil {
		return true
	}
	g, ok := s.(*notify.Gateway)
	return ok && g == nil
}
