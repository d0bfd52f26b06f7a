package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// SMSQueue hands messages to the background delivery worker.
type SMSQueue interface {
	EnqueueSMS(ctx context.Context, sms SMS) error
}

// Broadcaster pushes persisted messages to live clients.
type Broadcaster interface {
	Broadcast(msg Message)
}

// Dispatcher is the notification sink. Each Notify call records the message,
// pushes it to the live feed and queues SMS delivery.
type Dispatcher struct {
	repo   Repository
	queue  SMSQueue
	feed   Broadcaster
	logger *slog.Logger
}

// NewDispatcher wires the sink. queue and feed may be nil; a nil queue means
// SMS delivery is simulated.
func NewDispatcher(repo Repository, queue SMSQueue, feed Broadcaster, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{repo: repo, queue: queue, feed: feed, logger: logger}
}

// Notify records and forwards n. The returned error is informational; callers
// treat delivery as fire-and-forget.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	if !n.Recipient.IsValid() {
		return fmt.Errorf("notify: invalid recipient %q", n.Recipient)
	}
	if strings.TrimSpace(n.Message) == "" {
		return errors.New("notify: empty message")
	}
	logger := d.logger.With(
		slog.String("tracking_id", n.TrackingID),
		slog.String("recipient", string(n.Recipient)),
	)

	msg := Message{
		OfficeID:   n.OfficeID,
		Recipient:  n.Recipient,
		Phone:      n.Phone,
		TrackingID: n.TrackingID,
		Content:    n.Message,
	}
	var errs []error
	if d.repo != nil {
		stored, err := d.repo.Insert(ctx, msg)
		if err != nil {
			errs = append(errs, err)
		} else {
			msg = stored
		}
	}
	if d.feed != nil {
		d.feed.Broadcast(msg)
	}

	sms := SMS{MessageID: msg.ID, To: n.Phone, Body: n.Message}
	switch {
	case n.Phone == "":
		logger.Warn("notification without phone number, sms skipped")
	case d.queue == nil:
		logger.Info("sms simulated", slog.String("to", n.Phone), slog.String("body", n.Message))
	default:
		if err := d.queue.EnqueueSMS(ctx, sms); err != nil {
			errs = append(errs, fmt.Errorf("enqueue sms: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("notification incomplete", slog.Any("error", err))
		return err
	}
	return nil
}
