package shipment

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parcelhub/parcelhub/internal/notify"
	"github.com/parcelhub/parcelhub/internal/shared"
)

const (
	idempotencyModule   = "shipment.create"
	maxTrackingAttempts = 5
	bookedRemark        = "Shipment booked successfully."
)

// Notifier is the notification sink boundary.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// IdempotencyStore guards booking replays keyed by the Idempotency-Key header.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, module string) error
	Release(ctx context.Context, key, module string) error
}

// CacheInvalidator drops derived read models after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// TransitionRecorder counts transition attempts by target and outcome.
type TransitionRecorder interface {
	RecordTransition(to, outcome string)
}

// CreateRequest carries a booking. Source is always the caller's branch.
type CreateRequest struct {
	SenderName      string
	SenderPhone     string
	ReceiverName    string
	ReceiverPhone   string
	Description     string
	Price           float64
	PaymentMode     PaymentMode
	DestinationSlug string
	BusSlug         string
	// Day defaults to the source branch's operational date.
	Day            time.Time
	IdempotencyKey string
}

// Service is the lifecycle engine in front of the shipment store.
type Service struct {
	repo     Repository
	notifier Notifier
	messages Messages
	logger   *slog.Logger

	idem    IdempotencyStore
	cache   CacheInvalidator
	metrics TransitionRecorder

	now           func() time.Time
	newTrackingID func() (string, error)
}

// NewService constructs a shipment service.
func NewService(repo Repository, notifier Notifier, messages Messages, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		messages:      messages,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newTrackingID: NewTrackingID,
	}
}

// SetIdempotencyStore enables Idempotency-Key handling on Create.
func (s *Service) SetIdempotencyStore(store IdempotencyStore) { s.idem = store }

// SetCacheInvalidator registers the analytics cache.
func (s *Service) SetCacheInvalidator(c CacheInvalidator) { s.cache = c }

// SetMetrics registers the transition counter.
func (s *Service) SetMetrics(m TransitionRecorder) { s.metrics = m }

// NewTrackingID returns "TRK-" followed by six random digits.
func NewTrackingID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TRK-%06d", n.Int64()), nil
}

// Create books a shipment from the caller's branch.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateRequest) (*Shipment, error) {
	if !p.IsOfficeAdmin() {
		return nil, ErrUnauthorized
	}
	if req.PaymentMode == "" {
		req.PaymentMode = SenderPays
	}
	if !req.PaymentMode.IsValid() {
		return nil, fmt.Errorf("%w: payment mode %q", ErrInvalidPayment, req.PaymentMode)
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if req.DestinationSlug == p.OfficeID {
		return nil, ErrSameRoute
	}

	if req.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Reserve(ctx, req.IdempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, ErrDuplicateRequest
			}
			return nil, err
		}
	}

	created, err := s.create(ctx, p, req)
	if err != nil {
		if req.IdempotencyKey != "" && s.idem != nil {
			if delErr := s.idem.Release(ctx, req.IdempotencyKey, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return nil, err
	}

	s.notify(ctx, s.messages.bookingForSender(created))
	s.notify(ctx, s.messages.bookingForReceiver(created))
	s.bumpCache(ctx)
	s.logger.Info("shipment booked",
		slog.String("tracking_id", created.TrackingID),
		slog.String("source", created.SourceOfficeID()),
		slog.String("destination", created.DestinationOfficeID()),
	)
	return created, nil
}

func (s *Service) create(ctx context.Context, p shared.Principal, req CreateRequest) (*Shipment, error) {
	source, err := s.repo.GetOffice(ctx, p.OfficeID)
	if err != nil {
		if errors.Is(err, ErrDestinationNotFound) {
			return nil, fmt.Errorf("%w: caller has no branch", ErrUnauthorized)
		}
		return nil, err
	}
	dest, err := s.repo.GetOffice(ctx, req.DestinationSlug)
	if err != nil {
		return nil, err
	}
	var bus *BusRef
	if req.BusSlug != "" {
		if bus, err = s.repo.GetBus(ctx, req.BusSlug); err != nil {
			return nil, err
		}
	}

	now := s.now()
	day := req.Day
	if day.IsZero() {
		day = source.OperationalDate
	}
	if day.IsZero() {
		day = now
	}
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	shipment := &Shipment{
		Slug:          uuid.NewString(),
		SenderName:    strings.TrimSpace(req.SenderName),
		SenderPhone:   strings.TrimSpace(req.SenderPhone),
		ReceiverName:  strings.TrimSpace(req.ReceiverName),
		ReceiverPhone: strings.TrimSpace(req.ReceiverPhone),
		Source:        *source,
		Destination:   *dest,
		Description:   req.Description,
		Price:         req.Price,
		PaymentMode:   req.PaymentMode,
		Bus:           bus,
		CurrentStatus: StatusBooked,
		Day:           day,
	}
	booked := TrackingEvent{
		Status:    StatusBooked,
		Location:  source.Title,
		Note:      bookedRemark,
		Timestamp: now,
	}

	for attempt := 0; attempt < maxTrackingAttempts; attempt++ {
		id, err := s.newTrackingID()
		if err != nil {
			return nil, err
		}
		shipment.TrackingID = id
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := tx.InsertShipment(ctx, shipment); err != nil {
				return err
			}
			return tx.AppendHistory(ctx, shipment.Slug, booked)
		})
		if errors.Is(err, ErrTrackingIDTaken) {
			s.logger.Debug("tracking id collision", slog.String("tracking_id", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create shipment: %w", err)
		}
		return s.reload(ctx, shipment, booked), nil
	}
	return nil, ErrTrackingIDExhausted
}

// Get returns a shipment the principal may see.
func (s *Service) Get(ctx context.Context, p shared.Principal, trackingID string) (*Shipment, error) {
	shipment, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if !CanView(shipment, p) {
		return nil, ErrUnauthorized
	}
	return shipment, nil
}

// Track is the public read path.
func (s *Service) Track(ctx context.Context, trackingID string) (*Shipment, error) {
	return s.repo.GetByTrackingID(ctx, trackingID)
}

// Actions returns the shipment and the next transition p may fire, if any.
func (s *Service) Actions(ctx context.Context, p shared.Principal, trackingID string) (*Shipment, *Transition, error) {
	shipment, err := s.Get(ctx, p, trackingID)
	if err != nil {
		return nil, nil, err
	}
	next, ok := NextAction(shipment, p)
	if !ok {
		return shipment, nil, nil
	}
	return shipment, &next, nil
}

// List returns shipments in the principal's scope: every shipment for a
// super admin, source-or-destination matches for an office admin.
func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter) ([]Shipment, error) {
	switch {
	case p.IsSuperAdmin():
		filter.OfficeID = ""
	case p.IsOfficeAdmin():
		filter.OfficeID = p.OfficeID
	default:
		return nil, ErrUnauthorized
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

// Transition moves a shipment to target. The store's compare-and-set is the
// final authority: a concurrent writer turns this call into ErrStaleState with
// no history entry and no notification.
func (s *Service) Transition(ctx context.Context, p shared.Principal, trackingID string, target Status, note string) (*Shipment, error) {
	shipment, err := s.transition(ctx, p, trackingID, target, note)
	s.record(target, err)
	return shipment, err
}

func (s *Service) transition(ctx context.Context, p shared.Principal, trackingID string, target Status, note string) (*Shipment, error) {
	current, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(current, p, target); err != nil {
		s.logger.Info("transition refused",
			slog.String("tracking_id", trackingID),
			slog.String("from", string(current.CurrentStatus)),
			slog.String("to", string(target)),
			slog.Int64("user_id", p.UserID),
			slog.Any("error", err),
		)
		return nil, err
	}
	row, _ := TransitionTo(target)

	ev := TrackingEvent{
		Status:    row.To,
		Location:  officeTitle(current, p.OfficeID),
		Note:      strings.TrimSpace(note),
		Timestamp: s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		changed, err := tx.CompareAndSetStatus(ctx, trackingID, row.From, row.To)
		if err != nil {
			return err
		}
		if !changed {
			return ErrStaleState
		}
		return tx.AppendHistory(ctx, current.Slug, ev)
	})
	if err != nil {
		return nil, err
	}

	current.CurrentStatus = row.To
	updated := s.reload(ctx, current, ev)

	s.notify(ctx, s.messages.forTransition(updated, row, p.OfficeID))
	s.bumpCache(ctx)
	s.logger.Info("shipment transitioned",
		slog.String("tracking_id", trackingID),
		slog.String("action", row.Action),
		slog.String("from", string(row.From)),
		slog.String("to", string(row.To)),
		slog.Int64("user_id", p.UserID),
	)
	return updated, nil
}

// reload re-reads the committed shipment. When the read fails the write has
// still committed, so the local copy with the appended event is returned.
func (s *Service) reload(ctx context.Context, local *Shipment, appended TrackingEvent) *Shipment {
	fresh, err := s.repo.GetByTrackingID(ctx, local.TrackingID)
	if err == nil {
		return fresh
	}
	s.logger.Warn("reload after write", slog.String("tracking_id", local.TrackingID), slog.Any("error", err))
	out := local.Clone()
	out.History = append(out.History, appended)
	return out
}

func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("notification failed",
			slog.String("tracking_id", n.TrackingID),
			slog.String("recipient", string(n.Recipient)),
			slog.Any("error", err),
		)
	}
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("analytics cache bump", slog.Any("error", err))
	}
}

func (s *Service) record(target Status, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTransition(string(target), outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrStaleState):
		return "stale"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

func officeTitle(s *Shipment, officeID string) string {
	switch officeID {
	case s.Source.Slug:
		return s.Source.Title
	case s.Destination.Slug:
		return s.Destination.Title
	default:
		return officeID
	}
}
