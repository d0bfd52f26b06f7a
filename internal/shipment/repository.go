package shipment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelhub/parcelhub/internal/platform/db"
)

// ListFilter narrows List. An empty OfficeID lists the whole network.
type ListFilter struct {
	OfficeID string
	Status   Status
	Day      time.Time
	Limit    int
	Offset   int
}

// Repository is the shipment store. Writes go through WithTx.
type Repository interface {
	GetByTrackingID(ctx context.Context, trackingID string) (*Shipment, error)
	GetOffice(ctx context.Context, slug string) (*Office, error)
	GetBus(ctx context.Context, slug string) (*BusRef, error)
	List(ctx context.Context, filter ListFilter) ([]Shipment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the write path inside a transaction.
type TxRepository interface {
	InsertShipment(ctx context.Context, s *Shipment) error
	AppendHistory(ctx context.Context, slug string, ev TrackingEvent) error
	// CompareAndSetStatus moves the shipment from -> to and reports whether a row changed.
	CompareAndSetStatus(ctx context.Context, trackingID string, from, to Status) (bool, error)
}

// PGRepository implements Repository on postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectShipment = `
	SELECT s.slug, s.tracking_id, s.sender_name, s.sender_phone, s.receiver_name, s.receiver_phone,
	       s.source_branch, src.title, src.current_operational_date,
	       s.destination_branch, dst.title, dst.current_operational_date,
	       COALESCE(s.description, ''), s.price::float8, s.payment_mode,
	       b.slug, b.bus_number, b.preferred_days,
	       s.current_status, s.day, s.created_at, s.updated_at
	FROM shipments s
	JOIN branches src ON src.slug = s.source_branch
	JOIN branches dst ON dst.slug = s.destination_branch
	LEFT JOIN buses b ON b.slug = s.bus_slug`

// GetByTrackingID loads a shipment with its full history.
func (r *PGRepository) GetByTrackingID(ctx context.Context, trackingID string) (*Shipment, error) {
	row := r.pool.QueryRow(ctx, selectShipment+` WHERE s.tracking_id = $1`, trackingID)
	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr(err)
	}
	history, err := r.history(ctx, []string{s.Slug})
	if err != nil {
		return nil, err
	}
	s.History = history[s.Slug]
	return s, nil
}

// GetOffice loads the branch projection used for routing.
func (r *PGRepository) GetOffice(ctx context.Context, slug string) (*Office, error) {
	var o Office
	err := r.pool.QueryRow(ctx, `SELECT slug, title, current_operational_date FROM branches WHERE slug = $1`, slug).
		Scan(&o.Slug, &o.Title, &o.OperationalDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDestinationNotFound
		}
		return nil, storeErr(err)
	}
	return &o, nil
}

// GetBus loads a bus reference.
func (r *PGRepository) GetBus(ctx context.Context, slug string) (*BusRef, error) {
	var b BusRef
	var days []int32
	err := r.pool.QueryRow(ctx, `SELECT slug, bus_number, preferred_days FROM buses WHERE slug = $1`, slug).
		Scan(&b.Slug, &b.BusNumber, &days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, storeErr(err)
	}
	b.PreferredDays = intsOf(days)
	return &b, nil
}

// List returns shipments newest first, each with history.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Shipment, error) {
	query := selectShipment + `
	WHERE ($1 = '' OR s.source_branch = $1 OR s.destination_branch = $1)
	  AND ($2 = '' OR s.current_status = $2)
	  AND ($3::date IS NULL OR s.day = $3::date)
	ORDER BY s.created_at DESC, s.slug
	LIMIT $4 OFFSET $5`
	var day *time.Time
	if !filter.Day.IsZero() {
		d := filter.Day
		day = &d
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, query, filter.OfficeID, string(filter.Status), day, limit, filter.Offset)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	if len(out) == 0 {
		return out, nil
	}

	slugs := make([]string, len(out))
	for i := range out {
		slugs[i] = out[i].Slug
	}
	history, err := r.history(ctx, slugs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].History = history[out[i].Slug]
	}
	return out, nil
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	if err != nil && db.IsConnectivity(err) {
		return storeErr(err)
	}
	return err
}

func (r *PGRepository) history(ctx context.Context, slugs []string) (map[string][]TrackingEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT shipment_slug, status, location, COALESCE(remarks, ''), created_at
		FROM shipment_history
		WHERE shipment_slug = ANY($1)
		ORDER BY shipment_slug, id`, slugs)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	out := make(map[string][]TrackingEvent, len(slugs))
	for rows.Next() {
		var slug, status string
		var ev TrackingEvent
		if err := rows.Scan(&slug, &status, &ev.Location, &ev.Note, &ev.Timestamp); err != nil {
			return nil, storeErr(err)
		}
		ev.Status = Status(status)
		out[slug] = append(out[slug], ev)
	}
	return out, storeErr(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*Shipment, error) {
	var s Shipment
	var mode, status string
	var busSlug, busNumber *string
	var busDays []int32
	err := row.Scan(
		&s.Slug, &s.TrackingID, &s.SenderName, &s.SenderPhone, &s.ReceiverName, &s.ReceiverPhone,
		&s.Source.Slug, &s.Source.Title, &s.Source.OperationalDate,
		&s.Destination.Slug, &s.Destination.Title, &s.Destination.OperationalDate,
		&s.Description, &s.Price, &mode,
		&busSlug, &busNumber, &busDays,
		&status, &s.Day, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PaymentMode = PaymentMode(mode)
	s.CurrentStatus = Status(status)
	if busSlug != nil {
		s.Bus = &BusRef{Slug: *busSlug, PreferredDays: intsOf(busDays)}
		if busNumber != nil {
			s.Bus.BusNumber = *busNumber
		}
	}
	return &s, nil
}

func intsOf(in []int32) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

// storeErr tags connectivity failures as ErrTransport and passes others through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsConnectivity(err) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
