package shipment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/parcelhub/parcelhub/internal/platform/db"
)

// ErrTrackingIDTaken is returned by InsertShipment when the tracking id collides.
var ErrTrackingIDTaken = errors.New("tracking id already assigned")

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) InsertShipment(ctx context.Context, s *Shipment) error {
	var busSlug *string
	if s.Bus != nil {
		busSlug = &s.Bus.Slug
	}
	err := r.tx.QueryRow(ctx, `
		INSERT INTO shipments (
			slug, tracking_id, sender_name, sender_phone, receiver_name, receiver_phone,
			source_branch, destination_branch, description, price, payment_mode,
			bus_slug, current_status, day
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`,
		s.Slug, s.TrackingID, s.SenderName, s.SenderPhone, s.ReceiverName, s.ReceiverPhone,
		s.Source.Slug, s.Destination.Slug, s.Description, s.Price, string(s.PaymentMode),
		busSlug, string(s.CurrentStatus), s.Day,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrTrackingIDTaken
		}
		return storeErr(err)
	}
	return nil
}

func (r *txRepo) AppendHistory(ctx context.Context, slug string, ev TrackingEvent) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO shipment_history (shipment_slug, status, location, remarks, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		slug, string(ev.Status), ev.Location, ev.Note, ev.Timestamp)
	return storeErr(err)
}

func (r *txRepo) CompareAndSetStatus(ctx context.Context, trackingID string, from, to Status) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE shipments SET current_status = $3, updated_at = NOW()
		WHERE tracking_id = $1 AND current_status = $2`,
		trackingID, string(from), string(to))
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
