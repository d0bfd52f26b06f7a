package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

// ErrMessageNotFound indicates the message does not exist within the caller's scope.
var ErrMessageNotFound = fmt.Errorf("%w: message not found", httpx.ErrNotFound)

// Repository persists the message log.
type Repository interface {
	Insert(ctx context.Context, msg Message) (Message, error)
	List(ctx context.Context, scope Scope, limit int) ([]Message, error)
	MarkRead(ctx context.Context, scope Scope, id int64) error
}

// PGRepository implements Repository on postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores msg and returns it with id and timestamp populated.
func (r *PGRepository) Insert(ctx context.Context, msg Message) (Message, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (office_slug, recipient, phone_number, tracking_id, content)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5)
		RETURNING id, is_read, created_at`,
		msg.OfficeID, string(msg.Recipient), msg.Phone, msg.TrackingID, msg.Content,
	).Scan(&msg.ID, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// List returns the newest messages first.
func (r *PGRepository) List(ctx context.Context, scope Scope, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(office_slug, ''), recipient, phone_number, tracking_id, content, is_read, created_at
		FROM messages
		WHERE $1 OR office_slug = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, scope.All, scope.OfficeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var recipient string
		if err := rows.Scan(&m.ID, &m.OfficeID, &recipient, &m.Phone, &m.TrackingID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Recipient = Recipient(recipient)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags a message as read.
func (r *PGRepository) MarkRead(ctx context.Context, scope Scope, id int64) error {
	var got int64
	err := r.pool.QueryRow(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE id = $1 AND ($2 OR office_slug = $3)
		RETURNING id`, id, scope.All, scope.OfficeID).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotFound
		}
		return err
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
