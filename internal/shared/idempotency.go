package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelhub/parcelhub/internal/platform/db"
	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

const (
	maxIdempotencyKeyLen = 255
	cleanupBatchSize     = 5000
)

// ErrIdempotencyConflict indicates the key was already reserved for the module.
var ErrIdempotencyConflict = fmt.Errorf("%w: idempotent request already processed", httpx.ErrDuplicate)

// IdempotencyStore reserves client supplied request keys so a retried write
// is applied once. Keys are namespaced per module.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// ValidateIdempotencyKey checks key and module before they reach the database.
func ValidateIdempotencyKey(key, module string) error {
	switch {
	case module == "":
		return errors.New("idempotency module required")
	case key == "":
		return fmt.Errorf("%w: idempotency key required", httpx.ErrValidation)
	case len(key) > maxIdempotencyKeyLen:
		return fmt.Errorf("%w: idempotency key longer than %d bytes", httpx.ErrValidation, maxIdempotencyKeyLen)
	}
	return nil
}

// Reserve claims key for module. A second reservation of the same pair
// returns ErrIdempotencyConflict until the key is released or pruned.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, module string) error {
	if s == nil || s.pool == nil {
		return errors.New("idempotency store not initialised")
	}
	if err := ValidateIdempotencyKey(key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, module) VALUES ($1, $2)`, key, module)
	if db.IsUniqueViolation(err) {
		return ErrIdempotencyConflict
	}
	return err
}

// Release frees a reservation whose write failed so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, key, module string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	if err := ValidateIdempotencyKey(key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND module = $2`, key, module)
	return err
}

// Cleanup prunes reservations older than olderThan in bounded batches and
// reports how many rows were removed. Age is measured on the database clock.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	if olderThan <= 0 {
		return 0, errors.New("idempotency cleanup: retention must be positive")
	}
	var total int64
	for {
		tag, err := s.pool.Exec(ctx, `
			DELETE FROM idempotency_keys
			WHERE ctid IN (
				SELECT ctid FROM idempotency_keys
				WHERE created_at < NOW() - make_interval(secs => $1)
				LIMIT $2
			)`, olderThan.Seconds(), cleanupBatchSize)
		if err != nil {
			return total, err
		}
		total += tag.RowsAffected()
		if tag.RowsAffected() < cleanupBatchSize {
			return total, nil
		}
	}
}
