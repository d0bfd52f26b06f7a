package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

const revokedKeyPrefix = "auth:revoked:"

// RevocationStore blacklists token ids until their natural expiry.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore constructs a redis-backed revocation store.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke marks jti as revoked for ttl. Non-positive ttls are clamped so an
// already expired token still gets recorded briefly.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("auth: jti required")
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke token: %v", httpx.ErrUnavailable, err)
	}
	return nil
}

// RevokeIfActive atomically revokes jti, reporting false when it was already revoked.
func (s *RevocationStore) RevokeIfActive(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, errors.New("auth: jti required")
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, revokedKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: revoke token: %v", httpx.ErrUnavailable, err)
	}
	return ok, nil
}

// IsRevoked reports whether jti has been revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("%w: check revocation: %v", httpx.ErrUnavailable, err)
	}
	return n > 0, nil
}
