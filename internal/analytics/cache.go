package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	versionKey = "parcelhub:analytics:version"
	keyPrefix  = "parcelhub:analytics:report"
)

// Cache stores rendered reports in Redis. Every key embeds a generation
// number; writers call Bump after a shipment or branch change, which orphans
// all earlier reports at once. Orphans expire through the TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current generation. A missing key reads as 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 1, nil
	case err != nil:
		return 0, err
	case ver < 1:
		return 1, nil
	}
	return ver, nil
}

// ReportKey addresses the report for scope and f in the current generation.
// f must already be normalised so equal queries share a key.
func (c *Cache) ReportKey(ctx context.Context, scope Scope, f Filter) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	owner := scope.OfficeID
	if scope.IsOrganization() {
		owner = "org"
	}
	return fmt.Sprintf("%s:v%d:%s:%s", keyPrefix, ver, owner, hex.EncodeToString(sum[:12])), nil
}

// Get returns the cached report under key; ok is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (report Report, ok bool, err error) {
	if c == nil || c.client == nil {
		return Report{}, false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	if err := json.Unmarshal(payload, &report); err != nil {
		// A payload from an older build; treat as a miss and let Put overwrite it.
		return Report{}, false, nil
	}
	return report, true, nil
}

// Put stores report under key for the configured TTL.
func (c *Cache) Put(ctx context.Context, key string, report Report) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump starts a new generation, invalidating every cached report.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	// INCR on a missing key yields 1, which Version already reports; start at 2.
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, versionKey, 1, 0)
		pipe.Incr(ctx, versionKey)
		return nil
	})
	return err
}
