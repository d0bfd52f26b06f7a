package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const defaultConnectWait = 5 * time.Second

// Options addresses the redis instance shared by token revocation, the
// analytics cache and the asynq queues.
type Options struct {
	Addr     string
	Password string
	DB       int
	// ConnectWait bounds how long New retries the first ping.
	ConnectWait time.Duration
}

// QueueOpt returns the asynq view of the same instance.
func (o Options) QueueOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

// New creates a client and waits for redis to answer.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	wait := opts.ConnectWait
	if wait <= 0 {
		wait = defaultConnectWait
	}
	if err := Ping(ctx, client, wait); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping retries with doubling backoff until redis answers or wait elapses.
// Containers often start before redis accepts connections.
func Ping(ctx context.Context, client redis.UniversalClient, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	backoff := 50 * time.Millisecond
	for {
		err := client.Ping(ctx).Err()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("platform/cache: ping: %w", err)
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
}
