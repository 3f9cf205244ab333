package dispatch

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Deduper guards a Consumer against re-running a stage for an envelope it
// has already committed, the at-least-once delivery edge Kafka's own
// commit/retry cycle doesn't close. Grounded on orchestrator.DedupeStore.
type Deduper interface {
	// SeenRecently marks correlationID processed and reports whether it was
	// already marked within ttl. A true result means the caller should skip
	// the envelope instead of re-invoking the handler.
	SeenRecently(ctx context.Context, correlationID string, ttl time.Duration) (bool, error)
}

// RedisDeduper is a Redis-backed Deduper using SETNX semantics so only the
// first of two concurrent consumers claims a correlation ID.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper dials addr and pings it to validate the connection before
// returning, the same fail-fast shape as orchestrator.NewRedisDedupeStore.
func NewRedisDeduper(addr string) (*RedisDeduper, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("dispatch: redis dedup ping: %w", err)
	}
	return &RedisDeduper{client: c}, nil
}

func (d *RedisDeduper) SeenRecently(ctx context.Context, correlationID string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, "dispatch:seen:"+correlationID, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX reports true when it claimed the key, i.e. this is the first sighting.
	return !ok, nil
}

func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
