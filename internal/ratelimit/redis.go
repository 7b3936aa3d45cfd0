package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle shares failure counts across API replicas.
type RedisThrottle struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewRedisThrottle(client *redis.Client, max int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{
		client: client,
		max:    int64(max),
		window: windowOrDefault(window),
	}
}

func (t *RedisThrottle) Blocked(ctx context.Context, email string) (bool, error) {
	hits, err := t.client.Get(ctx, normalizeKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return hits >= t.max, nil
}

// RecordFailure increments the counter. The window starts at the first failure.
// INCR and EXPIRE NX commit together so a counter never outlives its window,
// and a key left without a TTL is given one on the next failure.
func (t *RedisThrottle) RecordFailure(ctx context.Context, email string) error {
	key := normalizeKey(email)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, t.window)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *RedisThrottle) Reset(ctx context.Context, email string) error {
	return t.client.Del(ctx, normalizeKey(email)).Err()
}
