// Package ratelimit throttles repeated failed sign-ins per email with a
// fixed window counter.
package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
)

const keyPrefix = "signin:fail:"

// New selects a throttle for the auth config. It returns nil when throttling
// is disabled, Redis when a client is given, and an in-process counter otherwise.
func New(cfg config.AuthConfig, client *redis.Client) auth.Throttle {
	if cfg.MaxFailedSignIns <= 0 {
		return nil
	}
	if client != nil {
		return NewRedisThrottle(client, cfg.MaxFailedSignIns, cfg.FailedSignInWindow)
	}
	return NewMemoryThrottle(cfg.MaxFailedSignIns, cfg.FailedSignInWindow)
}

// NewRedisClient connects to Redis, or returns nil when no address is configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func normalizeKey(email string) string {
	return keyPrefix + strings.TrimSpace(email)
}

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return 15 * time.Minute
	}
	return window
}
