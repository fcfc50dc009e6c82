// Package ratelimit provides fixed-window request limiting backed by Redis
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memtensor/accounts/pkg/interfaces"
)

// Config holds limiter configuration
type Config struct {
	Addr      string        `json:"addr" yaml:"addr"`
	Password  string        `json:"-" yaml:"password,omitempty"`
	DB        int           `json:"db" yaml:"db"`
	Requests  int           `json:"requests" yaml:"requests"`
	Window    time.Duration `json:"window" yaml:"window"`
	KeyPrefix string        `json:"key_prefix" yaml:"key_prefix"`
}

// counter is the subset of redis.Cmdable used by the limiter
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter counts hits per key in fixed windows.
// The first hit in a window creates the key with the window as its TTL; a
// denied hit on a key without a TTL sets it again.
type RedisLimiter struct {
	client   counter
	closer   func() error
	requests int64
	window   time.Duration
	prefix   string
}

var _ interfaces.RateLimiter = (*RedisLimiter)(nil)

// NewRedisLimiter connects to Redis and verifies the connection
func NewRedisLimiter(ctx context.Context, config Config) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	l := newRedisLimiter(client, config)
	l.closer = client.Close
	return l, nil
}

func newRedisLimiter(client counter, config Config) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		requests: int64(config.Requests),
		window:   config.Window,
		prefix:   config.KeyPrefix,
	}
}

// Allow records a hit for key. When the limit is exceeded it returns false and
// the time left in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.key(key)

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment %s: %w", k, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set window on %s: %w", k, err)
		}
	}

	if count <= l.requests {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, l.window, nil
	}
	if ttl == -1 {
		// the window was never set on this key; without a TTL it would deny forever
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set window on %s: %w", k, err)
		}
		ttl = l.window
	} else if ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

// Close closes the Redis connection
func (l *RedisLimiter) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

func (l *RedisLimiter) key(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}

// AllowAll never limits
type AllowAll struct{}

var _ interfaces.RateLimiter = AllowAll{}

// Allow always allows
func (AllowAll) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return true, 0, nil
}
