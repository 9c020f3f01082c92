package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a request in the current window and reports the
// count plus the window's remaining lifetime in milliseconds.
var fixedWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisBackend shares fixed-window budgets between replicas.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend uses client; keys are written under prefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "kbauth:ratelimit:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// NewRedisBackendFromURL parses a redis:// URL and pings the server.
func NewRedisBackendFromURL(ctx context.Context, rawURL, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBackend(client, prefix), nil
}

// Close releases the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ping checks the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// NewLimiter allows max(RequestsPerWindow, Burst) requests per key per window.
func (b *RedisBackend) NewLimiter(scope string, config RateLimitConfig) Limiter {
	return &redisLimiter{
		client: b.client,
		prefix: b.prefix + scope + ":",
		limit:  int64(max(config.RequestsPerWindow, config.Burst)),
		window: config.Window,
	}
}

type redisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count > l.limit {
		return false, ttl, nil
	}
	return true, 0, nil
}
