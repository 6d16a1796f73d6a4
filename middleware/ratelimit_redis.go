// ABOUTME: Redis-backed fixed-window rate limiter shared across replicas
// ABOUTME: Uses INCR with a first-hit EXPIRE and fails open when Redis is unavailable

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a Limiter whose counters live in Redis, so every gateway
// replica sees the same window for a key.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per window.
// prefix namespaces the keys of one endpoint class, such as "rl:auth".
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow increments the counter for key. Redis errors allow the request.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	redisKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		slog.Warn("Rate limit store unavailable, allowing request", "error", err)
		return true, 0
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			slog.Warn("Rate limit expiry not set", "key", redisKey, "error", err)
		}
	}

	if count <= l.limit {
		return true, 0
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		// A key without expiry would block forever; restore it.
		l.client.Expire(ctx, redisKey, l.window)
		return false, l.window
	}
	return false, ttl
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
