package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter shares one logical quota across all running instances by
// keeping the window counter in Redis with a TTL.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int64
	Window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		Client: client,
		Limit:  limit,
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key

	count, err := l.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}

	// First hit opens the window; the TTL closes it.
	if count == 1 {
		if err := l.Client.Expire(ctx, redisKey, l.Window).Err(); err != nil {
			return false, err
		}
	}

	return count <= l.Limit, nil
}
