package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed one-minute window counter shared by every replica
type RedisLimiter struct {
	redis *redis.Client
	rpm   int
	now   func() time.Time
}

// NewRedisLimiter creates a limiter allowing rpm requests per key per minute
func NewRedisLimiter(client *redis.Client, rpm int) *RedisLimiter {
	return &RedisLimiter{redis: client, rpm: rpm, now: time.Now}
}

// NewRedisClient parses a redis:// URL and checks the server answers
func NewRedisClient(ctx context.Context, redisURL, password string, db int) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	if db != 0 {
		opt.DB = db
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now().UTC()
	window := now.Unix() / 60
	rk := fmt.Sprintf("rl:%s:%d", key, window)

	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate check: %w", err)
	}

	count := int(incr.Val())
	d := Decision{Allowed: true, Limit: l.rpm, Remaining: l.rpm - count}
	if count > l.rpm {
		d.Allowed = false
		d.Remaining = 0
		d.RetryAfter = time.Duration(60-now.Unix()%60) * time.Second
	}
	return d, nil
}
