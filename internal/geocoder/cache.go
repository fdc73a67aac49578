package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/rajasatyajit/ReliefHub/internal/models"
	"github.com/rajasatyajit/ReliefHub/pkg/utils"
)

// Entry is a cached lookup. Found is false for names the upstream could not
// resolve, so misses are not retried on every report.
type Entry struct {
	Coordinate models.Coordinate `json:"coordinate"`
	Found      bool              `json:"found"`
}

// Cache stores geocoding results keyed by normalized place name
type Cache interface {
	Get(ctx context.Context, name string) (Entry, bool, error)
	Set(ctx context.Context, name string, e Entry) error
}

// RedisCache keeps geocoding results in Redis with a fixed TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(name string) string {
	return "geocode:" + utils.HashString(name)
}

func (c *RedisCache) Get(ctx context.Context, name string) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("geocode cache get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("geocode cache decode: %w", err)
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, name string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, cacheKey(name), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("geocode cache set: %w", err)
	}
	return nil
}
