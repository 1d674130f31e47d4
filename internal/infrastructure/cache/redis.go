package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "foodsync:off:"

// redisEnvelope is the stored value. expiresAt is kept next to the payload so validity
// is decided by the same clock as the other backends, not only by the key's PX expiry.
type redisEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// RedisCache stores cache entries in redis with a PX expiry matching the TTL
type RedisCache struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, now: time.Now}
}

// NewRedisClient parses a redis:// URL and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func redisKey(space domain.CacheSpace, key string) string {
	return redisKeyPrefix + string(space) + ":" + key
}

// Get returns ErrCacheMiss when the key is absent or its envelope has expired
func (r *RedisCache) Get(ctx context.Context, space domain.CacheSpace, key string) (*domain.CacheEntry, error) {
	data, err := r.client.Get(ctx, redisKey(space, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: redis get: %w", domain.ErrCacheUnavailable, err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	entry := &domain.CacheEntry{Key: key, Payload: env.Payload, ExpiresAt: env.ExpiresAt}
	if !entry.ValidAt(r.now()) {
		return nil, domain.ErrCacheMiss
	}

	return entry, nil
}

// Put overwrites the key with a fresh envelope and expiry
func (r *RedisCache) Put(ctx context.Context, space domain.CacheSpace, key string, payload json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}

	data, err := json.Marshal(redisEnvelope{Payload: payload, ExpiresAt: r.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, redisKey(space, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", domain.ErrCacheUnavailable, err)
	}

	return nil
}
