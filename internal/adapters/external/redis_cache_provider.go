package external

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-redis/redis/v8"
	"homeweather.app/internal/config"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// RedisCacheProviderAdapter keeps serialized snapshots in Redis so that
// several instances share provider round trips
type RedisCacheProviderAdapter struct {
	client *redis.Client
	stats  *cacheStats
}

// NewRedisCacheProviderAdapter creates a new Redis cache provider adapter
func NewRedisCacheProviderAdapter(cfg *config.RedisConfig) (*RedisCacheProviderAdapter, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("redis config cannot be nil", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewUnavailableError("failed to connect to Redis: " + err.Error())
	}

	return &RedisCacheProviderAdapter{
		client: client,
		stats:  newCacheStats(config.CacheTypeRedis.String()),
	}, nil
}

// WithMetrics forwards snapshot hits and misses to metrics
func (r *RedisCacheProviderAdapter) WithMetrics(metrics ports.MetricsCollector) *RedisCacheProviderAdapter {
	r.stats.setMetrics(metrics)
	return r
}

// Get retrieves a value from Redis cache
func (r *RedisCacheProviderAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.NewValidationError("cache key cannot be empty")
	}

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			r.stats.observe(ctx, key, false)
			return nil, errors.NewNotFoundError("cache miss")
		}
		return nil, errors.NewStorageError("redis get operation failed", err)
	}

	r.stats.observe(ctx, key, true)
	return []byte(val), nil
}

// Set stores a value in Redis cache with TTL
func (r *RedisCacheProviderAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}
	if value == nil {
		return errors.NewValidationError("cache value cannot be nil")
	}
	if ttl <= 0 {
		return errors.NewValidationError("cache TTL must be positive")
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.NewStorageError("redis set operation failed", err)
	}

	return nil
}

// Delete removes a value from Redis cache
func (r *RedisCacheProviderAdapter) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.NewStorageError("redis delete operation failed", err)
	}

	return nil
}

// Exists checks if a key exists in Redis cache
func (r *RedisCacheProviderAdapter) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.NewValidationError("cache key cannot be empty")
	}

	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.NewStorageError("redis exists operation failed", err)
	}

	return count > 0, nil
}

// Clear removes all weather cache keys from the Redis database
func (r *RedisCacheProviderAdapter) Clear(ctx context.Context) error {
	// Only the weather namespace is cleared; the database may be shared.
	iter := r.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.NewStorageError("redis clear operation failed", err)
		}
	}
	if err := iter.Err(); err != nil {
		return errors.NewStorageError("redis clear operation failed", err)
	}

	return nil
}

// GetStats reports lookups made through this adapter, not Redis server stats
func (r *RedisCacheProviderAdapter) GetStats() ports.CacheStats {
	return r.stats.snapshot()
}

// RecordHit counts a hit that did not go through Get
func (r *RedisCacheProviderAdapter) RecordHit() {
	r.stats.record(true)
}

// RecordMiss counts a miss that did not go through Get
func (r *RedisCacheProviderAdapter) RecordMiss() {
	r.stats.record(false)
}

// Close closes the Redis client connection
func (r *RedisCacheProviderAdapter) Close() error {
	if err := r.client.Close(); err != nil {
		return errors.NewStorageError("failed to close Redis connection", err)
	}
	return nil
}

// Ping checks if Redis connection is alive
func (r *RedisCacheProviderAdapter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewStorageError("Redis ping failed", err)
	}
	return nil
}
