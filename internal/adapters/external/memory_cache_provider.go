package external

import (
	"context"
	"sync"
	"time"

	"homeweather.app/internal/config"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// MemoryCacheProvider is a process-local TTL cache for serialized snapshots.
// Expired entries are reported as misses and overwritten by the next Set.
type MemoryCacheProvider struct {
	data  map[string]memoryCacheItem
	mutex sync.RWMutex
	now   func() time.Time
	stats *cacheStats
}

type memoryCacheItem struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCacheProvider() *MemoryCacheProvider {
	return NewMemoryCacheProviderWithClock(time.Now)
}

// NewMemoryCacheProviderWithClock creates a memory cache that reads time from now
func NewMemoryCacheProviderWithClock(now func() time.Time) *MemoryCacheProvider {
	return &MemoryCacheProvider{
		data:  make(map[string]memoryCacheItem),
		now:   now,
		stats: newCacheStats(config.CacheTypeMemory.String()),
	}
}

// WithMetrics forwards snapshot hits and misses to metrics
func (c *MemoryCacheProvider) WithMetrics(metrics ports.MetricsCollector) *MemoryCacheProvider {
	c.stats.setMetrics(metrics)
	return c
}

func (c *MemoryCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || !c.now().Before(item.expiresAt) {
		c.stats.observe(ctx, key, false)
		return nil, errors.NewNotFoundError("cache miss")
	}

	c.stats.observe(ctx, key, true)
	return item.data, nil
}

func (c *MemoryCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}
	if value == nil {
		return errors.NewValidationError("cache value cannot be nil")
	}
	if ttl <= 0 {
		return errors.NewValidationError("cache TTL must be positive")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = memoryCacheItem{
		data:      value,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}

func (c *MemoryCacheProvider) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

func (c *MemoryCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return false, nil
	}

	return c.now().Before(item.expiresAt), nil
}

func (c *MemoryCacheProvider) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]memoryCacheItem)
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCacheProvider) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// GetStats reports lookups since creation, with a per-kind breakdown for snapshots
func (c *MemoryCacheProvider) GetStats() ports.CacheStats {
	return c.stats.snapshot()
}

func (c *MemoryCacheProvider) RecordHit() {
	c.stats.record(true)
}

func (c *MemoryCacheProvider) RecordMiss() {
	c.stats.record(false)
}
