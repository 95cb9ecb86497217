package external

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

const (
	cacheKeyPrefix  = "weather:"
	DefaultCacheTTL = 10 * time.Minute
)

// SnapshotCacheAdapter bridges a generic CacheProvider to the snapshot-specific
// SnapshotCache. It only saves provider round trips; durability is the storage
// layer's concern. Hit and miss accounting belongs to the provider.
type SnapshotCacheAdapter struct {
	cacheProvider ports.CacheProvider
	ttl           time.Duration
}

// SnapshotCacheParams holds parameters for creating a snapshot cache
type SnapshotCacheParams struct {
	Provider ports.CacheProvider
	TTL      time.Duration
}

// NewSnapshotCacheAdapter creates a snapshot cache using a generic cache provider
func NewSnapshotCacheAdapter(params SnapshotCacheParams) *SnapshotCacheAdapter {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SnapshotCacheAdapter{
		cacheProvider: params.Provider,
		ttl:           ttl,
	}
}

// CacheKey builds the (provider, location, kind) key
func CacheKey(provider, location string, kind ports.DataKind) string {
	return cacheKeyPrefix + provider + ":" + strings.ToLower(strings.TrimSpace(location)) + ":" + string(kind)
}

// Get retrieves a snapshot from cache
func (w *SnapshotCacheAdapter) Get(ctx context.Context, provider, location string, kind ports.DataKind) (*ports.WeatherSnapshot, error) {
	key := CacheKey(provider, location, kind)
	data, err := w.cacheProvider.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var snapshot ports.WeatherSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// drop the unreadable entry so the next lookup refetches
		_ = w.cacheProvider.Delete(ctx, key)
		return nil, errors.NewStorageError("failed to deserialize cached snapshot", err)
	}

	return &snapshot, nil
}

// Set stores a snapshot in cache for the configured TTL
func (w *SnapshotCacheAdapter) Set(ctx context.Context, provider, location string, kind ports.DataKind, snapshot *ports.WeatherSnapshot) error {
	if snapshot == nil {
		return errors.NewValidationError("snapshot cannot be nil")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.NewStorageError("failed to serialize snapshot", err)
	}

	return w.cacheProvider.Set(ctx, CacheKey(provider, location, kind), data, w.ttl)
}
