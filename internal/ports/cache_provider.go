package ports

import (
	"context"
	"time"
)

// CacheProvider defines the contract for caching operations
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
}

// KindStats counts snapshot lookups for one DataKind
type KindStats struct {
	Hits   int64
	Misses int64
}

// CacheStats represents cache performance metrics. ByKind only covers
// lookups of snapshot keys.
type CacheStats struct {
	Hits        int64
	Misses      int64
	TotalOps    int64
	HitRatio    float64
	ByKind      map[DataKind]KindStats
	LastUpdated time.Time
}

// CacheMetrics defines the contract for cache performance tracking
type CacheMetrics interface {
	GetStats() CacheStats
	RecordHit()
	RecordMiss()
}

// DataKind distinguishes cached payload families for the same location
type DataKind string

const (
	DataKindCurrent  DataKind = "current"
	DataKindForecast DataKind = "forecast"
	DataKindSearch   DataKind = "search"
)

// SnapshotCache memoizes normalized snapshots keyed by (provider, location, kind)
type SnapshotCache interface {
	Get(ctx context.Context, provider, location string, kind DataKind) (*WeatherSnapshot, error)
	Set(ctx context.Context, provider, location string, kind DataKind, snapshot *WeatherSnapshot) error
}
