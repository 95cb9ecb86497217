package external

import (
	"context"
	"strings"
	"sync"
	"time"

	"homeweather.app/internal/ports"
)

// cacheStats counts lookups for a cache provider, overall and per snapshot
// kind. Snapshot lookups are also forwarded to the metrics collector.
type cacheStats struct {
	cacheType string

	mutex   sync.RWMutex
	hits    int64
	misses  int64
	byKind  map[ports.DataKind]ports.KindStats
	metrics ports.MetricsCollector
}

func newCacheStats(cacheType string) *cacheStats {
	return &cacheStats{
		cacheType: cacheType,
		byKind:    make(map[ports.DataKind]ports.KindStats),
	}
}

func (s *cacheStats) setMetrics(metrics ports.MetricsCollector) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.metrics = metrics
}

// observe records the outcome of a Get on key
func (s *cacheStats) observe(ctx context.Context, key string, hit bool) {
	kind, isSnapshot := snapshotKindFromKey(key)

	s.mutex.Lock()
	s.count(hit)
	if isSnapshot {
		ks := s.byKind[kind]
		if hit {
			ks.Hits++
		} else {
			ks.Misses++
		}
		s.byKind[kind] = ks
	}
	metrics := s.metrics
	s.mutex.Unlock()

	if metrics == nil || !isSnapshot {
		return
	}
	if hit {
		metrics.RecordCacheHit(ctx, s.cacheType)
	} else {
		metrics.RecordCacheMiss(ctx, s.cacheType)
	}
}

func (s *cacheStats) record(hit bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.count(hit)
}

func (s *cacheStats) count(hit bool) {
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func (s *cacheStats) snapshot() ports.CacheStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := s.hits + s.misses
	hitRatio := float64(0)
	if total > 0 {
		hitRatio = float64(s.hits) / float64(total)
	}

	byKind := make(map[ports.DataKind]ports.KindStats, len(s.byKind))
	for kind, ks := range s.byKind {
		byKind[kind] = ks
	}

	return ports.CacheStats{
		Hits:        s.hits,
		Misses:      s.misses,
		TotalOps:    total,
		HitRatio:    hitRatio,
		ByKind:      byKind,
		LastUpdated: time.Now(),
	}
}

// snapshotKindFromKey reverses CacheKey far enough to recover the kind
func snapshotKindFromKey(key string) (ports.DataKind, bool) {
	if !strings.HasPrefix(key, cacheKeyPrefix) {
		return "", false
	}
	kind := ports.DataKind(key[strings.LastIndex(key, ":")+1:])
	switch kind {
	case ports.DataKindCurrent, ports.DataKindForecast, ports.DataKindSearch:
		return kind, true
	}
	return "", false
}
