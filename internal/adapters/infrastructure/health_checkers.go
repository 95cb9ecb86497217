package infrastructure

import (
	"context"
	"time"

	"homeweather.app/internal/ports"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// healthCheckKey is never written; probing reads it to exercise the cache
const healthCheckKey = "weather:health:check"

// BackendHealthChecker reports reachability of a storage backend
type BackendHealthChecker struct {
	backend ports.StorageBackend
}

func NewBackendHealthChecker(backend ports.StorageBackend) *BackendHealthChecker {
	return &BackendHealthChecker{backend: backend}
}

// Check verifies the backend is reachable
func (b *BackendHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "storage",
		Details:   make(map[string]interface{}),
	}

	if b.backend == nil {
		status.Status = StatusUnhealthy
		status.Error = "storage backend is not configured"
		return status
	}

	status.Details["backend"] = string(b.backend.Name())
	if !b.backend.IsAvailable(ctx) {
		status.Status = StatusUnhealthy
		status.Error = "storage backend is not reachable"
		return status
	}

	status.Status = StatusHealthy
	return status
}

// ProviderHealthChecker reports the provider chain configuration
type ProviderHealthChecker struct {
	aggregator ports.WeatherAggregator
}

func NewProviderHealthChecker(aggregator ports.WeatherAggregator) *ProviderHealthChecker {
	return &ProviderHealthChecker{aggregator: aggregator}
}

// Check reports degraded when only one provider is configured
func (p *ProviderHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{Component: "providers"}

	if p.aggregator == nil {
		status.Status = StatusUnhealthy
		status.Error = "weather provider chain is not configured"
		return status
	}

	info := p.aggregator.GetProviderInfo()
	status.Details = info
	status.Status = StatusHealthy
	if enabled, ok := info["fallback_enabled"].(bool); ok && !enabled {
		status.Status = StatusDegraded
	}
	return status
}

// CacheHealthChecker checks the cache with a read and reports hit statistics
// when the cache tracks them
type CacheHealthChecker struct {
	cache ports.CacheProvider
	stats ports.CacheMetrics
}

func NewCacheHealthChecker(cache ports.CacheProvider, stats ports.CacheMetrics) *CacheHealthChecker {
	return &CacheHealthChecker{cache: cache, stats: stats}
}

func (c *CacheHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "cache",
		Details:   make(map[string]interface{}),
	}

	if c.cache == nil {
		status.Status = StatusUnhealthy
		status.Error = "cache is not configured"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := c.cache.Exists(ctx, healthCheckKey); err != nil {
		status.Status = StatusUnhealthy
		status.Error = err.Error()
		return status
	}

	status.Status = StatusHealthy
	status.Details["latency_ms"] = time.Since(start).Milliseconds()
	if c.stats != nil {
		stats := c.stats.GetStats()
		status.Details["hits"] = stats.Hits
		status.Details["misses"] = stats.Misses
		status.Details["hit_ratio"] = stats.HitRatio
		for kind, ks := range stats.ByKind {
			status.Details["hits_"+string(kind)] = ks.Hits
			status.Details["misses_"+string(kind)] = ks.Misses
		}
	}
	return status
}

// SystemHealthChecker aggregates all health checks
type SystemHealthChecker struct {
	checkers map[string]ports.HealthChecker
}

// NewSystemHealthChecker ignores nil checkers
func NewSystemHealthChecker(checkers map[string]ports.HealthChecker) *SystemHealthChecker {
	s := &SystemHealthChecker{checkers: make(map[string]ports.HealthChecker, len(checkers))}
	for name, checker := range checkers {
		if checker != nil {
			s.checkers[name] = checker
		}
	}
	return s
}

// CheckAll performs health checks on all components
func (s *SystemHealthChecker) CheckAll(ctx context.Context) map[string]ports.HealthStatus {
	results := make(map[string]ports.HealthStatus, len(s.checkers))
	for name, checker := range s.checkers {
		results[name] = checker.Check(ctx)
	}
	return results
}
