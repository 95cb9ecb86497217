package external

import (
	"fmt"

	"homeweather.app/internal/config"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// CacheProviderFactory builds the generic cache selected by CACHE_TYPE
type CacheProviderFactory struct{}

func NewCacheProviderFactory() *CacheProviderFactory {
	return &CacheProviderFactory{}
}

// CreateCacheProvider attaches metrics, when non-nil, to the returned cache
func (f *CacheProviderFactory) CreateCacheProvider(cfg *config.CacheConfig, metrics ports.MetricsCollector) (ports.CacheProvider, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("cache config cannot be nil", nil)
	}

	switch cfg.Type {
	case config.CacheTypeMemory:
		return NewMemoryCacheProvider().WithMetrics(metrics), nil
	case config.CacheTypeRedis:
		provider, err := NewRedisCacheProviderAdapter(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return provider.WithMetrics(metrics), nil
	default:
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("unsupported cache type: %s", cfg.Type.String()), nil)
	}
}
