package external

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// sharedFetchTimeout bounds a provider round trip shared by coalesced callers
const sharedFetchTimeout = 30 * time.Second

// ProviderManagerAdapter implements Chain of Responsibility over a primary and
// a secondary ProviderClient. The designation is mutable at runtime.
type ProviderManagerAdapter struct {
	mu        sync.RWMutex
	providers map[string]ports.ProviderClient
	primary   string
	secondary string

	cache   ports.SnapshotCache
	flight  singleflight.Group
	logger  ports.Logger
	metrics ports.MetricsCollector
}

// ProviderManagerConfig holds configuration for creating the provider manager
type ProviderManagerConfig struct {
	Providers []ports.ProviderClient
	Primary   string
	Secondary string
	Cache     ports.SnapshotCache
	Logger    ports.Logger
	Metrics   ports.MetricsCollector
}

// NewProviderManagerAdapter creates a new weather provider manager with Chain of Responsibility
func NewProviderManagerAdapter(config ProviderManagerConfig) (*ProviderManagerAdapter, error) {
	manager := &ProviderManagerAdapter{
		providers: make(map[string]ports.ProviderClient, len(config.Providers)),
		cache:     config.Cache,
		logger:    config.Logger,
		metrics:   config.Metrics,
	}

	for _, provider := range config.Providers {
		manager.providers[provider.GetProviderName()] = provider
	}

	if err := manager.SetOrder(config.Primary, config.Secondary); err != nil {
		return nil, err
	}
	return manager, nil
}

// SetOrder swaps the primary/secondary designation. An empty secondary
// disables fallback.
func (m *ProviderManagerAdapter) SetOrder(primary, secondary string) error {
	if _, ok := m.providers[primary]; !ok {
		return errors.NewValidationError(fmt.Sprintf("unknown primary provider: %s", primary))
	}
	if secondary != "" {
		if _, ok := m.providers[secondary]; !ok {
			return errors.NewValidationError(fmt.Sprintf("unknown secondary provider: %s", secondary))
		}
		if secondary == primary {
			return errors.NewValidationError("primary and secondary providers must differ")
		}
	}

	m.mu.Lock()
	m.primary, m.secondary = primary, secondary
	m.mu.Unlock()

	m.logDebug("Provider order updated", ports.F("primary", primary), ports.F("secondary", secondary))
	return nil
}

func (m *ProviderManagerAdapter) chain() []ports.ProviderClient {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain := []ports.ProviderClient{m.providers[m.primary]}
	if m.secondary != "" {
		chain = append(chain, m.providers[m.secondary])
	}
	return chain
}

// GetWeather returns current conditions from the first provider that succeeds
func (m *ProviderManagerAdapter) GetWeather(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	return m.run(ctx, location, ports.DataKindCurrent, func(ctx context.Context, p ports.ProviderClient) (*ports.WeatherSnapshot, error) {
		return p.FetchCurrent(ctx, location)
	})
}

// GetForecast returns a snapshot carrying the daily forecast
func (m *ProviderManagerAdapter) GetForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	if days < 1 {
		return nil, errors.NewValidationError("forecast days must be at least 1")
	}
	kind := ports.DataKind(string(ports.DataKindForecast) + "-" + strconv.Itoa(days))
	return m.run(ctx, location, kind, func(ctx context.Context, p ports.ProviderClient) (*ports.WeatherSnapshot, error) {
		return p.FetchForecast(ctx, location, days)
	})
}

// GetCompleteWeatherData issues the current and forecast calls concurrently and
// merges them. Forecast location metadata wins; when the forecast call fails
// the current-call snapshot is returned alone.
func (m *ProviderManagerAdapter) GetCompleteWeatherData(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	var (
		current, forecast       *ports.WeatherSnapshot
		currentErr, forecastErr error
		g                       errgroup.Group
	)

	g.Go(func() error {
		current, currentErr = m.GetWeather(ctx, location)
		return nil
	})
	g.Go(func() error {
		forecast, forecastErr = m.GetForecast(ctx, location, days)
		return nil
	})
	_ = g.Wait()

	if currentErr != nil {
		return nil, currentErr
	}

	merged := *current
	if forecastErr != nil {
		m.logWarn("Forecast unavailable, returning current conditions only",
			ports.F("location", location),
			ports.F("error", forecastErr.Error()))
		return &merged, nil
	}

	merged.Location = forecast.Location
	merged.Forecast = forecast.Forecast
	if len(forecast.Alerts) > 0 {
		merged.Alerts = forecast.Alerts
	}
	if merged.AirQuality == nil {
		merged.AirQuality = forecast.AirQuality
	}
	return &merged, nil
}

type fetchFunc func(ctx context.Context, p ports.ProviderClient) (*ports.WeatherSnapshot, error)

// run walks the chain; each provider is tried at most once per call.
func (m *ProviderManagerAdapter) run(ctx context.Context, location string, kind ports.DataKind, fetch fetchFunc) (*ports.WeatherSnapshot, error) {
	chain := m.chain()
	errs := make([]error, 0, len(chain))

	for i, provider := range chain {
		providerName := provider.GetProviderName()

		m.logDebug("Trying weather provider",
			ports.F("provider", providerName),
			ports.F("attempt", i+1),
			ports.F("location", location),
			ports.F("kind", string(kind)))

		snapshot, err := m.fetchCached(ctx, provider, location, kind, fetch)
		if err == nil {
			return snapshot, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			// cancelled by the caller, not a provider failure
			return nil, ctxErr
		}

		errs = append(errs, fmt.Errorf("%s: %w", providerName, err))
		m.logWarn("Weather provider failed, trying next",
			ports.F("provider", providerName),
			ports.F("error", err.Error()),
			ports.F("location", location))
	}

	m.logError("All weather providers failed",
		ports.F("location", location),
		ports.F("providers_tried", len(chain)))

	return nil, errors.NewAllProvidersFailedError(
		fmt.Sprintf("all weather providers failed (tried %d providers)", len(chain)),
		stderrors.Join(errs...))
}

func (m *ProviderManagerAdapter) fetchCached(ctx context.Context, provider ports.ProviderClient, location string, kind ports.DataKind, fetch fetchFunc) (*ports.WeatherSnapshot, error) {
	providerName := provider.GetProviderName()

	if m.cache != nil {
		if cached, err := m.cache.Get(ctx, providerName, location, kind); err == nil {
			m.logDebug("Snapshot served from cache", ports.F("provider", providerName), ports.F("location", location))
			return cached, nil
		}
	}

	// Identical in-flight requests share one provider round trip. The round
	// trip is detached from the caller that started it; each caller stops
	// waiting on its own context.
	ch := m.flight.DoChan(CacheKey(providerName, location, kind), func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		started := time.Now()
		snapshot, err := fetch(flightCtx, provider)
		if m.metrics != nil {
			m.metrics.RecordWeatherAPICall(flightCtx, providerName, err == nil, time.Since(started))
		}
		if err != nil {
			return nil, err
		}

		if m.cache != nil {
			if cacheErr := m.cache.Set(flightCtx, providerName, location, kind, snapshot); cacheErr != nil {
				m.logWarn("Failed to cache snapshot",
					ports.F("provider", providerName),
					ports.F("error", cacheErr.Error()))
			}
		}
		return snapshot, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ports.WeatherSnapshot), nil
	}
}

// GetProviderInfo returns information about configured providers
func (m *ProviderManagerAdapter) GetProviderInfo() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	available := make([]string, 0, len(m.providers))
	for name := range m.providers {
		available = append(available, name)
	}

	return map[string]interface{}{
		"total_providers":  len(m.providers),
		"available":        available,
		"primary":          m.primary,
		"secondary":        m.secondary,
		"chain_enabled":    true,
		"fallback_enabled": m.secondary != "",
		"cache_enabled":    m.cache != nil,
	}
}

func (m *ProviderManagerAdapter) logDebug(msg string, fields ...ports.Field) {
	if m.logger != nil {
		m.logger.Debug(msg, fields...)
	}
}

func (m *ProviderManagerAdapter) logWarn(msg string, fields ...ports.Field) {
	if m.logger != nil {
		m.logger.Warn(msg, fields...)
	}
}

func (m *ProviderManagerAdapter) logError(msg string, fields ...ports.Field) {
	if m.logger != nil {
		m.logger.Error(msg, fields...)
	}
}
