package external

import (
	"context"
	"time"

	"homeweather.app/internal/ports"
)

// ProviderClientLoggingDecorator decorates provider clients with structured logging
type ProviderClientLoggingDecorator struct {
	provider ports.ProviderClient
	logger   ports.Logger
}

// NewProviderClientLoggingDecorator creates a new logging decorator for a provider client.
// The provider name is preserved so cache keys and fallback order stay stable.
func NewProviderClientLoggingDecorator(provider ports.ProviderClient, logger ports.Logger) ports.ProviderClient {
	return &ProviderClientLoggingDecorator{
		provider: provider,
		logger:   logger,
	}
}

// FetchCurrent wraps the provider call with structured logging
func (d *ProviderClientLoggingDecorator) FetchCurrent(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	return d.logged("current", location, func() (*ports.WeatherSnapshot, error) {
		return d.provider.FetchCurrent(ctx, location)
	})
}

// FetchForecast wraps the provider call with structured logging
func (d *ProviderClientLoggingDecorator) FetchForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	return d.logged("forecast", location, func() (*ports.WeatherSnapshot, error) {
		return d.provider.FetchForecast(ctx, location, days)
	})
}

// SearchLocations delegates when the wrapped provider supports search
func (d *ProviderClientLoggingDecorator) SearchLocations(ctx context.Context, query string) ([]ports.LocationCandidate, error) {
	searcher, ok := d.provider.(ports.LocationSearcher)
	if !ok {
		return []ports.LocationCandidate{}, nil
	}

	d.logger.Info("Location search started",
		ports.F("provider", d.provider.GetProviderName()),
		ports.F("query", query))

	candidates, err := searcher.SearchLocations(ctx, query)
	if err != nil {
		d.logger.Error("Location search failed",
			ports.F("provider", d.provider.GetProviderName()),
			ports.F("query", query),
			ports.F("error", err.Error()))
		return nil, err
	}
	return candidates, nil
}

// GetProviderName returns the name of the wrapped provider
func (d *ProviderClientLoggingDecorator) GetProviderName() string {
	return d.provider.GetProviderName()
}

func (d *ProviderClientLoggingDecorator) logged(kind, location string, call func() (*ports.WeatherSnapshot, error)) (*ports.WeatherSnapshot, error) {
	providerName := d.provider.GetProviderName()

	d.logger.Info("Weather API request started",
		ports.F("provider", providerName),
		ports.F("location", location),
		ports.F("kind", kind),
		ports.F("event", "request"))

	startTime := time.Now()
	snapshot, err := call()
	duration := time.Since(startTime)

	if err != nil {
		d.logger.Error("Weather API request failed",
			ports.F("provider", providerName),
			ports.F("location", location),
			ports.F("kind", kind),
			ports.F("event", "error"),
			ports.F("duration_ms", duration.Milliseconds()),
			ports.F("error", err.Error()))
		return nil, err
	}

	d.logger.Info("Weather API request completed",
		ports.F("provider", providerName),
		ports.F("location", location),
		ports.F("kind", kind),
		ports.F("event", "response"),
		ports.F("duration_ms", duration.Milliseconds()),
		ports.F("temperature", snapshot.Current.Temperature),
		ports.F("condition", snapshot.Current.Condition),
		ports.F("forecast_days", len(snapshot.Forecast)))

	return snapshot, nil
}

// AggregatorLoggingDecorator decorates the weather aggregator with logging
type AggregatorLoggingDecorator struct {
	aggregator ports.WeatherAggregator
	logger     ports.Logger
}

// NewAggregatorLoggingDecorator creates a new logging decorator for the weather aggregator
func NewAggregatorLoggingDecorator(aggregator ports.WeatherAggregator, logger ports.Logger) ports.WeatherAggregator {
	return &AggregatorLoggingDecorator{
		aggregator: aggregator,
		logger:     logger,
	}
}

// GetWeather wraps the chain call with structured logging
func (d *AggregatorLoggingDecorator) GetWeather(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	return d.chain("current", location, func() (*ports.WeatherSnapshot, error) {
		return d.aggregator.GetWeather(ctx, location)
	})
}

// GetForecast wraps the chain call with structured logging
func (d *AggregatorLoggingDecorator) GetForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	return d.chain("forecast", location, func() (*ports.WeatherSnapshot, error) {
		return d.aggregator.GetForecast(ctx, location, days)
	})
}

// GetCompleteWeatherData wraps the chain call with structured logging
func (d *AggregatorLoggingDecorator) GetCompleteWeatherData(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	return d.chain("complete", location, func() (*ports.WeatherSnapshot, error) {
		return d.aggregator.GetCompleteWeatherData(ctx, location, days)
	})
}

func (d *AggregatorLoggingDecorator) chain(kind, location string, call func() (*ports.WeatherSnapshot, error)) (*ports.WeatherSnapshot, error) {
	d.logger.Info("Weather provider chain started",
		ports.F("location", location),
		ports.F("kind", kind),
		ports.F("event", "chain_start"))

	startTime := time.Now()
	snapshot, err := call()
	duration := time.Since(startTime)

	if err != nil {
		d.logger.Error("Weather provider chain failed",
			ports.F("location", location),
			ports.F("kind", kind),
			ports.F("event", "chain_error"),
			ports.F("duration_ms", duration.Milliseconds()),
			ports.F("error", err.Error()))
		return nil, err
	}

	d.logger.Info("Weather provider chain completed",
		ports.F("location", location),
		ports.F("kind", kind),
		ports.F("event", "chain_success"),
		ports.F("provider", snapshot.Provider),
		ports.F("duration_ms", duration.Milliseconds()),
		ports.F("temperature", snapshot.Current.Temperature))

	return snapshot, nil
}

// GetProviderInfo delegates to the wrapped aggregator
func (d *AggregatorLoggingDecorator) GetProviderInfo() map[string]interface{} {
	info := d.aggregator.GetProviderInfo()
	info["logging_enabled"] = true
	return info
}
