package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gorm.io/gorm"
	"homeweather.app/internal/adapters/external"
	"homeweather.app/internal/adapters/infrastructure"
	"homeweather.app/internal/adapters/storage"
	"homeweather.app/internal/config"
	"homeweather.app/internal/ports"
)

type DependencyContainer struct {
	config  *config.Config
	db      *gorm.DB
	ports   *ports.ApplicationPorts
	manager *external.ProviderManagerAdapter
	metrics *infrastructure.PrometheusMetricsCollector
	closers []func() error
}

func NewDependencyContainer(cfg *config.Config) (*DependencyContainer, error) {
	container := &DependencyContainer{config: cfg}

	if err := container.initializePorts(); err != nil {
		_ = container.Cleanup()
		return nil, fmt.Errorf("initialize ports: %w", err)
	}

	return container, nil
}

func (c *DependencyContainer) initializePorts() error {
	slog.Info("Initializing ports...")

	logger := c.initializeLogger()
	c.metrics = infrastructure.NewPrometheusMetricsCollector()

	cacheProvider := c.initializeCache()
	snapshotCache := external.NewSnapshotCacheAdapter(external.SnapshotCacheParams{
		Provider: cacheProvider,
		TTL:      time.Duration(c.config.Weather.CacheTTLMinutes) * time.Minute,
	})

	providers, searcher := c.initializeProviders(logger)

	manager, err := external.NewProviderManagerAdapter(external.ProviderManagerConfig{
		Providers: providers,
		Primary:   c.config.Weather.PrimaryProvider,
		Secondary: c.config.Weather.SecondaryProvider,
		Cache:     snapshotCache,
		Logger:    logger,
		Metrics:   c.metrics,
	})
	if err != nil {
		return fmt.Errorf("create provider manager: %w", err)
	}
	c.manager = manager

	var aggregator ports.WeatherAggregator = manager
	if c.config.Weather.EnableLogging {
		aggregator = external.NewAggregatorLoggingDecorator(manager, logger)
		slog.Info("Weather provider logging enabled")
	}

	local, err := storage.NewLocalBackend(storage.LocalBackendParams{
		Path:          c.config.Storage.LocalPath,
		OwnerID:       c.config.Storage.Owner(),
		RetentionDays: c.config.Storage.RetentionDays,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create local backend: %w", err)
	}

	var remote ports.StorageBackend
	if backend := c.initializeRemote(logger); backend != nil {
		remote = backend
	}

	var cacheMetrics ports.CacheMetrics
	if m, ok := cacheProvider.(ports.CacheMetrics); ok {
		cacheMetrics = m
	}

	c.ports = &ports.ApplicationPorts{
		WeatherAggregator: aggregator,
		LocationSearcher:  searcher,
		SnapshotCache:     snapshotCache,

		LocalBackend:    local,
		RemoteBackend:   remote,
		PreferenceStore: storage.NewFilePreferenceStore(c.config.Storage.PreferencePath, ports.BackendName(c.config.Storage.Backend)),

		Cache:        cacheProvider,
		CacheMetrics: cacheMetrics,

		Logger:  logger,
		Metrics: c.metrics,
	}

	slog.Info("Ports initialized successfully")
	return nil
}

// initializeLogger installs the JSON slog handler as the process default and
// adds the provider log file when logging is enabled
func (c *DependencyContainer) initializeLogger() ports.Logger {
	level := infrastructure.ParseLevel(c.config.Server.LogLevel)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	var logger ports.Logger = &infrastructure.SlogLoggerAdapter{}
	if !c.config.Weather.EnableLogging || c.config.Weather.LogFilePath == "" {
		return logger
	}

	fileLogger, err := infrastructure.NewFileLoggerAdapter(c.config.Weather.LogFilePath)
	if err != nil {
		slog.Warn("Failed to create file logger, falling back to slog", "error", err)
		return logger
	}
	c.closers = append(c.closers, fileLogger.Close)
	slog.Info("File logging enabled", "path", c.config.Weather.LogFilePath)
	return infrastructure.NewMultiLogger(logger, fileLogger)
}

// initializeCache falls back to the in-memory cache when Redis is unreachable
func (c *DependencyContainer) initializeCache() ports.CacheProvider {
	cacheProvider, err := external.NewCacheProviderFactory().CreateCacheProvider(&c.config.Cache, c.metrics)
	if err != nil {
		slog.Warn("Failed to create cache provider, using memory cache", "type", c.config.Cache.Type.String(), "error", err)
		return external.NewMemoryCacheProvider().WithMetrics(c.metrics)
	}

	if redis, ok := cacheProvider.(*external.RedisCacheProviderAdapter); ok {
		c.closers = append(c.closers, redis.Close)
	}

	slog.Info("Cache provider initialized",
		"type", c.config.Cache.Type.String(),
		"redis_addr", c.config.Cache.Redis.Addr)
	return cacheProvider
}

func (c *DependencyContainer) initializeProviders(logger ports.Logger) ([]ports.ProviderClient, ports.LocationSearcher) {
	weatherCfg := c.config.Weather
	client := &http.Client{Timeout: time.Duration(weatherCfg.HTTPTimeoutSeconds) * time.Second}
	backoff := external.DefaultBackoff
	backoff.MaxRetries = weatherCfg.MaxRetries

	weatherAPI := external.NewWeatherAPIProviderAdapter(external.WeatherAPIProviderParams{
		APIKey:  weatherCfg.APIKey,
		BaseURL: weatherCfg.BaseURL,
		Client:  client,
		Backoff: &backoff,
		Logger:  logger,
	})
	openWeather := external.NewOpenWeatherMapProviderAdapter(external.OpenWeatherMapProviderParams{
		APIKey:  weatherCfg.OpenWeatherMapKey,
		BaseURL: weatherCfg.OpenWeatherMapBaseURL,
		Client:  client,
		Backoff: &backoff,
		Logger:  logger,
	})

	providers := []ports.ProviderClient{weatherAPI, openWeather}
	var searcher ports.LocationSearcher = weatherAPI
	if weatherCfg.EnableLogging {
		for i, p := range providers {
			providers[i] = external.NewProviderClientLoggingDecorator(p, logger)
		}
		searcher = providers[0].(ports.LocationSearcher)
	}

	if weatherCfg.APIKey == "" {
		slog.Warn("WEATHER_API_KEY is not set, weatherapi calls will fail")
	}
	if weatherCfg.OpenWeatherMapKey == "" {
		slog.Warn("OPENWEATHERMAP_API_KEY is not set, openweathermap calls will fail")
	}
	return providers, searcher
}

// initializeRemote returns nil when no remote is configured or it cannot be
// reached at startup; the router then stays on the local backend
func (c *DependencyContainer) initializeRemote(logger ports.Logger) *storage.RemoteBackend {
	dbCfg := c.config.Storage.Remote
	if !dbCfg.Enabled() {
		slog.Info("Remote storage backend not configured")
		return nil
	}

	db, err := storage.OpenRemoteDB(dbCfg)
	if err != nil {
		slog.Warn("Remote storage backend unavailable", "driver", dbCfg.Driver, "error", err)
		return nil
	}

	remote, err := storage.NewRemoteBackend(db, storage.RemoteBackendParams{
		OwnerID:       c.config.Storage.Owner(),
		RetentionDays: c.config.Storage.RetentionDays,
		Logger:        logger,
	})
	if err != nil {
		_ = storage.CloseDB(db)
		slog.Warn("Remote storage backend unavailable", "driver", dbCfg.Driver, "error", err)
		return nil
	}

	c.db = db
	c.closers = append(c.closers, func() error { return storage.CloseDB(db) })
	slog.Info("Remote storage backend connected", "driver", dbCfg.Driver)
	return remote
}

func (c *DependencyContainer) ApplicationPorts() *ports.ApplicationPorts {
	return c.ports
}

// ProviderManager exposes the undecorated manager for runtime reordering
func (c *DependencyContainer) ProviderManager() *external.ProviderManagerAdapter {
	return c.manager
}

func (c *DependencyContainer) Metrics() *infrastructure.PrometheusMetricsCollector {
	return c.metrics
}

func (c *DependencyContainer) Database() *gorm.DB {
	return c.db
}

// Cleanup releases resources in reverse order of acquisition
func (c *DependencyContainer) Cleanup() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
