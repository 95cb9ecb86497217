package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"homeweather.app/internal/adapters/api"
	"homeweather.app/internal/adapters/infrastructure"
	"homeweather.app/internal/config"
	"homeweather.app/internal/core/analytics"
	"homeweather.app/internal/core/storage"
	"homeweather.app/internal/ports"
)

type Application struct {
	config *config.Config

	// Use Cases
	storageRouter   *storage.Router
	analyticsEngine *analytics.Engine

	// Adapters
	httpServer *http.Server
	router     *gin.Engine

	// Infrastructure
	container *DependencyContainer
	ports     *ports.ApplicationPorts
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func NewApplication() (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	container, err := NewDependencyContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("create dependency container: %w", err)
	}

	return NewApplicationWithDependencies(cfg, container)
}

// NewApplicationWithDependencies creates an application with provided dependencies (for testing)
func NewApplicationWithDependencies(cfg *config.Config, container *DependencyContainer) (*Application, error) {
	app := &Application{
		config:    cfg,
		container: container,
		ports:     container.ApplicationPorts(),
		stopChan:  make(chan struct{}),
	}

	if err := app.initializeUseCases(); err != nil {
		return nil, fmt.Errorf("initialize use cases: %w", err)
	}

	if err := app.initializeAdapters(); err != nil {
		return nil, fmt.Errorf("initialize adapters: %w", err)
	}

	return app, nil
}

func (a *Application) initializeUseCases() error {
	slog.Info("Initializing use cases...")

	router, err := storage.NewRouter(context.Background(), storage.RouterDependencies{
		Local:         a.ports.LocalBackend,
		Remote:        a.ports.RemoteBackend,
		Preferences:   a.ports.PreferenceStore,
		Logger:        a.ports.Logger,
		Metrics:       a.ports.Metrics,
		RetentionDays: a.config.Storage.RetentionDays,
		OwnerID:       a.config.Storage.Owner(),
	})
	if err != nil {
		return fmt.Errorf("create storage router: %w", err)
	}
	a.storageRouter = router

	engine, err := analytics.NewEngine(analytics.EngineDependencies{
		Store:  router,
		Logger: a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create analytics engine: %w", err)
	}
	a.analyticsEngine = engine
	router.RegisterObserver(engine)

	slog.Info("Use cases initialized successfully")
	return nil
}

func (a *Application) initializeAdapters() error {
	slog.Info("Initializing adapters...")

	if err := api.RegisterValidators([]string{config.ProviderWeatherAPI, config.ProviderOpenWeather}); err != nil {
		slog.Warn("Failed to register request validators", "error", err)
	}

	healthChecker := infrastructure.NewSystemHealthChecker(map[string]ports.HealthChecker{
		"storage":   infrastructure.NewBackendHealthChecker(a.storageRouter),
		"providers": infrastructure.NewProviderHealthChecker(a.ports.WeatherAggregator),
		"cache":     infrastructure.NewCacheHealthChecker(a.ports.Cache, a.ports.CacheMetrics),
	})

	options := api.ServerOptions{
		Config: api.ServerConfig{
			Port:      a.config.Server.Port,
			Freshness: time.Duration(a.config.Weather.FreshnessMinutes) * time.Minute,
		},
		Storage:       a.storageRouter,
		Analytics:     a.analyticsEngine,
		Aggregator:    a.ports.WeatherAggregator,
		Searcher:      a.ports.LocationSearcher,
		HealthChecker: healthChecker,
	}
	if manager := a.container.ProviderManager(); manager != nil {
		options.ProviderAdmin = manager
	}
	if metrics := a.container.Metrics(); metrics != nil {
		options.MetricsHandler = metrics.Handler()
	}

	httpAdapter, err := api.NewHTTPServerAdapter(options)
	if err != nil {
		return fmt.Errorf("create HTTP adapter: %w", err)
	}

	a.router = httpAdapter.GetRouter()

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Adapters initialized successfully")
	return nil
}

func (a *Application) Start(ctx context.Context) error {
	slog.Info("Starting application...")

	go a.startRetentionScheduler(ctx)

	slog.Info("Starting HTTP server", "port", a.config.Server.Port)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

// startRetentionScheduler prunes the active backend every
// STORAGE_PRUNE_INTERVAL_MINUTES. Zero leaves pruning to the write path and
// explicit prune requests.
func (a *Application) startRetentionScheduler(ctx context.Context) {
	interval := time.Duration(a.config.Storage.PruneInterval) * time.Minute
	if interval <= 0 {
		return
	}

	slog.Info("Retention scheduler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Retention scheduler stopped due to context cancellation")
			return
		case <-a.stopChan:
			slog.Info("Retention scheduler stopped")
			return
		case <-ticker.C:
			a.pruneOnce(ctx)
		}
	}
}

func (a *Application) pruneOnce(ctx context.Context) {
	if _, err := a.storageRouter.ClearOldData(ctx); err != nil {
		slog.Error("Error pruning old weather data", "error", err)
	}
}

func (a *Application) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	a.stopOnce.Do(func() { close(a.stopChan) })

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Error shutting down HTTP server", "error", err)
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	if err := a.container.Cleanup(); err != nil {
		slog.Warn("Error releasing resources", "error", err)
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (a *Application) Config() *config.Config {
	return a.config
}

// GetRouter returns the Gin router for testing
func (a *Application) GetRouter() *gin.Engine {
	return a.router
}

func (a *Application) GetStorageRouter() *storage.Router {
	return a.storageRouter
}

func (a *Application) GetAnalyticsEngine() *analytics.Engine {
	return a.analyticsEngine
}
