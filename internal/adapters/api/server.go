// Package api provides HTTP adapters for the hexagonal architecture
// These adapters handle incoming HTTP requests and translate them to use cases
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"homeweather.app/internal/core/analytics"
	"homeweather.app/internal/core/storage"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port      int
	Freshness time.Duration
}

// HTTPServerAdapter implements HTTP server using Gin framework
type HTTPServerAdapter struct {
	router         *gin.Engine
	config         ServerConfig
	storage        StorageUseCase
	analytics      AnalyticsUseCase
	aggregator     ports.WeatherAggregator
	providerAdmin  ProviderAdmin
	searcher       ports.LocationSearcher
	healthChecker  ports.SystemHealthChecker
	metricsHandler http.Handler
}

// Use case interfaces that the HTTP adapter depends on
type StorageUseCase interface {
	GetWeatherData(ctx context.Context, request storage.WeatherRequest, aggregator ports.WeatherAggregator) (*storage.WeatherResult, error)
	Query(ctx context.Context, location string, sinceDays int) ([]ports.PersistedRecord, error)
	ExportAll(ctx context.Context, location string, format ports.ExportFormat) ([]byte, error)
	Migrate(ctx context.Context, target ports.BackendName) (*storage.MigrationReport, error)
	Status(ctx context.Context) storage.Status
	ClearOldData(ctx context.Context) (int, error)
}

type AnalyticsUseCase interface {
	TemperatureAnalysis(ctx context.Context, request analytics.WindowRequest) (*analytics.TemperatureAnalysis, error)
	CommonConditions(ctx context.Context, request analytics.WindowRequest) ([]analytics.ConditionFrequency, error)
	Summary(ctx context.Context, location string) (*ports.AnalyticsRecord, error)
	Locations(ctx context.Context) ([]string, error)
}

// ProviderAdmin reorders the provider chain at runtime
type ProviderAdmin interface {
	SetOrder(primary, secondary string) error
}

// ServerOptions represents options for creating the HTTP server
type ServerOptions struct {
	Config         ServerConfig
	Storage        StorageUseCase
	Analytics      AnalyticsUseCase
	Aggregator     ports.WeatherAggregator
	ProviderAdmin  ProviderAdmin
	Searcher       ports.LocationSearcher
	HealthChecker  ports.SystemHealthChecker
	MetricsHandler http.Handler
}

// NewHTTPServerAdapter creates a new HTTP server adapter
func NewHTTPServerAdapter(opts ServerOptions) (*HTTPServerAdapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	server := &HTTPServerAdapter{
		router:         router,
		config:         opts.Config,
		storage:        opts.Storage,
		analytics:      opts.Analytics,
		aggregator:     opts.Aggregator,
		providerAdmin:  opts.ProviderAdmin,
		searcher:       opts.Searcher,
		healthChecker:  opts.HealthChecker,
		metricsHandler: opts.MetricsHandler,
	}

	server.setupRoutes()
	return server, nil
}

// Validate checks if all required dependencies are provided
func (opts *ServerOptions) Validate() error {
	if opts.Storage == nil {
		return errors.NewValidationError("storage use case is required")
	}
	if opts.Analytics == nil {
		return errors.NewValidationError("analytics use case is required")
	}
	if opts.Aggregator == nil {
		return errors.NewValidationError("weather aggregator is required")
	}
	if opts.HealthChecker == nil {
		return errors.NewValidationError("health checker is required")
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *HTTPServerAdapter) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/weather", s.getWeather)
		api.GET("/forecast", s.getForecast)
		api.GET("/search", s.searchLocations)
		api.GET("/history", s.getHistory)
		api.GET("/export", s.exportRecords)

		api.GET("/analytics/temperature", s.getTemperatureAnalysis)
		api.GET("/analytics/conditions", s.getCommonConditions)
		api.GET("/analytics/summary", s.getSummary)
		api.GET("/analytics/locations", s.getLocations)

		api.GET("/storage", s.getStorageStatus)
		api.POST("/storage/migrate", s.migrateStorage)
		api.POST("/storage/prune", s.pruneStorage)

		api.GET("/providers", s.getProviders)
		api.PUT("/providers", s.setProviderOrder)

		api.GET("/health", s.getHealth)
	}

	if s.metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	}
}

// Start begins the HTTP server
func (s *HTTPServerAdapter) Start(ctx context.Context) error {
	slog.Info("Starting HTTP server", "port", s.config.Port)
	return s.router.Run(fmt.Sprintf(":%d", s.config.Port))
}

// GetRouter returns the router for testing purposes
func (s *HTTPServerAdapter) GetRouter() *gin.Engine {
	return s.router
}
