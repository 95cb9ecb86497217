package infrastructure

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetricsCollector implements ports.MetricsCollector on its own
// registry so several instances can coexist in tests.
type PrometheusMetricsCollector struct {
	registry *prometheus.Registry

	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	storedRecords *prometheus.CounterVec
	migrations    *prometheus.CounterVec
}

// NewPrometheusMetricsCollector registers the weather collectors plus the Go
// runtime and process collectors
func NewPrometheusMetricsCollector() *PrometheusMetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &PrometheusMetricsCollector{
		registry: registry,
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_cache_hits_total",
				Help: "The total number of cache hits",
			},
			[]string{"cache_type"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_cache_misses_total",
				Help: "The total number of cache misses",
			},
			[]string{"cache_type"},
		),
		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_provider_calls_total",
				Help: "Provider calls by provider and outcome",
			},
			[]string{"provider", "success"},
		),
		providerTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weather_provider_duration_seconds",
				Help:    "Provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		storedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_stored_records_total",
				Help: "Records persisted by backend",
			},
			[]string{"backend"},
		),
		migrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_storage_migrations_total",
				Help: "Storage migrations by target and outcome",
			},
			[]string{"target", "success"},
		),
	}
}

func (m *PrometheusMetricsCollector) RecordCacheHit(ctx context.Context, cacheType string) {
	m.cacheHits.WithLabelValues(cacheType).Inc()
}

func (m *PrometheusMetricsCollector) RecordCacheMiss(ctx context.Context, cacheType string) {
	m.cacheMisses.WithLabelValues(cacheType).Inc()
}

func (m *PrometheusMetricsCollector) RecordWeatherAPICall(ctx context.Context, provider string, success bool, duration time.Duration) {
	m.providerCalls.WithLabelValues(provider, strconv.FormatBool(success)).Inc()
	m.providerTime.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *PrometheusMetricsCollector) RecordStoredRecord(ctx context.Context, backend string) {
	m.storedRecords.WithLabelValues(backend).Inc()
}

func (m *PrometheusMetricsCollector) RecordMigration(ctx context.Context, target string, success bool) {
	m.migrations.WithLabelValues(target, strconv.FormatBool(success)).Inc()
}

// Registry exposes the underlying registry
func (m *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
