package ports

// ApplicationPorts aggregates all ports for dependency injection
type ApplicationPorts struct {
	// Weather
	WeatherAggregator WeatherAggregator
	LocationSearcher  LocationSearcher
	SnapshotCache     SnapshotCache

	// Storage
	LocalBackend    StorageBackend
	RemoteBackend   StorageBackend
	PreferenceStore PreferenceStore

	// Cache
	Cache        CacheProvider
	CacheMetrics CacheMetrics

	// Infrastructure
	Logger  Logger
	Metrics MetricsCollector
}
