package ports

import (
	"context"
	"time"
)

// BackendName names a storage backend variant
type BackendName string

const (
	BackendLocal  BackendName = "local"
	BackendRemote BackendName = "remote"
)

// IsValid reports whether the name denotes a known backend
func (b BackendName) IsValid() bool {
	return b == BackendLocal || b == BackendRemote
}

// ExportFormat is the encoding of an exported record set
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// AnonymousOwner is used when no owner identifier is configured
const AnonymousOwner = "anonymous"

// PersistedRecord is the durable unit written to a StorageBackend
type PersistedRecord struct {
	ID       string          `json:"id"`
	Location string          `json:"location"`
	Snapshot WeatherSnapshot `json:"data"`
	StoredAt time.Time       `json:"timestamp"`
	OwnerID  string          `json:"ownerId"`
}

// TemperaturePoint is one temperature observation in an analytics history
type TemperaturePoint struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// ConditionPoint is one condition observation in an analytics history
type ConditionPoint struct {
	Condition string    `json:"condition"`
	At        time.Time `json:"at"`
}

// AirQualityPoint is one air quality observation in an analytics history
type AirQualityPoint struct {
	PM25 float64   `json:"pm2_5"`
	PM10 float64   `json:"pm10"`
	At   time.Time `json:"at"`
}

// AnalyticsRecord accumulates per-location observation history
type AnalyticsRecord struct {
	Location           string             `json:"location"`
	FirstSeen          time.Time          `json:"firstSeen"`
	LastSeen           time.Time          `json:"lastSeen"`
	TotalRequests      int                `json:"totalRequests"`
	AverageTemperature float64            `json:"averageTemperature"`
	TemperatureHistory []TemperaturePoint `json:"temperatureHistory"`
	ConditionHistory   []ConditionPoint   `json:"conditionHistory"`
	AirQualityHistory  []AirQualityPoint  `json:"airQualityHistory"`
}

// StoragePreference is the process-wide choice of active backend
type StoragePreference struct {
	Backend BackendName `json:"backend"`
}

// StorageBackend is the durable persistence contract shared by local and remote variants
type StorageBackend interface {
	Name() BackendName
	IsAvailable(ctx context.Context) bool

	Save(ctx context.Context, location string, snapshot *WeatherSnapshot) (string, error)
	Latest(ctx context.Context, location string) (*PersistedRecord, error)
	HasRecent(ctx context.Context, location string, within time.Duration) (bool, error)
	Query(ctx context.Context, location string, sinceDays int) ([]PersistedRecord, error)
	PruneOld(ctx context.Context) (int, error)
	ExportAll(ctx context.Context, location string, format ExportFormat) ([]byte, error)

	// All and Import serve backend migration; Import keeps id and storedAt.
	All(ctx context.Context) ([]PersistedRecord, error)
	Import(ctx context.Context, record PersistedRecord) error

	LoadAnalytics(ctx context.Context, location string) (*AnalyticsRecord, error)
	SaveAnalytics(ctx context.Context, record *AnalyticsRecord) error
	AllAnalytics(ctx context.Context) ([]AnalyticsRecord, error)
}

// PreferenceStore persists the StoragePreference across sessions
type PreferenceStore interface {
	Load(ctx context.Context) (StoragePreference, error)
	Save(ctx context.Context, pref StoragePreference) error
}

// AnalyticsStore is the subset of storage operations the analytics engine reads and writes
type AnalyticsStore interface {
	Query(ctx context.Context, location string, sinceDays int) ([]PersistedRecord, error)
	LoadAnalytics(ctx context.Context, location string) (*AnalyticsRecord, error)
	SaveAnalytics(ctx context.Context, record *AnalyticsRecord) error
	AllAnalytics(ctx context.Context) ([]AnalyticsRecord, error)
}

// ObservationRecorder is notified after every committed snapshot
type ObservationRecorder interface {
	RecordObservation(ctx context.Context, location string, snapshot *WeatherSnapshot) error
}

// ExportRow is the flattened tabular form of a persisted record
type ExportRow struct {
	Location    string
	Timestamp   time.Time
	Temperature float64
	Condition   string
	Humidity    float64
	WindSpeed   float64
	Pressure    float64
	PM25        *float64
	PM10        *float64
}

// NewExportRow flattens a persisted record
func NewExportRow(record PersistedRecord) ExportRow {
	row := ExportRow{
		Location:    record.Location,
		Timestamp:   record.StoredAt,
		Temperature: record.Snapshot.Current.Temperature,
		Condition:   record.Snapshot.Current.Condition,
		Humidity:    record.Snapshot.Current.Humidity,
		WindSpeed:   record.Snapshot.Current.WindSpeed,
		Pressure:    record.Snapshot.Current.Pressure,
	}
	if aq := record.Snapshot.AirQuality; aq != nil {
		pm25, pm10 := aq.PM25, aq.PM10
		row.PM25 = &pm25
		row.PM10 = &pm10
	}
	return row
}
