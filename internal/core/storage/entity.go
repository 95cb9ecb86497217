package storage

import (
	"fmt"
	"strings"
	"time"

	"homeweather.app/internal/ports"
)

// Source tells where a GetWeatherData result came from
type Source string

const (
	SourceStorage  Source = "storage"
	SourceProvider Source = "provider"
	SourceStale    Source = "stale"
)

// WeatherResult is the outcome of a read-through weather request
type WeatherResult struct {
	Snapshot *ports.WeatherSnapshot `json:"snapshot"`
	Source   Source                 `json:"source"`
	Stale    bool                   `json:"stale"`
	RecordID string                 `json:"recordId,omitempty"`
	// Persisted is false when a fresh fetch could not be saved
	Persisted bool `json:"persisted"`
}

// WeatherRequest names a location and how old a stored record may be
type WeatherRequest struct {
	Location  string
	Freshness time.Duration
}

// IsValid validates the weather request
func (r *WeatherRequest) IsValid() error {
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("location cannot be empty")
	}
	if r.Freshness < 0 {
		return fmt.Errorf("freshness cannot be negative")
	}
	return nil
}

// Normalize trims the location
func (r *WeatherRequest) Normalize() {
	r.Location = strings.TrimSpace(r.Location)
}

// Status describes the storage layer
type Status struct {
	Active           ports.BackendName `json:"active"`
	ActiveAvailable  bool              `json:"activeAvailable"`
	RemoteConfigured bool              `json:"remoteConfigured"`
	RemoteAvailable  bool              `json:"remoteAvailable"`
	RetentionDays    int               `json:"retentionDays"`
	OwnerID          string            `json:"ownerId"`
}

// MigrationReport summarizes a completed migration
type MigrationReport struct {
	From      ports.BackendName `json:"from"`
	To        ports.BackendName `json:"to"`
	Records   int               `json:"records"`
	Analytics int               `json:"analytics"`
	NoOp      bool              `json:"noop"`
}
