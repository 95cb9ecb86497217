package ports

import (
	"context"
	"time"
)

// LocationRef identifies the place a snapshot was observed for
type LocationRef struct {
	Query   string  `json:"query"`
	Name    string  `json:"name"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// LocationCandidate is a single result of a location search
type LocationCandidate struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Region  string  `json:"region"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentConditions holds metric observations: °C, km/h, km, hPa
type CurrentConditions struct {
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Condition     string    `json:"condition"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection string    `json:"windDirection"`
	Pressure      float64   `json:"pressure"`
	Visibility    float64   `json:"visibility"`
	UVIndex       *float64  `json:"uvIndex"`
	CloudCover    float64   `json:"cloudCover"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// HourlyPoint is one sub-daily forecast entry
type HourlyPoint struct {
	Time         time.Time `json:"time"`
	Temperature  float64   `json:"temperature"`
	Condition    string    `json:"condition"`
	Humidity     float64   `json:"humidity"`
	WindSpeed    float64   `json:"windSpeed"`
	ChanceOfRain float64   `json:"chanceOfRain"`
}

// Astronomy holds the optional sun and moon times of a forecast day
type Astronomy struct {
	Sunrise   string `json:"sunrise,omitempty"`
	Sunset    string `json:"sunset,omitempty"`
	Moonrise  string `json:"moonrise,omitempty"`
	Moonset   string `json:"moonset,omitempty"`
	MoonPhase string `json:"moonPhase,omitempty"`
}

// DailyForecast is one calendar day of forecast data
type DailyForecast struct {
	Date         string        `json:"date"`
	MaxTemp      float64       `json:"maxTemp"`
	MinTemp      float64       `json:"minTemp"`
	Condition    string        `json:"condition"`
	Humidity     float64       `json:"humidity"`
	WindSpeed    float64       `json:"windSpeed"`
	ChanceOfRain float64       `json:"chanceOfRain"`
	ChanceOfSnow float64       `json:"chanceOfSnow"`
	Astronomy    *Astronomy    `json:"astronomy,omitempty"`
	Hourly       []HourlyPoint `json:"hourly"`
}

// AirQuality holds pollutant concentrations in μg/m³
type AirQuality struct {
	PM25     float64 `json:"pm2_5"`
	PM10     float64 `json:"pm10"`
	CO       float64 `json:"co"`
	NO2      float64 `json:"no2"`
	O3       float64 `json:"o3"`
	SO2      float64 `json:"so2"`
	EPAIndex int     `json:"epaIndex"`
}

// Alert is a weather warning issued for the location
type Alert struct {
	Headline  string `json:"headline"`
	Severity  string `json:"severity"`
	Event     string `json:"event"`
	Areas     string `json:"areas"`
	Desc      string `json:"desc"`
	Effective string `json:"effective"`
	Expires   string `json:"expires"`
}

// WeatherSnapshot is the canonical, provider-independent weather observation.
// Values are never mutated after the snapshot leaves the provider boundary.
type WeatherSnapshot struct {
	Location   LocationRef       `json:"location"`
	Current    CurrentConditions `json:"current"`
	Forecast   []DailyForecast   `json:"forecast"`
	AirQuality *AirQuality       `json:"airQuality"`
	Alerts     []Alert           `json:"alerts"`
	Provider   string            `json:"provider"`
	ObservedAt time.Time         `json:"observedAt"`
}

// ProviderClient fetches and normalizes data from one external weather API
type ProviderClient interface {
	FetchCurrent(ctx context.Context, location string) (*WeatherSnapshot, error)
	FetchForecast(ctx context.Context, location string, days int) (*WeatherSnapshot, error)
	GetProviderName() string
}

// LocationSearcher resolves partial place names to candidates
type LocationSearcher interface {
	SearchLocations(ctx context.Context, query string) ([]LocationCandidate, error)
}

// WeatherAggregator hides primary/secondary provider fallback behind one call
type WeatherAggregator interface {
	GetWeather(ctx context.Context, location string) (*WeatherSnapshot, error)
	GetForecast(ctx context.Context, location string, days int) (*WeatherSnapshot, error)
	GetCompleteWeatherData(ctx context.Context, location string, days int) (*WeatherSnapshot, error)
	GetProviderInfo() map[string]interface{}
}
