// Package external provides adapters for external services
// These adapters implement ports for weather providers and caches.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

const (
	weatherAPIName        = "weatherapi"
	weatherAPIMaxDays     = 3
	minSearchQueryLength  = 2
	defaultRequestTimeout = 10 * time.Second
)

// WeatherAPIProviderAdapter implements ProviderClient for WeatherAPI.com
type WeatherAPIProviderAdapter struct {
	apiKey  string
	baseURL string
	client  HTTPClient
	circuit *gobreaker.CircuitBreaker
	backoff BackoffConfig
	logger  ports.Logger
	now     func() time.Time
}

// WeatherAPIProviderParams holds parameters for creating WeatherAPI provider
type WeatherAPIProviderParams struct {
	APIKey  string
	BaseURL string
	Client  HTTPClient
	Backoff *BackoffConfig
	Logger  ports.Logger
}

// WeatherAPIResponse represents the current/forecast response from WeatherAPI.com
type WeatherAPIResponse struct {
	Location struct {
		Name      string  `json:"name"`
		Region    string  `json:"region"`
		Country   string  `json:"country"`
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		Localtime string  `json:"localtime"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64   `json:"last_updated_epoch"`
		TempC            float64 `json:"temp_c"`
		FeelsLikeC       float64 `json:"feelslike_c"`
		Condition        struct {
			Text string `json:"text"`
		} `json:"condition"`
		Humidity   float64  `json:"humidity"`
		WindKph    float64  `json:"wind_kph"`
		WindDir    string   `json:"wind_dir"`
		PressureMb float64  `json:"pressure_mb"`
		VisKm      float64  `json:"vis_km"`
		UV         *float64 `json:"uv"`
		Cloud      float64  `json:"cloud"`
		AirQuality *struct {
			CO       float64 `json:"co"`
			NO2      float64 `json:"no2"`
			O3       float64 `json:"o3"`
			SO2      float64 `json:"so2"`
			PM25     float64 `json:"pm2_5"`
			PM10     float64 `json:"pm10"`
			EPAIndex int     `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC          float64 `json:"maxtemp_c"`
				MinTempC          float64 `json:"mintemp_c"`
				AvgHumidity       float64 `json:"avghumidity"`
				MaxWindKph        float64 `json:"maxwind_kph"`
				DailyChanceOfRain float64 `json:"daily_chance_of_rain"`
				DailyChanceOfSnow float64 `json:"daily_chance_of_snow"`
				Condition         struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
			Astro *struct {
				Sunrise   string `json:"sunrise"`
				Sunset    string `json:"sunset"`
				Moonrise  string `json:"moonrise"`
				Moonset   string `json:"moonset"`
				MoonPhase string `json:"moon_phase"`
			} `json:"astro"`
			Hour []struct {
				TimeEpoch    int64   `json:"time_epoch"`
				TempC        float64 `json:"temp_c"`
				Humidity     float64 `json:"humidity"`
				WindKph      float64 `json:"wind_kph"`
				ChanceOfRain float64 `json:"chance_of_rain"`
				Condition    struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []struct {
			Headline  string `json:"headline"`
			Severity  string `json:"severity"`
			Event     string `json:"event"`
			Areas     string `json:"areas"`
			Desc      string `json:"desc"`
			Effective string `json:"effective"`
			Expires   string `json:"expires"`
		} `json:"alert"`
	} `json:"alerts"`
}

// weatherAPISearchResult is one entry of the search.json response
type weatherAPISearchResult struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// NewWeatherAPIProviderAdapter creates a new WeatherAPI provider adapter
func NewWeatherAPIProviderAdapter(params WeatherAPIProviderParams) *WeatherAPIProviderAdapter {
	baseURL := strings.TrimRight(params.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.weatherapi.com/v1"
	}
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	backoff := DefaultBackoff
	if params.Backoff != nil {
		backoff = *params.Backoff
	}

	return &WeatherAPIProviderAdapter{
		apiKey:  params.APIKey,
		baseURL: baseURL,
		client:  client,
		circuit: newCircuitBreaker(weatherAPIName),
		backoff: backoff,
		logger:  params.Logger,
		now:     time.Now,
	}
}

// FetchCurrent retrieves current conditions (with air quality) from WeatherAPI.com
func (p *WeatherAPIProviderAdapter) FetchCurrent(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("aqi", "yes")

	var apiResp WeatherAPIResponse
	if err := p.get(ctx, "current.json", location, values, &apiResp); err != nil {
		return nil, err
	}

	return NormalizeWeatherAPIResponse(location, &apiResp, p.now()), nil
}

// FetchForecast retrieves up to three forecast days with alerts and air quality
func (p *WeatherAPIProviderAdapter) FetchForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	if days < 1 {
		return nil, errors.NewValidationError("forecast days must be at least 1")
	}
	if days > weatherAPIMaxDays {
		days = weatherAPIMaxDays
	}

	values := url.Values{}
	values.Set("days", strconv.Itoa(days))
	values.Set("aqi", "yes")
	values.Set("alerts", "yes")

	var apiResp WeatherAPIResponse
	if err := p.get(ctx, "forecast.json", location, values, &apiResp); err != nil {
		return nil, err
	}

	return NormalizeWeatherAPIResponse(location, &apiResp, p.now()), nil
}

// SearchLocations returns candidate places for a partial name
func (p *WeatherAPIProviderAdapter) SearchLocations(ctx context.Context, query string) ([]ports.LocationCandidate, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchQueryLength {
		return []ports.LocationCandidate{}, nil
	}

	var results []weatherAPISearchResult
	if err := p.get(ctx, "search.json", query, url.Values{}, &results); err != nil {
		return nil, err
	}

	candidates := make([]ports.LocationCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, ports.LocationCandidate{
			Name:    r.Name,
			Country: r.Country,
			Region:  r.Region,
			Lat:     r.Lat,
			Lon:     r.Lon,
		})
	}
	return candidates, nil
}

// GetProviderName returns the name of this weather provider
func (p *WeatherAPIProviderAdapter) GetProviderName() string {
	return weatherAPIName
}

func (p *WeatherAPIProviderAdapter) get(ctx context.Context, endpoint, location string, values url.Values, target interface{}) error {
	if p.apiKey == "" {
		return errors.NewConfigurationError("weatherapi API key is not configured", nil)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return errors.NewValidationError("location cannot be empty")
	}

	// WeatherAPI accepts both place names and "lat,lon" in q.
	values.Set("key", p.apiKey)
	values.Set("q", location)
	requestURL := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())

	resp, err := doRequestWithResilience(ctx, p.client, p.circuit, p.backoff, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	})
	if err != nil {
		if code := StatusCode(err); code != 0 {
			return errors.NewProviderError(fmt.Sprintf("WeatherAPI returned status %d", code), err)
		}
		return errors.NewProviderError("failed to call WeatherAPI", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && p.logger != nil {
			p.logger.Warn("Failed to close WeatherAPI response body", ports.F("error", closeErr))
		}
	}()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.NewProviderError("failed to decode WeatherAPI response", err)
	}
	return nil
}

// NormalizeWeatherAPIResponse converts a WeatherAPI.com payload into the
// canonical snapshot. WeatherAPI already reports metric units.
func NormalizeWeatherAPIResponse(query string, resp *WeatherAPIResponse, observedAt time.Time) *ports.WeatherSnapshot {
	lastUpdated := observedAt
	if resp.Current.LastUpdatedEpoch > 0 {
		lastUpdated = time.Unix(resp.Current.LastUpdatedEpoch, 0).UTC()
	}

	snapshot := &ports.WeatherSnapshot{
		Location: ports.LocationRef{
			Query:   strings.TrimSpace(query),
			Name:    resp.Location.Name,
			Region:  resp.Location.Region,
			Country: resp.Location.Country,
			Lat:     resp.Location.Lat,
			Lon:     resp.Location.Lon,
		},
		Current: ports.CurrentConditions{
			Temperature:   resp.Current.TempC,
			FeelsLike:     resp.Current.FeelsLikeC,
			Condition:     strings.TrimSpace(resp.Current.Condition.Text),
			Humidity:      resp.Current.Humidity,
			WindSpeed:     resp.Current.WindKph,
			WindDirection: resp.Current.WindDir,
			Pressure:      resp.Current.PressureMb,
			Visibility:    resp.Current.VisKm,
			UVIndex:       resp.Current.UV,
			CloudCover:    resp.Current.Cloud,
			LastUpdated:   lastUpdated,
		},
		Forecast:   []ports.DailyForecast{},
		Alerts:     []ports.Alert{},
		Provider:   weatherAPIName,
		ObservedAt: observedAt.UTC(),
	}

	if aq := resp.Current.AirQuality; aq != nil {
		snapshot.AirQuality = &ports.AirQuality{
			PM25:     aq.PM25,
			PM10:     aq.PM10,
			CO:       aq.CO,
			NO2:      aq.NO2,
			O3:       aq.O3,
			SO2:      aq.SO2,
			EPAIndex: aq.EPAIndex,
		}
	}

	for _, fd := range resp.Forecast.ForecastDay {
		day := ports.DailyForecast{
			Date:         fd.Date,
			MaxTemp:      fd.Day.MaxTempC,
			MinTemp:      fd.Day.MinTempC,
			Condition:    strings.TrimSpace(fd.Day.Condition.Text),
			Humidity:     fd.Day.AvgHumidity,
			WindSpeed:    fd.Day.MaxWindKph,
			ChanceOfRain: fd.Day.DailyChanceOfRain,
			ChanceOfSnow: fd.Day.DailyChanceOfSnow,
			Hourly:       make([]ports.HourlyPoint, 0, len(fd.Hour)),
		}
		if fd.Astro != nil {
			day.Astronomy = &ports.Astronomy{
				Sunrise:   fd.Astro.Sunrise,
				Sunset:    fd.Astro.Sunset,
				Moonrise:  fd.Astro.Moonrise,
				Moonset:   fd.Astro.Moonset,
				MoonPhase: fd.Astro.MoonPhase,
			}
		}
		for _, h := range fd.Hour {
			day.Hourly = append(day.Hourly, ports.HourlyPoint{
				Time:         time.Unix(h.TimeEpoch, 0).UTC(),
				Temperature:  h.TempC,
				Condition:    strings.TrimSpace(h.Condition.Text),
				Humidity:     h.Humidity,
				WindSpeed:    h.WindKph,
				ChanceOfRain: h.ChanceOfRain,
			})
		}
		snapshot.Forecast = append(snapshot.Forecast, day)
	}

	for _, a := range resp.Alerts.Alert {
		snapshot.Alerts = append(snapshot.Alerts, ports.Alert{
			Headline:  a.Headline,
			Severity:  a.Severity,
			Event:     a.Event,
			Areas:     a.Areas,
			Desc:      a.Desc,
			Effective: a.Effective,
			Expires:   a.Expires,
		})
	}

	return snapshot
}
