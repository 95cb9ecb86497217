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
	openWeatherName         = "openweathermap"
	openWeatherForecastCnt  = 40
	openWeatherMaxDays      = 5
	metersPerSecondToKmH    = 3.6
	metersPerKilometer      = 1000.0
	openWeatherDateLayout   = "2006-01-02"
	openWeatherUnknownLabel = "Unknown"
)

// OpenWeatherMapProviderAdapter implements ProviderClient for OpenWeatherMap
type OpenWeatherMapProviderAdapter struct {
	apiKey  string
	baseURL string
	client  HTTPClient
	circuit *gobreaker.CircuitBreaker
	backoff BackoffConfig
	logger  ports.Logger
	now     func() time.Time
}

// OpenWeatherMapProviderParams holds parameters for creating OpenWeatherMap provider
type OpenWeatherMapProviderParams struct {
	APIKey  string
	BaseURL string
	Client  HTTPClient
	Backoff *BackoffConfig
	Logger  ports.Logger
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// OpenWeatherMapResponse represents the /weather response (SI units, metric temperatures)
type OpenWeatherMapResponse struct {
	Dt    int64  `json:"dt"`
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
	Clouds     struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Weather []openWeatherCondition `json:"weather"`
}

// OpenWeatherMapForecastEntry is one 3-hour step of the /forecast response
type OpenWeatherMapForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
	Clouds     struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Pop     float64                `json:"pop"`
	Snow    map[string]float64     `json:"snow"`
	Weather []openWeatherCondition `json:"weather"`
}

// OpenWeatherMapForecastResponse represents the /forecast response
type OpenWeatherMapForecastResponse struct {
	List []OpenWeatherMapForecastEntry `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Coord   struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Timezone int64 `json:"timezone"`
		Sunrise  int64 `json:"sunrise"`
		Sunset   int64 `json:"sunset"`
	} `json:"city"`
}

// NewOpenWeatherMapProviderAdapter creates a new OpenWeatherMap provider adapter
func NewOpenWeatherMapProviderAdapter(params OpenWeatherMapProviderParams) *OpenWeatherMapProviderAdapter {
	baseURL := strings.TrimRight(params.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	backoff := DefaultBackoff
	if params.Backoff != nil {
		backoff = *params.Backoff
	}

	return &OpenWeatherMapProviderAdapter{
		apiKey:  params.APIKey,
		baseURL: baseURL,
		client:  client,
		circuit: newCircuitBreaker(openWeatherName),
		backoff: backoff,
		logger:  params.Logger,
		now:     time.Now,
	}
}

// FetchCurrent retrieves current conditions from OpenWeatherMap
func (p *OpenWeatherMapProviderAdapter) FetchCurrent(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	var apiResp OpenWeatherMapResponse
	if err := p.get(ctx, "weather", location, url.Values{}, &apiResp); err != nil {
		return nil, err
	}
	return NormalizeOpenWeatherMapCurrent(location, &apiResp, p.now()), nil
}

// FetchForecast retrieves the 5-day/3-hour forecast and groups it into days
func (p *OpenWeatherMapProviderAdapter) FetchForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	if days < 1 {
		return nil, errors.NewValidationError("forecast days must be at least 1")
	}

	values := url.Values{}
	values.Set("cnt", strconv.Itoa(openWeatherForecastCnt))

	var apiResp OpenWeatherMapForecastResponse
	if err := p.get(ctx, "forecast", location, values, &apiResp); err != nil {
		return nil, err
	}
	return NormalizeOpenWeatherMapForecast(location, &apiResp, days, p.now()), nil
}

// GetProviderName returns the name of this weather provider
func (p *OpenWeatherMapProviderAdapter) GetProviderName() string {
	return openWeatherName
}

func (p *OpenWeatherMapProviderAdapter) get(ctx context.Context, endpoint, location string, values url.Values, target interface{}) error {
	if p.apiKey == "" {
		return errors.NewConfigurationError("openweathermap API key is not configured", nil)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return errors.NewValidationError("location cannot be empty")
	}

	if lat, lon, ok := parseCoordinates(location); ok {
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	} else {
		values.Set("q", location)
	}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	requestURL := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())

	resp, err := doRequestWithResilience(ctx, p.client, p.circuit, p.backoff, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	})
	if err != nil {
		if code := StatusCode(err); code != 0 {
			return errors.NewProviderError(fmt.Sprintf("OpenWeatherMap returned status %d", code), err)
		}
		return errors.NewProviderError("failed to call OpenWeatherMap", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && p.logger != nil {
			p.logger.Warn("Failed to close OpenWeatherMap response body", ports.F("error", closeErr))
		}
	}()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.NewProviderError("failed to decode OpenWeatherMap response", err)
	}
	return nil
}

func openWeatherDescription(items []openWeatherCondition) string {
	if len(items) == 0 {
		return openWeatherUnknownLabel
	}
	if items[0].Description != "" {
		return titleCase(items[0].Description)
	}
	return titleCase(items[0].Main)
}

// NormalizeOpenWeatherMapCurrent converts /weather into the canonical snapshot:
// wind m/s → km/h, visibility m → km.
func NormalizeOpenWeatherMapCurrent(query string, resp *OpenWeatherMapResponse, observedAt time.Time) *ports.WeatherSnapshot {
	lastUpdated := observedAt.UTC()
	if resp.Dt > 0 {
		lastUpdated = time.Unix(resp.Dt, 0).UTC()
	}

	return &ports.WeatherSnapshot{
		Location: ports.LocationRef{
			Query:   strings.TrimSpace(query),
			Name:    resp.Name,
			Country: resp.Sys.Country,
			Lat:     resp.Coord.Lat,
			Lon:     resp.Coord.Lon,
		},
		Current: ports.CurrentConditions{
			Temperature:   resp.Main.Temp,
			FeelsLike:     resp.Main.FeelsLike,
			Condition:     openWeatherDescription(resp.Weather),
			Humidity:      resp.Main.Humidity,
			WindSpeed:     resp.Wind.Speed * metersPerSecondToKmH,
			WindDirection: compassDirection(resp.Wind.Deg),
			Pressure:      resp.Main.Pressure,
			Visibility:    resp.Visibility / metersPerKilometer,
			CloudCover:    resp.Clouds.All,
			LastUpdated:   lastUpdated,
		},
		Forecast:   []ports.DailyForecast{},
		Alerts:     []ports.Alert{},
		Provider:   openWeatherName,
		ObservedAt: observedAt.UTC(),
	}
}

// dayAccumulator folds the 3-hour entries of one calendar date
type dayAccumulator struct {
	date         string
	maxTemp      float64
	minTemp      float64
	humiditySum  float64
	maxWind      float64
	maxPop       float64
	snowy        bool
	conditions   map[string]int
	conditionSeq []string
	hourly       []ports.HourlyPoint
}

func (d *dayAccumulator) add(entry OpenWeatherMapForecastEntry, at time.Time) {
	temp := entry.Main.Temp
	if len(d.hourly) == 0 {
		d.maxTemp, d.minTemp = temp, temp
	} else {
		if temp > d.maxTemp {
			d.maxTemp = temp
		}
		if temp < d.minTemp {
			d.minTemp = temp
		}
	}

	wind := entry.Wind.Speed * metersPerSecondToKmH
	if wind > d.maxWind {
		d.maxWind = wind
	}
	if entry.Pop > d.maxPop {
		d.maxPop = entry.Pop
	}
	if len(entry.Snow) > 0 {
		d.snowy = true
	}
	d.humiditySum += entry.Main.Humidity

	condition := openWeatherDescription(entry.Weather)
	if _, seen := d.conditions[condition]; !seen {
		d.conditionSeq = append(d.conditionSeq, condition)
	}
	d.conditions[condition]++

	d.hourly = append(d.hourly, ports.HourlyPoint{
		Time:         at,
		Temperature:  temp,
		Condition:    condition,
		Humidity:     entry.Main.Humidity,
		WindSpeed:    wind,
		ChanceOfRain: entry.Pop * 100,
	})
}

// dominantCondition returns the most frequent condition; ties go to the
// condition seen first that day.
func (d *dayAccumulator) dominantCondition() string {
	best, bestCount := openWeatherUnknownLabel, 0
	for _, c := range d.conditionSeq {
		if d.conditions[c] > bestCount {
			best, bestCount = c, d.conditions[c]
		}
	}
	return best
}

func (d *dayAccumulator) toForecast() ports.DailyForecast {
	forecast := ports.DailyForecast{
		Date:         d.date,
		MaxTemp:      d.maxTemp,
		MinTemp:      d.minTemp,
		Condition:    d.dominantCondition(),
		Humidity:     d.humiditySum / float64(len(d.hourly)),
		WindSpeed:    d.maxWind,
		ChanceOfRain: d.maxPop * 100,
		Hourly:       d.hourly,
	}
	if d.snowy {
		forecast.ChanceOfSnow = d.maxPop * 100
	}
	return forecast
}

// NormalizeOpenWeatherMapForecast groups 3-hour entries by the location's
// local calendar date and keeps at most `days` days in date order.
// The /forecast payload has no current block, so Current is the first 3-hour
// step as forecast (LastUpdated is that step's time, not an observation time).
// UV index is not reported there and stays nil.
func NormalizeOpenWeatherMapForecast(query string, resp *OpenWeatherMapForecastResponse, days int, observedAt time.Time) *ports.WeatherSnapshot {
	if days > openWeatherMaxDays {
		days = openWeatherMaxDays
	}
	offset := time.Duration(resp.City.Timezone) * time.Second

	var ordered []*dayAccumulator
	byDate := make(map[string]*dayAccumulator)

	for _, entry := range resp.List {
		at := time.Unix(entry.Dt, 0).UTC()
		date := at.Add(offset).Format(openWeatherDateLayout)

		acc, ok := byDate[date]
		if !ok {
			acc = &dayAccumulator{date: date, conditions: make(map[string]int)}
			byDate[date] = acc
			ordered = append(ordered, acc)
		}
		acc.add(entry, at)
	}

	forecast := make([]ports.DailyForecast, 0, days)
	for _, acc := range ordered {
		if len(forecast) >= days {
			break
		}
		forecast = append(forecast, acc.toForecast())
	}

	if len(forecast) > 0 && resp.City.Sunrise > 0 {
		local := time.FixedZone("local", int(resp.City.Timezone))
		forecast[0].Astronomy = &ports.Astronomy{
			Sunrise: time.Unix(resp.City.Sunrise, 0).In(local).Format("03:04 PM"),
			Sunset:  time.Unix(resp.City.Sunset, 0).In(local).Format("03:04 PM"),
		}
	}

	snapshot := &ports.WeatherSnapshot{
		Location: ports.LocationRef{
			Query:   strings.TrimSpace(query),
			Name:    resp.City.Name,
			Country: resp.City.Country,
			Lat:     resp.City.Coord.Lat,
			Lon:     resp.City.Coord.Lon,
		},
		Forecast:   forecast,
		Alerts:     []ports.Alert{},
		Provider:   openWeatherName,
		ObservedAt: observedAt.UTC(),
	}

	if len(resp.List) > 0 {
		first := resp.List[0]
		snapshot.Current = ports.CurrentConditions{
			Temperature:   first.Main.Temp,
			FeelsLike:     first.Main.FeelsLike,
			Condition:     openWeatherDescription(first.Weather),
			Humidity:      first.Main.Humidity,
			WindSpeed:     first.Wind.Speed * metersPerSecondToKmH,
			WindDirection: compassDirection(first.Wind.Deg),
			Pressure:      first.Main.Pressure,
			Visibility:    first.Visibility / metersPerKilometer,
			CloudCover:    first.Clouds.All,
			LastUpdated:   time.Unix(first.Dt, 0).UTC(),
		}
	}

	return snapshot
}
