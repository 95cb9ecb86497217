package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"homeweather.app/internal/core/storage"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

func sampleSnapshot() *ports.WeatherSnapshot {
	return &ports.WeatherSnapshot{
		Location: ports.LocationRef{Name: "London", Country: "United Kingdom"},
		Current:  ports.CurrentConditions{Temperature: 20.5, Condition: "Partly Cloudy", Humidity: 65},
		Provider: "weatherapi",
	}
}

func TestWeatherHandler_GetWeather(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t, func(o *ServerOptions) { o.Config.Freshness = 10 * time.Minute })
		ts.storage.On("GetWeatherData", mock.Anything,
			storage.WeatherRequest{Location: "London", Freshness: 10 * time.Minute}, ts.aggregator).
			Return(&storage.WeatherResult{Snapshot: sampleSnapshot(), Source: storage.SourceProvider, RecordID: "rec-1", Persisted: true}, nil)

		w := ts.do(http.MethodGet, "/api/weather?location=London", "")
		require.Equal(t, http.StatusOK, w.Code)

		var result storage.WeatherResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, storage.SourceProvider, result.Source)
		assert.Equal(t, "rec-1", result.RecordID)
		assert.Equal(t, 20.5, result.Snapshot.Current.Temperature)
	})

	t.Run("MissingLocation", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodGet, "/api/weather", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "location is required")
	})

	t.Run("AllProvidersFailed", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.On("GetWeatherData", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.NewAllProvidersFailedError("all weather providers failed", nil))

		w := ts.do(http.MethodGet, "/api/weather?location=Atlantis", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "try again")
	})
}

func TestWeatherHandler_GetForecast(t *testing.T) {
	t.Run("DefaultDays", func(t *testing.T) {
		ts := newTestServer(t)
		ts.aggregator.On("GetForecast", mock.Anything, "London", 3).Return(sampleSnapshot(), nil)

		w := ts.do(http.MethodGet, "/api/forecast?location=London", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ExplicitDays", func(t *testing.T) {
		ts := newTestServer(t)
		ts.aggregator.On("GetForecast", mock.Anything, "London", 1).Return(sampleSnapshot(), nil)

		w := ts.do(http.MethodGet, "/api/forecast?location=London&days=1", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DaysOutOfRange", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodGet, "/api/forecast?location=London&days=0", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWeatherHandler_SearchLocations(t *testing.T) {
	t.Run("Candidates", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodGet, "/api/search?q=Lon", "")
		require.Equal(t, http.StatusOK, w.Code)

		var candidates []ports.LocationCandidate
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candidates))
		require.Len(t, candidates, 1)
		assert.Equal(t, "London", candidates[0].Name)
	})

	t.Run("EmptyListNotNull", func(t *testing.T) {
		ts := newTestServer(t, func(o *ServerOptions) { o.Searcher = stubSearcher{} })
		w := ts.do(http.MethodGet, "/api/search?q=L", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("MissingQuery", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodGet, "/api/search", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
