package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"homeweather.app/internal/core/analytics"
	"homeweather.app/internal/core/storage"
	"homeweather.app/internal/ports"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetWeatherData(ctx context.Context, request storage.WeatherRequest, aggregator ports.WeatherAggregator) (*storage.WeatherResult, error) {
	args := m.Called(ctx, request, aggregator)
	result, _ := args.Get(0).(*storage.WeatherResult)
	return result, args.Error(1)
}

func (m *mockStorage) Query(ctx context.Context, location string, sinceDays int) ([]ports.PersistedRecord, error) {
	args := m.Called(ctx, location, sinceDays)
	records, _ := args.Get(0).([]ports.PersistedRecord)
	return records, args.Error(1)
}

func (m *mockStorage) ExportAll(ctx context.Context, location string, format ports.ExportFormat) ([]byte, error) {
	args := m.Called(ctx, location, format)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockStorage) Migrate(ctx context.Context, target ports.BackendName) (*storage.MigrationReport, error) {
	args := m.Called(ctx, target)
	report, _ := args.Get(0).(*storage.MigrationReport)
	return report, args.Error(1)
}

func (m *mockStorage) Status(ctx context.Context) storage.Status {
	return m.Called(ctx).Get(0).(storage.Status)
}

func (m *mockStorage) ClearOldData(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockAnalytics struct {
	mock.Mock
}

func (m *mockAnalytics) TemperatureAnalysis(ctx context.Context, request analytics.WindowRequest) (*analytics.TemperatureAnalysis, error) {
	args := m.Called(ctx, request)
	result, _ := args.Get(0).(*analytics.TemperatureAnalysis)
	return result, args.Error(1)
}

func (m *mockAnalytics) CommonConditions(ctx context.Context, request analytics.WindowRequest) ([]analytics.ConditionFrequency, error) {
	args := m.Called(ctx, request)
	result, _ := args.Get(0).([]analytics.ConditionFrequency)
	return result, args.Error(1)
}

func (m *mockAnalytics) Summary(ctx context.Context, location string) (*ports.AnalyticsRecord, error) {
	args := m.Called(ctx, location)
	result, _ := args.Get(0).(*ports.AnalyticsRecord)
	return result, args.Error(1)
}

func (m *mockAnalytics) Locations(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).([]string)
	return result, args.Error(1)
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) GetWeather(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	args := m.Called(ctx, location)
	result, _ := args.Get(0).(*ports.WeatherSnapshot)
	return result, args.Error(1)
}

func (m *mockAggregator) GetForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	args := m.Called(ctx, location, days)
	result, _ := args.Get(0).(*ports.WeatherSnapshot)
	return result, args.Error(1)
}

func (m *mockAggregator) GetCompleteWeatherData(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	args := m.Called(ctx, location, days)
	result, _ := args.Get(0).(*ports.WeatherSnapshot)
	return result, args.Error(1)
}

func (m *mockAggregator) GetProviderInfo() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

type mockProviderAdmin struct {
	mock.Mock
}

func (m *mockProviderAdmin) SetOrder(primary, secondary string) error {
	return m.Called(primary, secondary).Error(0)
}

type stubSearcher struct {
	candidates []ports.LocationCandidate
	err        error
}

func (s stubSearcher) SearchLocations(ctx context.Context, query string) ([]ports.LocationCandidate, error) {
	return s.candidates, s.err
}

type stubHealth map[string]ports.HealthStatus

func (h stubHealth) CheckAll(ctx context.Context) map[string]ports.HealthStatus {
	return h
}

type testServer struct {
	router     *gin.Engine
	storage    *mockStorage
	analytics  *mockAnalytics
	aggregator *mockAggregator
	admin      *mockProviderAdmin
}

func newTestServer(t *testing.T, opts ...func(*ServerOptions)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators([]string{"weatherapi", "openweathermap"}))

	ts := &testServer{
		storage:    &mockStorage{},
		analytics:  &mockAnalytics{},
		aggregator: &mockAggregator{},
		admin:      &mockProviderAdmin{},
	}

	options := ServerOptions{
		Config:        ServerConfig{Port: 8080},
		Storage:       ts.storage,
		Analytics:     ts.analytics,
		Aggregator:    ts.aggregator,
		ProviderAdmin: ts.admin,
		Searcher: stubSearcher{candidates: []ports.LocationCandidate{
			{Name: "London", Country: "United Kingdom", Region: "City of London", Lat: 51.52, Lon: -0.11},
		}},
		HealthChecker: stubHealth{"storage": {Component: "storage", Status: "healthy"}},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("weather_cache_hits_total 0\n"))
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	server, err := NewHTTPServerAdapter(options)
	require.NoError(t, err)
	ts.router = server.GetRouter()

	t.Cleanup(func() {
		ts.storage.AssertExpectations(t)
		ts.analytics.AssertExpectations(t)
		ts.aggregator.AssertExpectations(t)
		ts.admin.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
