package analytics

import (
	"context"
	"strings"
	"sync"
	"time"

	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// Engine maintains per-location AnalyticsRecords and answers trend and
// frequency questions over the persisted history.
type Engine struct {
	store  ports.AnalyticsStore
	logger ports.Logger
	now    func() time.Time

	// serializes load-modify-save of analytics records
	mu sync.Mutex
}

type EngineDependencies struct {
	Store  ports.AnalyticsStore
	Logger ports.Logger
	Now    func() time.Time
}

func NewEngine(deps EngineDependencies) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.NewValidationError("analytics store is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:  deps.Store,
		logger: deps.Logger,
		now:    now,
	}, nil
}

// RecordObservation folds a committed snapshot into the location's record
func (e *Engine) RecordObservation(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return errors.NewValidationError("location cannot be empty")
	}
	if snapshot == nil {
		return errors.NewValidationError("snapshot cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.store.LoadAnalytics(ctx, location)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			return err
		}
		record = &ports.AnalyticsRecord{Location: location}
	}

	at := snapshot.ObservedAt
	if at.IsZero() {
		at = e.now()
	}
	at = at.UTC()

	if record.FirstSeen.IsZero() {
		record.FirstSeen = at
	}
	record.LastSeen = at
	record.TotalRequests++

	temp := snapshot.Current.Temperature
	record.AverageTemperature += (temp - record.AverageTemperature) / float64(record.TotalRequests)

	record.TemperatureHistory = appendBounded(record.TemperatureHistory,
		ports.TemperaturePoint{Value: temp, At: at}, MaxTemperatureHistory)
	record.ConditionHistory = appendBounded(record.ConditionHistory,
		ports.ConditionPoint{Condition: snapshot.Current.Condition, At: at}, MaxConditionHistory)
	if aq := snapshot.AirQuality; aq != nil {
		record.AirQualityHistory = appendBounded(record.AirQualityHistory,
			ports.AirQualityPoint{PM25: aq.PM25, PM10: aq.PM10, At: at}, MaxAirQualityHistory)
	}

	if err := e.store.SaveAnalytics(ctx, record); err != nil {
		return err
	}

	e.logger.Debug("Analytics updated",
		ports.F("location", location),
		ports.F("total_requests", record.TotalRequests))
	return nil
}

// TemperatureAnalysis computes statistics over the persisted records of the window
func (e *Engine) TemperatureAnalysis(ctx context.Context, request WindowRequest) (*TemperatureAnalysis, error) {
	if err := request.IsValid(); err != nil {
		return nil, errors.NewValidationError("invalid analysis request: " + err.Error())
	}

	records, err := e.store.Query(ctx, request.Location, request.Days)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewNotFoundError("no weather data for " + request.Location)
	}

	temps := make([]float64, 0, len(records))
	for _, r := range records {
		temps = append(temps, r.Snapshot.Current.Temperature)
	}

	analysis := &TemperatureAnalysis{
		Location:   strings.TrimSpace(request.Location),
		Days:       request.Days,
		Average:    mean(temps),
		Minimum:    temps[0],
		Maximum:    temps[0],
		DataPoints: len(temps),
		Trend:      ClassifyTrend(temps),
	}
	for _, t := range temps[1:] {
		if t < analysis.Minimum {
			analysis.Minimum = t
		}
		if t > analysis.Maximum {
			analysis.Maximum = t
		}
	}
	return analysis, nil
}

// CommonConditions returns the top conditions observed in the window
func (e *Engine) CommonConditions(ctx context.Context, request WindowRequest) ([]ConditionFrequency, error) {
	if err := request.IsValid(); err != nil {
		return nil, errors.NewValidationError("invalid conditions request: " + err.Error())
	}

	records, err := e.store.Query(ctx, request.Location, request.Days)
	if err != nil {
		return nil, err
	}

	conditions := make([]string, 0, len(records))
	for _, r := range records {
		conditions = append(conditions, r.Snapshot.Current.Condition)
	}
	return RankConditions(conditions, topConditions), nil
}

// Summary returns the accumulated record of one location
func (e *Engine) Summary(ctx context.Context, location string) (*ports.AnalyticsRecord, error) {
	if strings.TrimSpace(location) == "" {
		return nil, errors.NewValidationError("location cannot be empty")
	}
	return e.store.LoadAnalytics(ctx, location)
}

// Locations lists every location with analytics
func (e *Engine) Locations(ctx context.Context) ([]string, error) {
	records, err := e.store.AllAnalytics(ctx)
	if err != nil {
		return nil, err
	}

	locations := make([]string, 0, len(records))
	for _, r := range records {
		locations = append(locations, r.Location)
	}
	return locations, nil
}

// ExportTable flattens the window's records into export rows
func (e *Engine) ExportTable(ctx context.Context, request WindowRequest) ([]ports.ExportRow, error) {
	if err := request.IsValid(); err != nil {
		return nil, errors.NewValidationError("invalid export request: " + err.Error())
	}

	records, err := e.store.Query(ctx, request.Location, request.Days)
	if err != nil {
		return nil, err
	}

	rows := make([]ports.ExportRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, ports.NewExportRow(r))
	}
	return rows, nil
}

// appendBounded appends and drops the oldest entries beyond limit
func appendBounded[T any](history []T, item T, limit int) []T {
	history = append(history, item)
	if over := len(history) - limit; over > 0 {
		history = append(history[:0:0], history[over:]...)
	}
	return history
}
