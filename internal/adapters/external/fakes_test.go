package external

import (
	"context"
	"sync"
	"sync/atomic"

	"homeweather.app/internal/ports"
)

type fakeProvider struct {
	name          string
	snapshot      *ports.WeatherSnapshot
	forecast      *ports.WeatherSnapshot
	err           error
	forecastErr   error
	currentCalls  int32
	forecastCalls int32

	// gate, when set, holds FetchCurrent until closed; entered is signalled on entry
	gate    chan struct{}
	entered chan struct{}
}

func (p *fakeProvider) FetchCurrent(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	atomic.AddInt32(&p.currentCalls, 1)
	if p.gate != nil {
		if p.entered != nil {
			p.entered <- struct{}{}
		}
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	snap := *p.snapshot
	snap.Provider = p.name
	return &snap, nil
}

func (p *fakeProvider) FetchForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	atomic.AddInt32(&p.forecastCalls, 1)
	if p.forecastErr != nil {
		return nil, p.forecastErr
	}
	if p.err != nil {
		return nil, p.err
	}
	src := p.forecast
	if src == nil {
		src = p.snapshot
	}
	snap := *src
	snap.Provider = p.name
	return &snap, nil
}

func (p *fakeProvider) GetProviderName() string {
	return p.name
}

func (p *fakeProvider) calls() int {
	return int(atomic.LoadInt32(&p.currentCalls) + atomic.LoadInt32(&p.forecastCalls))
}

type logEntry struct {
	level   string
	message string
	fields  map[string]interface{}
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) Debug(msg string, fields ...ports.Field) { l.addEntry("DEBUG", msg, fields...) }
func (l *testLogger) Info(msg string, fields ...ports.Field)  { l.addEntry("INFO", msg, fields...) }
func (l *testLogger) Warn(msg string, fields ...ports.Field)  { l.addEntry("WARN", msg, fields...) }
func (l *testLogger) Error(msg string, fields ...ports.Field) { l.addEntry("ERROR", msg, fields...) }

func (l *testLogger) addEntry(level, message string, fields ...ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fieldMap := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		fieldMap[field.Key] = field.Value
	}
	l.entries = append(l.entries, logEntry{level: level, message: message, fields: fieldMap})
}

func (l *testLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func sampleSnapshot(temp float64, condition string) *ports.WeatherSnapshot {
	return &ports.WeatherSnapshot{
		Location: ports.LocationRef{Query: "London", Name: "London", Country: "UK"},
		Current:  ports.CurrentConditions{Temperature: temp, Condition: condition, Humidity: 60},
		Forecast: []ports.DailyForecast{},
		Alerts:   []ports.Alert{},
	}
}
