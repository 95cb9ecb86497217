package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adapters "homeweather.app/internal/adapters/storage"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}

type memPreferences struct {
	mu      sync.Mutex
	pref    ports.StoragePreference
	saveErr error
	saves   int
}

func (p *memPreferences) Load(ctx context.Context) (ports.StoragePreference, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pref.Backend == "" {
		return ports.StoragePreference{Backend: ports.BackendLocal}, nil
	}
	return p.pref, nil
}

func (p *memPreferences) Save(ctx context.Context, pref ports.StoragePreference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saves++
	p.pref = pref
	return nil
}

func (p *memPreferences) current() ports.BackendName {
	pref, _ := p.Load(context.Background())
	return pref.Backend
}

// flakyBackend wraps a real backend to rename it and inject failures
type flakyBackend struct {
	ports.StorageBackend
	name         ports.BackendName
	unavailable  bool
	failImportAt int
	imports      int
	latestErr    error
	saveErr      error
}

func (b *flakyBackend) Name() ports.BackendName { return b.name }

func (b *flakyBackend) IsAvailable(ctx context.Context) bool { return !b.unavailable }

func (b *flakyBackend) Import(ctx context.Context, record ports.PersistedRecord) error {
	b.imports++
	if b.imports == b.failImportAt {
		return errors.NewStorageError("write failed", fmt.Errorf("disk full"))
	}
	return b.StorageBackend.Import(ctx, record)
}

func (b *flakyBackend) Latest(ctx context.Context, location string) (*ports.PersistedRecord, error) {
	if b.latestErr != nil {
		return nil, b.latestErr
	}
	return b.StorageBackend.Latest(ctx, location)
}

func (b *flakyBackend) Save(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) (string, error) {
	if b.saveErr != nil {
		return "", b.saveErr
	}
	return b.StorageBackend.Save(ctx, location, snapshot)
}

type stubAggregator struct {
	mu       sync.Mutex
	snapshot *ports.WeatherSnapshot
	err      error
	calls    int
}

func (a *stubAggregator) GetWeather(ctx context.Context, location string) (*ports.WeatherSnapshot, error) {
	return a.GetCompleteWeatherData(ctx, location, 1)
}

func (a *stubAggregator) GetForecast(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	return a.GetCompleteWeatherData(ctx, location, days)
}

func (a *stubAggregator) GetCompleteWeatherData(ctx context.Context, location string, days int) (*ports.WeatherSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	snapshot := *a.snapshot
	return &snapshot, nil
}

func (a *stubAggregator) GetProviderInfo() map[string]interface{} {
	return map[string]interface{}{}
}

type recordingObserver struct {
	mu        sync.Mutex
	locations []string
}

func (o *recordingObserver) RecordObservation(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locations = append(o.locations, location)
	return nil
}

func snapshot(temp float64) *ports.WeatherSnapshot {
	return &ports.WeatherSnapshot{
		Location: ports.LocationRef{Name: "Kyiv"},
		Current:  ports.CurrentConditions{Temperature: temp, Condition: "Sunny"},
		Provider: "weatherapi",
	}
}

type fixture struct {
	clock  *clock
	local  *flakyBackend
	remote *flakyBackend
	prefs  *memPreferences
	router *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := newClock()
	local, err := adapters.NewLocalBackend(adapters.LocalBackendParams{OwnerID: "tester", Now: c.Now})
	require.NoError(t, err)
	remote, err := adapters.NewLocalBackend(adapters.LocalBackendParams{OwnerID: "tester", Now: c.Now})
	require.NoError(t, err)

	f := &fixture{
		clock:  c,
		local:  &flakyBackend{StorageBackend: local, name: ports.BackendLocal},
		remote: &flakyBackend{StorageBackend: remote, name: ports.BackendRemote},
		prefs:  &memPreferences{},
	}
	f.router = f.build(t)
	return f
}

func (f *fixture) build(t *testing.T) *Router {
	t.Helper()
	router, err := NewRouter(context.Background(), RouterDependencies{
		Local:         f.local,
		Remote:        f.remote,
		Preferences:   f.prefs,
		Logger:        nopLogger{},
		RetentionDays: 30,
		OwnerID:       "tester",
		Now:           f.clock.Now,
	})
	require.NoError(t, err)
	return router
}

func (f *fixture) seed(t *testing.T, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < count; i++ {
		_, err := f.local.Save(ctx, "Kyiv", snapshot(float64(10+i)))
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
}

func TestNewRouter(t *testing.T) {
	t.Run("DefaultsToLocal", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, ports.BackendLocal, f.router.Name())
	})

	t.Run("RestoresRemotePreference", func(t *testing.T) {
		f := newFixture(t)
		f.prefs.pref = ports.StoragePreference{Backend: ports.BackendRemote}
		router := f.build(t)
		assert.Equal(t, ports.BackendRemote, router.Name())
	})

	t.Run("UnavailableRemoteFallsBackWithoutOverwriting", func(t *testing.T) {
		f := newFixture(t)
		f.prefs.pref = ports.StoragePreference{Backend: ports.BackendRemote}
		f.remote.unavailable = true
		router := f.build(t)
		assert.Equal(t, ports.BackendLocal, router.Name())
		assert.Equal(t, ports.BackendRemote, f.prefs.current())
	})

	t.Run("MissingLocal", func(t *testing.T) {
		_, err := NewRouter(context.Background(), RouterDependencies{Preferences: &memPreferences{}, Logger: nopLogger{}})
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestRouter_GetWeatherData(t *testing.T) {
	ctx := context.Background()

	t.Run("FetchPersistNotify", func(t *testing.T) {
		f := newFixture(t)
		observer := &recordingObserver{}
		f.router.RegisterObserver(observer)
		agg := &stubAggregator{snapshot: snapshot(21)}

		result, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: " Kyiv ", Freshness: 10 * time.Minute}, agg)
		require.NoError(t, err)
		assert.Equal(t, SourceProvider, result.Source)
		assert.True(t, result.Persisted)
		assert.NotEmpty(t, result.RecordID)
		assert.Equal(t, []string{"Kyiv"}, observer.locations)

		latest, err := f.local.Latest(ctx, "Kyiv")
		require.NoError(t, err)
		assert.Equal(t, result.RecordID, latest.ID)
	})

	t.Run("FreshRecordSkipsProvider", func(t *testing.T) {
		f := newFixture(t)
		agg := &stubAggregator{snapshot: snapshot(21)}
		request := WeatherRequest{Location: "Kyiv", Freshness: 10 * time.Minute}

		first, err := f.router.GetWeatherData(ctx, request, agg)
		require.NoError(t, err)

		f.clock.Advance(10 * time.Minute)
		second, err := f.router.GetWeatherData(ctx, request, agg)
		require.NoError(t, err)
		assert.Equal(t, SourceStorage, second.Source)
		assert.Equal(t, first.RecordID, second.RecordID)
		assert.Equal(t, 1, agg.calls)

		f.clock.Advance(time.Second)
		third, err := f.router.GetWeatherData(ctx, request, agg)
		require.NoError(t, err)
		assert.Equal(t, SourceProvider, third.Source)
		assert.Equal(t, 2, agg.calls)
	})

	t.Run("SaveFailureStillReturnsSnapshot", func(t *testing.T) {
		f := newFixture(t)
		observer := &recordingObserver{}
		f.router.RegisterObserver(observer)
		f.local.saveErr = errors.NewStorageError("write failed", nil)

		result, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: "Kyiv"}, &stubAggregator{snapshot: snapshot(5)})
		require.NoError(t, err)
		assert.False(t, result.Persisted)
		assert.Equal(t, 5.0, result.Snapshot.Current.Temperature)
		assert.Empty(t, observer.locations)
	})

	t.Run("ReadFailureServesLastKnown", func(t *testing.T) {
		f := newFixture(t)
		agg := &stubAggregator{snapshot: snapshot(12)}
		_, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: "Kyiv"}, agg)
		require.NoError(t, err)

		f.local.latestErr = errors.NewStorageError("read failed", nil)
		result, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: "kyiv"}, agg)
		require.NoError(t, err)
		assert.True(t, result.Stale)
		assert.Equal(t, SourceStale, result.Source)
		assert.Equal(t, 12.0, result.Snapshot.Current.Temperature)
		assert.Equal(t, 1, agg.calls)
	})

	t.Run("ReadFailureWithoutHistory", func(t *testing.T) {
		f := newFixture(t)
		f.local.latestErr = errors.NewStorageError("read failed", nil)
		_, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: "Kyiv"}, &stubAggregator{snapshot: snapshot(1)})
		assert.True(t, errors.IsStorageError(err))
	})

	t.Run("AllProvidersFailed", func(t *testing.T) {
		f := newFixture(t)
		agg := &stubAggregator{err: errors.NewAllProvidersFailedError("all providers failed", nil)}
		_, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: "Kyiv"}, agg)
		assert.True(t, errors.IsAllProvidersFailedError(err))

		_, err = f.local.Latest(ctx, "Kyiv")
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.router.GetWeatherData(ctx, WeatherRequest{Location: "  "}, &stubAggregator{snapshot: snapshot(1)})
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestRouter_Migrate(t *testing.T) {
	ctx := context.Background()

	t.Run("CopiesRecordsAndAnalytics", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 5)
		require.NoError(t, f.local.SaveAnalytics(ctx, &ports.AnalyticsRecord{Location: "Kyiv", TotalRequests: 5}))

		report, err := f.router.Migrate(ctx, ports.BackendRemote)
		require.NoError(t, err)
		assert.Equal(t, 5, report.Records)
		assert.Equal(t, 1, report.Analytics)
		assert.Equal(t, ports.BackendRemote, f.router.Name())
		assert.Equal(t, ports.BackendRemote, f.prefs.current())

		source, err := f.local.All(ctx)
		require.NoError(t, err)
		copied, err := f.remote.All(ctx)
		require.NoError(t, err)
		require.Len(t, copied, 5)
		for i := range source {
			assert.Equal(t, source[i].ID, copied[i].ID)
			assert.True(t, source[i].StoredAt.Equal(copied[i].StoredAt))
		}

		analytics, err := f.remote.LoadAnalytics(ctx, "kyiv")
		require.NoError(t, err)
		assert.Equal(t, 5, analytics.TotalRequests)
	})

	t.Run("FailedWriteKeepsPreference", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 5)
		f.remote.failImportAt = 3

		report, err := f.router.Migrate(ctx, ports.BackendRemote)
		assert.Nil(t, report)
		assert.True(t, errors.IsMigrationError(err))
		assert.Equal(t, ports.BackendLocal, f.prefs.current())
		assert.Equal(t, ports.BackendLocal, f.router.Name())
		assert.Equal(t, 0, f.prefs.saves)

		copied, err := f.remote.All(ctx)
		require.NoError(t, err)
		assert.Len(t, copied, 2)
	})

	t.Run("PreferenceSaveFailure", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 1)
		f.prefs.saveErr = fmt.Errorf("read-only")

		_, err := f.router.Migrate(ctx, ports.BackendRemote)
		assert.True(t, errors.IsMigrationError(err))
		assert.Equal(t, ports.BackendLocal, f.router.Name())
	})

	t.Run("SameBackendIsNoOp", func(t *testing.T) {
		f := newFixture(t)
		report, err := f.router.Migrate(ctx, ports.BackendLocal)
		require.NoError(t, err)
		assert.True(t, report.NoOp)
		assert.Equal(t, 0, f.prefs.saves)
	})

	t.Run("UnreachableTarget", func(t *testing.T) {
		f := newFixture(t)
		f.remote.unavailable = true
		_, err := f.router.Migrate(ctx, ports.BackendRemote)
		assert.True(t, errors.IsUnavailableError(err))
		assert.Equal(t, ports.BackendLocal, f.prefs.current())
	})

	t.Run("UnconfiguredTarget", func(t *testing.T) {
		c := newClock()
		local, err := adapters.NewLocalBackend(adapters.LocalBackendParams{Now: c.Now})
		require.NoError(t, err)
		router, err := NewRouter(ctx, RouterDependencies{Local: local, Preferences: &memPreferences{}, Logger: nopLogger{}})
		require.NoError(t, err)

		_, err = router.Migrate(ctx, ports.BackendRemote)
		assert.True(t, errors.IsUnavailableError(err))
		assert.False(t, router.Status(ctx).RemoteConfigured)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.router.Migrate(ctx, ports.BackendName("cloud"))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("MigratesBack", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 2)
		_, err := f.router.Migrate(ctx, ports.BackendRemote)
		require.NoError(t, err)

		_, err = f.router.Save(ctx, "Lviv", snapshot(3))
		require.NoError(t, err)

		report, err := f.router.Migrate(ctx, ports.BackendLocal)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Records)

		records, err := f.local.All(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})
}

func TestRouter_SwitchBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 2)

	require.NoError(t, f.router.SwitchBackend(ctx, ports.BackendRemote))
	assert.Equal(t, ports.BackendRemote, f.router.Name())
	assert.Equal(t, ports.BackendRemote, f.prefs.current())

	records, err := f.router.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	f.remote.unavailable = true
	err = f.router.SwitchBackend(ctx, ports.BackendRemote)
	assert.True(t, errors.IsUnavailableError(err))
}

func TestRouter_StatusAndClearOldData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	status := f.router.Status(ctx)
	assert.Equal(t, ports.BackendLocal, status.Active)
	assert.True(t, status.ActiveAvailable)
	assert.True(t, status.RemoteConfigured)
	assert.True(t, status.RemoteAvailable)
	assert.Equal(t, 30, status.RetentionDays)
	assert.Equal(t, "tester", status.OwnerID)

	f.seed(t, 2)
	f.clock.Advance(31 * 24 * time.Hour)

	removed, err := f.router.ClearOldData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}
