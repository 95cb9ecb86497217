package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// completeForecastDays is the forecast horizon fetched on a read-through miss
const completeForecastDays = 3

// Router routes storage operations to the active backend and owns the
// Local/Remote state machine. It satisfies ports.StorageBackend itself.
type Router struct {
	mu       sync.RWMutex
	active   ports.StorageBackend
	backends map[ports.BackendName]ports.StorageBackend

	// migrations are serialized; reads are never blocked by them
	migrateMu sync.Mutex

	preferences   ports.PreferenceStore
	logger        ports.Logger
	metrics       ports.MetricsCollector
	retentionDays int
	owner         string
	now           func() time.Time

	observersMu sync.RWMutex
	observers   []ports.ObservationRecorder

	lastGoodMu sync.RWMutex
	lastGood   map[string]ports.WeatherSnapshot
}

type RouterDependencies struct {
	Local         ports.StorageBackend
	Remote        ports.StorageBackend
	Preferences   ports.PreferenceStore
	Logger        ports.Logger
	Metrics       ports.MetricsCollector
	RetentionDays int
	OwnerID       string
	Now           func() time.Time
}

// NewRouter restores the active backend from the persisted preference. A
// remote preference that cannot be honored falls back to local without
// overwriting the stored preference.
func NewRouter(ctx context.Context, deps RouterDependencies) (*Router, error) {
	if deps.Local == nil {
		return nil, errors.NewValidationError("local backend is required")
	}
	if deps.Preferences == nil {
		return nil, errors.NewValidationError("preference store is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	owner := strings.TrimSpace(deps.OwnerID)
	if owner == "" {
		owner = ports.AnonymousOwner
	}

	r := &Router{
		backends:      map[ports.BackendName]ports.StorageBackend{ports.BackendLocal: deps.Local},
		preferences:   deps.Preferences,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		retentionDays: deps.RetentionDays,
		owner:         owner,
		now:           now,
		lastGood:      make(map[string]ports.WeatherSnapshot),
		active:        deps.Local,
	}
	if deps.Remote != nil {
		r.backends[ports.BackendRemote] = deps.Remote
	}

	pref, err := deps.Preferences.Load(ctx)
	if err != nil {
		r.logger.Warn("Failed to load storage preference, using local backend", ports.F("error", err.Error()))
		return r, nil
	}

	if backend, ok := r.backends[pref.Backend]; ok && backend.IsAvailable(ctx) {
		r.active = backend
	} else if pref.Backend != ports.BackendLocal {
		r.logger.Warn("Preferred storage backend unavailable, using local backend",
			ports.F("preferred", string(pref.Backend)))
	}

	r.logger.Info("Storage router initialized", ports.F("active", string(r.active.Name())))
	return r, nil
}

// RegisterObserver adds a recorder notified after every committed fetch
func (r *Router) RegisterObserver(observer ports.ObservationRecorder) {
	r.observersMu.Lock()
	defer r.observersMu.Unlock()
	r.observers = append(r.observers, observer)
}

// Active returns the backend currently receiving operations
func (r *Router) Active() ports.StorageBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// GetWeatherData serves a stored record younger than request.Freshness, and
// otherwise fetches through the aggregator, persists the snapshot and
// notifies observers, in that order. Concurrent callers for the same
// location may both miss and both persist.
func (r *Router) GetWeatherData(ctx context.Context, request WeatherRequest, aggregator ports.WeatherAggregator) (*WeatherResult, error) {
	if err := request.IsValid(); err != nil {
		return nil, errors.NewValidationError("invalid weather request: " + err.Error())
	}
	if aggregator == nil {
		return nil, errors.NewValidationError("weather aggregator is required")
	}
	request.Normalize()
	location := request.Location
	backend := r.Active()

	latest, err := backend.Latest(ctx, location)
	switch {
	case err == nil:
		if r.now().Sub(latest.StoredAt) <= request.Freshness {
			r.logger.Debug("Serving stored weather", ports.F("location", location), ports.F("record_id", latest.ID))
			r.remember(location, latest.Snapshot)
			snapshot := latest.Snapshot
			return &WeatherResult{Snapshot: &snapshot, Source: SourceStorage, RecordID: latest.ID, Persisted: true}, nil
		}
	case errors.IsNotFoundError(err):
	default:
		if stale, ok := r.recall(location); ok {
			r.logger.Warn("Storage read failed, serving last known snapshot",
				ports.F("location", location),
				ports.F("error", err.Error()))
			return &WeatherResult{Snapshot: &stale, Source: SourceStale, Stale: true}, nil
		}
		return nil, err
	}

	snapshot, err := aggregator.GetCompleteWeatherData(ctx, location, completeForecastDays)
	if err != nil {
		return nil, err
	}

	result := &WeatherResult{Snapshot: snapshot, Source: SourceProvider}
	id, err := backend.Save(ctx, location, snapshot)
	if err != nil {
		r.logger.Warn("Failed to persist weather snapshot",
			ports.F("location", location),
			ports.F("backend", string(backend.Name())),
			ports.F("error", err.Error()))
	} else {
		result.RecordID = id
		result.Persisted = true
		if r.metrics != nil {
			r.metrics.RecordStoredRecord(ctx, string(backend.Name()))
		}
		r.notify(ctx, location, snapshot)
	}

	r.remember(location, *snapshot)
	return result, nil
}

func (r *Router) notify(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) {
	r.observersMu.RLock()
	observers := append([]ports.ObservationRecorder(nil), r.observers...)
	r.observersMu.RUnlock()

	for _, observer := range observers {
		if err := observer.RecordObservation(ctx, location, snapshot); err != nil {
			r.logger.Warn("Failed to record observation",
				ports.F("location", location),
				ports.F("error", err.Error()))
		}
	}
}

func (r *Router) remember(location string, snapshot ports.WeatherSnapshot) {
	r.lastGoodMu.Lock()
	defer r.lastGoodMu.Unlock()
	r.lastGood[strings.ToLower(location)] = snapshot
}

func (r *Router) recall(location string) (ports.WeatherSnapshot, bool) {
	r.lastGoodMu.RLock()
	defer r.lastGoodMu.RUnlock()
	snapshot, ok := r.lastGood[strings.ToLower(location)]
	return snapshot, ok
}

// Migrate copies every record, then every analytics record, from the active
// backend to target one at a time, then flips the preference and rebinds.
// On a write failure the preference is untouched and records already copied
// stay in the target.
func (r *Router) Migrate(ctx context.Context, target ports.BackendName) (*MigrationReport, error) {
	if !target.IsValid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown storage backend: %s", target))
	}

	r.migrateMu.Lock()
	defer r.migrateMu.Unlock()

	source := r.Active()
	report := &MigrationReport{From: source.Name(), To: target}
	if source.Name() == target {
		report.NoOp = true
		return report, nil
	}

	dest, err := r.available(ctx, target)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Storage migration started",
		ports.F("from", string(source.Name())),
		ports.F("to", string(target)))

	if err := r.copyAll(ctx, source, dest, report); err != nil {
		r.recordMigration(ctx, target, false)
		r.logger.Error("Storage migration aborted",
			ports.F("from", string(source.Name())),
			ports.F("to", string(target)),
			ports.F("copied_records", report.Records),
			ports.F("error", err.Error()))
		return nil, err
	}

	if err := r.preferences.Save(ctx, ports.StoragePreference{Backend: target}); err != nil {
		r.recordMigration(ctx, target, false)
		return nil, errors.NewMigrationError("failed to persist storage preference", err)
	}
	r.bind(dest)
	r.recordMigration(ctx, target, true)

	r.logger.Info("Storage migration completed",
		ports.F("from", string(source.Name())),
		ports.F("to", string(target)),
		ports.F("records", report.Records),
		ports.F("analytics", report.Analytics))
	return report, nil
}

func (r *Router) copyAll(ctx context.Context, source, dest ports.StorageBackend, report *MigrationReport) error {
	records, err := source.All(ctx)
	if err != nil {
		return errors.NewMigrationError("failed to read source records", err)
	}
	analytics, err := source.AllAnalytics(ctx)
	if err != nil {
		return errors.NewMigrationError("failed to read source analytics", err)
	}

	for i, record := range records {
		if err := dest.Import(ctx, record); err != nil {
			return errors.NewMigrationError(fmt.Sprintf("failed to copy record %d of %d", i+1, len(records)), err)
		}
		report.Records++
	}
	for i := range analytics {
		if err := dest.SaveAnalytics(ctx, &analytics[i]); err != nil {
			return errors.NewMigrationError(fmt.Sprintf("failed to copy analytics for %s", analytics[i].Location), err)
		}
		report.Analytics++
	}
	return nil
}

// SwitchBackend makes name active without copying data
func (r *Router) SwitchBackend(ctx context.Context, name ports.BackendName) error {
	if !name.IsValid() {
		return errors.NewValidationError(fmt.Sprintf("unknown storage backend: %s", name))
	}

	r.migrateMu.Lock()
	defer r.migrateMu.Unlock()

	backend, err := r.available(ctx, name)
	if err != nil {
		return err
	}
	if err := r.preferences.Save(ctx, ports.StoragePreference{Backend: name}); err != nil {
		return err
	}
	r.bind(backend)

	r.logger.Info("Storage backend switched", ports.F("active", string(name)))
	return nil
}

func (r *Router) available(ctx context.Context, name ports.BackendName) (ports.StorageBackend, error) {
	backend, ok := r.backends[name]
	if !ok {
		return nil, errors.NewUnavailableError(fmt.Sprintf("%s backend is not configured", name))
	}
	if !backend.IsAvailable(ctx) {
		return nil, errors.NewUnavailableError(fmt.Sprintf("%s backend is not reachable", name))
	}
	return backend, nil
}

func (r *Router) bind(backend ports.StorageBackend) {
	r.mu.Lock()
	r.active = backend
	r.mu.Unlock()
}

func (r *Router) recordMigration(ctx context.Context, target ports.BackendName, success bool) {
	if r.metrics != nil {
		r.metrics.RecordMigration(ctx, string(target), success)
	}
}

// Status reports the active backend and remote availability
func (r *Router) Status(ctx context.Context) Status {
	active := r.Active()
	status := Status{
		Active:          active.Name(),
		ActiveAvailable: active.IsAvailable(ctx),
		RetentionDays:   r.retentionDays,
		OwnerID:         r.owner,
	}
	if remote, ok := r.backends[ports.BackendRemote]; ok {
		status.RemoteConfigured = true
		status.RemoteAvailable = remote.IsAvailable(ctx)
	}
	return status
}

// ClearOldData prunes the active backend and reports how many records went
func (r *Router) ClearOldData(ctx context.Context) (int, error) {
	backend := r.Active()
	removed, err := backend.PruneOld(ctx)
	if err != nil {
		return removed, err
	}
	r.logger.Info("Old weather data cleared",
		ports.F("backend", string(backend.Name())),
		ports.F("removed", removed))
	return removed, nil
}

func (r *Router) Name() ports.BackendName {
	return r.Active().Name()
}

func (r *Router) IsAvailable(ctx context.Context) bool {
	return r.Active().IsAvailable(ctx)
}

func (r *Router) Save(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) (string, error) {
	return r.Active().Save(ctx, location, snapshot)
}

func (r *Router) Latest(ctx context.Context, location string) (*ports.PersistedRecord, error) {
	return r.Active().Latest(ctx, location)
}

func (r *Router) HasRecent(ctx context.Context, location string, within time.Duration) (bool, error) {
	return r.Active().HasRecent(ctx, location, within)
}

func (r *Router) Query(ctx context.Context, location string, sinceDays int) ([]ports.PersistedRecord, error) {
	return r.Active().Query(ctx, location, sinceDays)
}

func (r *Router) PruneOld(ctx context.Context) (int, error) {
	return r.Active().PruneOld(ctx)
}

func (r *Router) ExportAll(ctx context.Context, location string, format ports.ExportFormat) ([]byte, error) {
	return r.Active().ExportAll(ctx, location, format)
}

func (r *Router) All(ctx context.Context) ([]ports.PersistedRecord, error) {
	return r.Active().All(ctx)
}

func (r *Router) Import(ctx context.Context, record ports.PersistedRecord) error {
	return r.Active().Import(ctx, record)
}

func (r *Router) LoadAnalytics(ctx context.Context, location string) (*ports.AnalyticsRecord, error) {
	return r.Active().LoadAnalytics(ctx, location)
}

func (r *Router) SaveAnalytics(ctx context.Context, record *ports.AnalyticsRecord) error {
	return r.Active().SaveAnalytics(ctx, record)
}

func (r *Router) AllAnalytics(ctx context.Context) ([]ports.AnalyticsRecord, error) {
	return r.Active().AllAnalytics(ctx)
}
