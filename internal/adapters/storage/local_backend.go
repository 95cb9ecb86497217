package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// localState is the on-disk document of the local backend
type localState struct {
	Records   []ports.PersistedRecord          `json:"records"`
	Analytics map[string]ports.AnalyticsRecord `json:"analytics"`
}

// LocalBackend keeps an ordered record list in a JSON file. Records are kept
// in storedAt order and the list is trimmed to the retention window on every
// write. An empty path keeps everything in memory.
type LocalBackend struct {
	mu        sync.Mutex
	path      string
	owner     string
	retention time.Duration
	now       func() time.Time
	logger    ports.Logger
	state     localState
}

// LocalBackendParams holds parameters for creating the local backend
type LocalBackendParams struct {
	Path          string
	OwnerID       string
	RetentionDays int
	Now           func() time.Time
	Logger        ports.Logger
}

// NewLocalBackend loads the backend document from disk if it exists
func NewLocalBackend(params LocalBackendParams) (*LocalBackend, error) {
	owner := strings.TrimSpace(params.OwnerID)
	if owner == "" {
		owner = ports.AnonymousOwner
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	b := &LocalBackend{
		path:      params.Path,
		owner:     owner,
		retention: retentionWindow(params.RetentionDays),
		now:       now,
		logger:    params.Logger,
		state:     localState{Analytics: map[string]ports.AnalyticsRecord{}},
	}

	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LocalBackend) load() error {
	if b.path == "" {
		return nil
	}

	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.NewStorageError("failed to read local weather store", err)
	}

	var state localState
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.NewStorageError("local weather store is corrupt", err)
	}
	if state.Analytics == nil {
		state.Analytics = map[string]ports.AnalyticsRecord{}
	}
	sort.SliceStable(state.Records, func(i, j int) bool {
		return state.Records[i].StoredAt.Before(state.Records[j].StoredAt)
	})
	b.state = state
	return nil
}

// flush writes the document atomically (temp file + rename)
func (b *LocalBackend) flush() error {
	if b.path == "" {
		return nil
	}

	data, err := json.Marshal(b.state)
	if err != nil {
		return errors.NewStorageError("failed to encode local weather store", err)
	}
	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewStorageError("failed to create storage directory", err)
		}
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewStorageError("failed to write local weather store", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return errors.NewStorageError("failed to replace local weather store", err)
	}
	return nil
}

// trim drops records past the retention window; callers hold the lock
func (b *LocalBackend) trim() int {
	cutoff := b.now().Add(-b.retention)
	kept := b.state.Records[:0:0]
	for _, r := range b.state.Records {
		if !r.StoredAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(b.state.Records) - len(kept)
	b.state.Records = kept
	return removed
}

// commit persists a mutation and restores the previous state if that fails
func (b *LocalBackend) commit(previous localState) error {
	if err := b.flush(); err != nil {
		b.state = previous
		return err
	}
	return nil
}

func (b *LocalBackend) snapshotState() localState {
	analytics := make(map[string]ports.AnalyticsRecord, len(b.state.Analytics))
	for k, v := range b.state.Analytics {
		analytics[k] = v
	}
	return localState{
		Records:   append([]ports.PersistedRecord(nil), b.state.Records...),
		Analytics: analytics,
	}
}

func (b *LocalBackend) Name() ports.BackendName {
	return ports.BackendLocal
}

// IsAvailable is always true: the local backend has no remote dependency
func (b *LocalBackend) IsAvailable(ctx context.Context) bool {
	return true
}

// Save appends a new record and trims the list to the retention window
func (b *LocalBackend) Save(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", errors.NewValidationError("location cannot be empty")
	}
	if snapshot == nil {
		return "", errors.NewValidationError("snapshot cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	previous := b.snapshotState()
	record := ports.PersistedRecord{
		ID:       uuid.NewString(),
		Location: strings.TrimSpace(location),
		Snapshot: *snapshot,
		StoredAt: b.now().UTC(),
		OwnerID:  b.owner,
	}
	b.state.Records = append(b.state.Records, record)
	if removed := b.trim(); removed > 0 && b.logger != nil {
		b.logger.Debug("Trimmed expired local records", ports.F("removed", removed))
	}

	if err := b.commit(previous); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Latest returns the most recent record for the location within retention
func (b *LocalBackend) Latest(ctx context.Context, location string) (*ports.PersistedRecord, error) {
	key := locationKey(location)

	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.retention)
	for i := len(b.state.Records) - 1; i >= 0; i-- {
		r := b.state.Records[i]
		if r.StoredAt.Before(cutoff) {
			break
		}
		if locationKey(r.Location) == key {
			return &r, nil
		}
	}
	return nil, errors.NewNotFoundError("no stored weather for " + location)
}

// HasRecent reports whether the latest record is younger than within
func (b *LocalBackend) HasRecent(ctx context.Context, location string, within time.Duration) (bool, error) {
	return hasRecent(ctx, b, b.now(), location, within)
}

// Query returns records for the location stored in the last sinceDays days,
// oldest first. An empty location matches every location.
func (b *LocalBackend) Query(ctx context.Context, location string, sinceDays int) ([]ports.PersistedRecord, error) {
	key := locationKey(location)

	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := queryCutoff(b.now(), b.retention, sinceDays)
	records := make([]ports.PersistedRecord, 0)
	for _, r := range b.state.Records {
		if r.StoredAt.Before(cutoff) {
			continue
		}
		if key == "" || locationKey(r.Location) == key {
			records = append(records, r)
		}
	}
	return records, nil
}

// PruneOld removes every record past the retention window
func (b *LocalBackend) PruneOld(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous := b.snapshotState()
	removed := b.trim()
	if removed == 0 {
		return 0, nil
	}
	if err := b.commit(previous); err != nil {
		return 0, err
	}
	return removed, nil
}

func (b *LocalBackend) ExportAll(ctx context.Context, location string, format ports.ExportFormat) ([]byte, error) {
	records, err := b.Query(ctx, location, 0)
	if err != nil {
		return nil, err
	}
	return EncodeRecords(records, format)
}

// All returns every retained record, oldest first
func (b *LocalBackend) All(ctx context.Context) ([]ports.PersistedRecord, error) {
	return b.Query(ctx, "", 0)
}

// Import inserts a record keeping its id and storedAt. Records whose id is
// already present are skipped so an aborted migration can be re-run.
func (b *LocalBackend) Import(ctx context.Context, record ports.PersistedRecord) error {
	if record.ID == "" {
		return errors.NewValidationError("imported record must carry an id")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.state.Records {
		if r.ID == record.ID {
			return nil
		}
	}

	previous := b.snapshotState()
	record.OwnerID = b.owner
	idx := sort.Search(len(b.state.Records), func(i int) bool {
		return b.state.Records[i].StoredAt.After(record.StoredAt)
	})
	b.state.Records = append(b.state.Records, ports.PersistedRecord{})
	copy(b.state.Records[idx+1:], b.state.Records[idx:])
	b.state.Records[idx] = record
	b.trim()

	return b.commit(previous)
}

func (b *LocalBackend) LoadAnalytics(ctx context.Context, location string) (*ports.AnalyticsRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.state.Analytics[locationKey(location)]
	if !ok {
		return nil, errors.NewNotFoundError("no analytics for " + location)
	}
	return &record, nil
}

func (b *LocalBackend) SaveAnalytics(ctx context.Context, record *ports.AnalyticsRecord) error {
	if record == nil || strings.TrimSpace(record.Location) == "" {
		return errors.NewValidationError("analytics record must name a location")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	previous := b.snapshotState()
	b.state.Analytics[locationKey(record.Location)] = *record
	return b.commit(previous)
}

// AllAnalytics returns every analytics record ordered by location
func (b *LocalBackend) AllAnalytics(ctx context.Context) ([]ports.AnalyticsRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := make([]ports.AnalyticsRecord, 0, len(b.state.Analytics))
	for _, r := range b.state.Analytics {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return locationKey(records[i].Location) < locationKey(records[j].Location)
	})
	return records, nil
}

// latestFinder is the part of a backend hasRecent needs
type latestFinder interface {
	Latest(ctx context.Context, location string) (*ports.PersistedRecord, error)
}

func hasRecent(ctx context.Context, b latestFinder, now time.Time, location string, within time.Duration) (bool, error) {
	latest, err := b.Latest(ctx, location)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return now.Sub(latest.StoredAt) <= within, nil
}
