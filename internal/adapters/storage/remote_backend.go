package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// WeatherRecordModel is the database model of a persisted record
type WeatherRecordModel struct {
	ID          string         `gorm:"primaryKey;size:36"`
	OwnerID     string         `gorm:"size:128;not null;index:idx_weather_records_owner_location"`
	LocationKey string         `gorm:"size:255;not null;index:idx_weather_records_owner_location"`
	Location    string         `gorm:"size:255;not null"`
	Snapshot    datatypes.JSON `gorm:"not null"`
	StoredAt    time.Time      `gorm:"not null;index"`
}

func (WeatherRecordModel) TableName() string {
	return "weather_records"
}

// AnalyticsModel is the database model of a per-location analytics record
type AnalyticsModel struct {
	OwnerID     string         `gorm:"primaryKey;size:128"`
	LocationKey string         `gorm:"primaryKey;size:255"`
	Data        datatypes.JSON `gorm:"not null"`
	UpdatedAt   time.Time
}

func (AnalyticsModel) TableName() string {
	return "weather_analytics"
}

// RemoteBackend implements StorageBackend on a SQL database via GORM.
// Every row is scoped by owner id.
type RemoteBackend struct {
	db        *gorm.DB
	owner     string
	retention time.Duration
	now       func() time.Time
	logger    ports.Logger
}

// RemoteBackendParams holds parameters for creating the remote backend
type RemoteBackendParams struct {
	OwnerID       string
	RetentionDays int
	Now           func() time.Time
	Logger        ports.Logger
}

// NewRemoteBackend migrates the schema and returns the backend
func NewRemoteBackend(db *gorm.DB, params RemoteBackendParams) (*RemoteBackend, error) {
	if db == nil {
		return nil, errors.NewConfigurationError("remote backend requires a database connection", nil)
	}
	if err := db.AutoMigrate(&WeatherRecordModel{}, &AnalyticsModel{}); err != nil {
		return nil, errors.NewStorageError("failed to migrate remote schema", err)
	}

	owner := strings.TrimSpace(params.OwnerID)
	if owner == "" {
		owner = ports.AnonymousOwner
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &RemoteBackend{
		db:        db,
		owner:     owner,
		retention: retentionWindow(params.RetentionDays),
		now:       now,
		logger:    params.Logger,
	}, nil
}

func (r *RemoteBackend) Name() ports.BackendName {
	return ports.BackendRemote
}

// IsAvailable pings the underlying database
func (r *RemoteBackend) IsAvailable(ctx context.Context) bool {
	sqlDB, err := r.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}

func (r *RemoteBackend) Save(ctx context.Context, location string, snapshot *ports.WeatherSnapshot) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", errors.NewValidationError("location cannot be empty")
	}
	if snapshot == nil {
		return "", errors.NewValidationError("snapshot cannot be nil")
	}

	record := ports.PersistedRecord{
		ID:       uuid.NewString(),
		Location: strings.TrimSpace(location),
		Snapshot: *snapshot,
		StoredAt: r.now().UTC(),
		OwnerID:  r.owner,
	}
	model, err := r.recordToModel(record)
	if err != nil {
		return "", err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", errors.NewStorageError("failed to save weather record", err)
	}

	// expired rows go on every write; a failed prune does not fail the save
	if _, err := r.PruneOld(ctx); err != nil && r.logger != nil {
		r.logger.Warn("Failed to prune expired remote records after save",
			ports.F("owner", r.owner),
			ports.F("error", err.Error()))
	}
	return record.ID, nil
}

func (r *RemoteBackend) Latest(ctx context.Context, location string) (*ports.PersistedRecord, error) {
	var model WeatherRecordModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Where{Exprs: r.scope(location, r.now().Add(-r.retention))}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "stored_at"}, Desc: true}).
		First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewNotFoundError("no stored weather for " + location)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to load latest weather record", err)
	}
	return r.modelToRecord(&model)
}

func (r *RemoteBackend) HasRecent(ctx context.Context, location string, within time.Duration) (bool, error) {
	return hasRecent(ctx, r, r.now(), location, within)
}

// Query runs a timestamp range query, oldest first. An empty location
// matches every location of the owner.
func (r *RemoteBackend) Query(ctx context.Context, location string, sinceDays int) ([]ports.PersistedRecord, error) {
	cutoff := queryCutoff(r.now(), r.retention, sinceDays)

	var models []WeatherRecordModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Where{Exprs: r.scope(location, cutoff)}).
		Order("stored_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.NewStorageError("failed to query weather records", err)
	}

	records := make([]ports.PersistedRecord, 0, len(models))
	for i := range models {
		record, err := r.modelToRecord(&models[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// PruneOld deletes expired rows one by one; rows deleted before a failure stay deleted.
func (r *RemoteBackend) PruneOld(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.retention)

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&WeatherRecordModel{}).
		Where("owner_id = ? AND stored_at < ?", r.owner, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, errors.NewStorageError("failed to find expired weather records", err)
	}

	removed := 0
	for _, id := range ids {
		if err := r.db.WithContext(ctx).Delete(&WeatherRecordModel{}, "id = ?", id).Error; err != nil {
			return removed, errors.NewStorageError("failed to delete expired weather record", err)
		}
		removed++
	}

	if removed > 0 && r.logger != nil {
		r.logger.Info("Pruned expired remote records", ports.F("removed", removed), ports.F("owner", r.owner))
	}
	return removed, nil
}

func (r *RemoteBackend) ExportAll(ctx context.Context, location string, format ports.ExportFormat) ([]byte, error) {
	records, err := r.Query(ctx, location, 0)
	if err != nil {
		return nil, err
	}
	return EncodeRecords(records, format)
}

func (r *RemoteBackend) All(ctx context.Context) ([]ports.PersistedRecord, error) {
	return r.Query(ctx, "", 0)
}

// Import inserts a record under this backend's owner, keeping id and storedAt.
// An existing id is left untouched.
func (r *RemoteBackend) Import(ctx context.Context, record ports.PersistedRecord) error {
	if record.ID == "" {
		return errors.NewValidationError("imported record must carry an id")
	}
	record.OwnerID = r.owner

	model, err := r.recordToModel(record)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model).Error; err != nil {
		return errors.NewStorageError("failed to import weather record", err)
	}
	return nil
}

func (r *RemoteBackend) LoadAnalytics(ctx context.Context, location string) (*ports.AnalyticsRecord, error) {
	var model AnalyticsModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND location_key = ?", r.owner, locationKey(location)).
		First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewNotFoundError("no analytics for " + location)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to load analytics", err)
	}

	var record ports.AnalyticsRecord
	if err := json.Unmarshal(model.Data, &record); err != nil {
		return nil, errors.NewStorageError("failed to decode analytics", err)
	}
	return &record, nil
}

func (r *RemoteBackend) SaveAnalytics(ctx context.Context, record *ports.AnalyticsRecord) error {
	if record == nil || strings.TrimSpace(record.Location) == "" {
		return errors.NewValidationError("analytics record must name a location")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewStorageError("failed to encode analytics", err)
	}

	model := &AnalyticsModel{
		OwnerID:     r.owner,
		LocationKey: locationKey(record.Location),
		Data:        datatypes.JSON(data),
		UpdatedAt:   r.now().UTC(),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "location_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return errors.NewStorageError("failed to save analytics", err)
	}
	return nil
}

func (r *RemoteBackend) AllAnalytics(ctx context.Context) ([]ports.AnalyticsRecord, error) {
	var models []AnalyticsModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", r.owner).Order("location_key").Find(&models).Error; err != nil {
		return nil, errors.NewStorageError("failed to list analytics", err)
	}

	records := make([]ports.AnalyticsRecord, 0, len(models))
	for _, model := range models {
		var record ports.AnalyticsRecord
		if err := json.Unmarshal(model.Data, &record); err != nil {
			return nil, errors.NewStorageError("failed to decode analytics", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// scope builds the owner/location/time filter shared by reads
func (r *RemoteBackend) scope(location string, since time.Time) []clause.Expression {
	exprs := []clause.Expression{
		clause.Eq{Column: clause.Column{Name: "owner_id"}, Value: r.owner},
		clause.Gte{Column: clause.Column{Name: "stored_at"}, Value: since},
	}
	if key := locationKey(location); key != "" {
		exprs = append(exprs, clause.Eq{Column: clause.Column{Name: "location_key"}, Value: key})
	}
	return exprs
}

func (r *RemoteBackend) recordToModel(record ports.PersistedRecord) (*WeatherRecordModel, error) {
	data, err := json.Marshal(record.Snapshot)
	if err != nil {
		return nil, errors.NewStorageError("failed to encode snapshot", err)
	}
	return &WeatherRecordModel{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		LocationKey: locationKey(record.Location),
		Location:    record.Location,
		Snapshot:    datatypes.JSON(data),
		StoredAt:    record.StoredAt.UTC(),
	}, nil
}

func (r *RemoteBackend) modelToRecord(model *WeatherRecordModel) (*ports.PersistedRecord, error) {
	var snapshot ports.WeatherSnapshot
	if err := json.Unmarshal(model.Snapshot, &snapshot); err != nil {
		return nil, errors.NewStorageError("failed to decode snapshot", err)
	}
	return &ports.PersistedRecord{
		ID:       model.ID,
		Location: model.Location,
		Snapshot: snapshot,
		StoredAt: model.StoredAt.UTC(),
		OwnerID:  model.OwnerID,
	}, nil
}
