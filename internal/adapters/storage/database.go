package storage

import (
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"homeweather.app/internal/config"
	"homeweather.app/pkg/errors"
)

// OpenRemoteDB opens the remote backend's database for the configured driver
func OpenRemoteDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "":
		return nil, errors.NewUnavailableError("remote backend is not configured")
	default:
		return nil, errors.NewConfigurationError("unsupported remote driver: "+cfg.Driver, nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.NewStorageError("failed to connect to remote database", err)
	}
	return db, nil
}

// CloseDB safely closes the database connection
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
