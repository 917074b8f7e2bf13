package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/connexa-app/connexa-api/internal/models"
)

// Connect opens the configured relational store. Driver errors are translated
// so repositories can rely on gorm.ErrDuplicatedKey. Foreign key constraints
// are not created: groups outlive their deleted creators in inactive form and
// account removal cleans up dependent rows itself.
func Connect(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	}

	switch driver {
	case "postgres":
		return ConnectPostgres(dsn, cfg)
	case "sqlite":
		return ConnectSQLite(dsn, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
