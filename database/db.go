package database

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lexhub/internal/httpapi/models"
)

// Connect opens the backend Postgres store and migrates the subsystem
// tables. Callers treat a nil *gorm.DB as "backend unavailable" and run
// local-only; connection failure here is not fatal to the service.
func Connect(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("no database DSN configured")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.NotificationSettings{},
		&models.TribunalUpdate{},
		&models.TrackedCaseNumber{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Connected to the database successfully")
	return db, nil
}
