// Package db owns the SQLite connection shared by the scheduling services.
package db

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide handle used by the HTTP layer. Services take the
// connection as an explicit argument so tests can run against their own
// in-memory database.
var DB *gorm.DB

// Initialize opens the clinic database. WAL mode keeps calendar reads from
// blocking behind booking writes, the busy timeout rides out short write
// bursts from the admission pipeline, and foreign keys guard the booking
// links (appointment resources, operation devices, patient flows).
func Initialize(dbPath string, environment string) error {
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	var err error
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open scheduling database: %w", err)
	}

	log.Printf("Scheduling database ready at %s (WAL, foreign keys on)", dbPath)
	return nil
}

// AutoMigrate migrates the schema for the provided models. The server
// migrates the full model set at startup; the clinician bootstrap CLI
// migrates only the tables it touches.
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("Schema migrations completed")
	return nil
}

// Close releases the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
