// manage.go handles database migrations and shared GORM plumbing
package datastore

import (
	"time"

	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/logging"
	"gorm.io/gorm"
)

// performAutoMigration migrates all tables and logs duration.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := logging.ForService("datastore").With("db_type", dbType)

	if debug {
		migrationLogger.Debug("starting database migration", "connection", connectionInfo)
	}

	err := db.AutoMigrate(
		&SymptomReport{},
		&WaterReport{},
		&Prediction{},
		&User{},
		&ReporterActivity{},
	)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("operation", "auto_migration").
			Context("db_type", dbType).
			Build()
	}

	if debug {
		migrationLogger.Debug("database migration completed",
			"duration", time.Since(migrationStart))
	}
	return nil
}
