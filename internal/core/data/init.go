package data

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sablehq/sable/internal/core"
)

// Initialize opens the database configured under config.Database and runs the
// schema migrations. Engine selects the driver: sqlite for a local file,
// postgres for a shared instance.
func Initialize(cfg *core.Config) (*gorm.DB, error) {
	// By default only log errors but enable full SQL query prints-to-console
	// with debug mode.
	log := logger.Default.LogMode(logger.Error)
	if cfg.Debugging.DatabaseLoggingEnabled {
		log = logger.Default.LogMode(logger.Info)
	}

	var (
		db       *gorm.DB
		err      error
		gormConf = &gorm.Config{Logger: log}
	)
	switch cfg.Database.Engine {
	case "sqlite", "":
		db, err = gorm.Open(sqlite.Open(cfg.Database.Filename), gormConf)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL()), gormConf)
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Database.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("error auto migrating db: %w", err)
	}

	return db, nil
}

// Shutdown closes the underlying database connection.
func Shutdown(db *gorm.DB) error {
	database, err := db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}
