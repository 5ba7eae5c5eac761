package archive

import (
	"fmt"
	stdlog "log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blockberries/kudos/config"
)

// Open opens the archive database described by cfg. It returns a nil
// DB when no database is configured.
func Open(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDialect == "" || cfg.DBDsn == "" {
		return nil, nil
	}

	// Silent: failures surface through returned errors.
	newLogger := logger.New(
		stdlog.New(os.Stdout, "", stdlog.LstdFlags),
		logger.Config{
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)

	switch cfg.DBDialect {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DBDsn), &gorm.Config{Logger: newLogger})
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", cfg.DBDialect)
	}
}

// AutoMigrate creates or updates the archive tables.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(allModels()...)
}
