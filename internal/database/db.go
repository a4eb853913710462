package database

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"maitre/internal/logger"
)

// Open connects to the configured database. Supported drivers are sqlite3
// and postgres. SQL statements are logged at debug level through zap.
func Open(driver, dsn string, log *zap.Logger) (*gorm.DB, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite3" {
		// sqlite allows a single writer; in-memory databases are also
		// per-connection.
		db.DB().SetMaxOpenConns(1)
	}

	if log != nil {
		db.SetLogger(logger.NewGormLogger(log))
		db.LogMode(log.Core().Enabled(zap.DebugLevel))
	}
	return db, nil
}
