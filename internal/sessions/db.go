package sessions

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDB opens (creating if needed) the SQLite database at path and
// migrates the session schema.
func OpenDB(path string, logger *log.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create database directory: %w", err)
	}

	gormLogger := gormlogger.New(
		logAdapter{logger},
		gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to open session database: %w", err)
	}

	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("unable to migrate session database: %w", err)
	}

	logger.Debug("session database ready", "path", path)
	return db, nil
}

// logAdapter routes gorm's printf-style logging into charmbracelet/log.
type logAdapter struct {
	l *log.Logger
}

func (a logAdapter) Printf(format string, args ...interface{}) {
	a.l.Warnf(format, args...)
}
