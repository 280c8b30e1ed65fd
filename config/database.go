package config

import (
	"fmt"
	"time"

	"kit-marketplace/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// OpenHistoryDB opens the local history database at path and migrates the
// schema. The pool is capped at one connection so every transaction on the
// store runs strictly one after another.
func OpenHistoryDB(path string, logWriter gormlogger.Writer) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.New(logWriter, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        historyDSN(path),
	}), cfg)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("history db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&models.ViewedItem{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return db, nil
}

// historyDSN builds a modernc.org/sqlite DSN with the pragmas the store relies on.
func historyDSN(path string) string {
	return "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_txlock=immediate"
}
