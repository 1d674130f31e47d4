package postgres

import (
	"fmt"
	"time"

	"github.com/recipepanel/foodsync/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultRetryDelay = 3 * time.Second

// sleep is swapped in tests
var sleep = time.Sleep

// Options configures the connection pool. A zero RetryDelay waits defaultRetryDelay
// between connection attempts.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
	RetryDelay      time.Duration
	LogSQL          bool
}

// Open connects to PostgreSQL through gorm, retrying while the server comes up
func Open(opts Options) (*gorm.DB, error) {
	level := gormlogger.Warn
	if opts.LogSQL {
		level = gormlogger.Info
	}
	gormConfig := &gorm.Config{
		Logger: newGormLogger(level),
	}

	attempts := opts.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var err error
	for i := 0; i < attempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(opts.DSN), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if pingErr := sqlDB.Ping(); pingErr != nil {
				err = pingErr
			} else {
				if opts.MaxOpenConns > 0 {
					sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
				}
				if opts.MaxIdleConns > 0 {
					sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
				}
				if opts.ConnMaxLifetime > 0 {
					sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
				}
				return db, nil
			}
		}

		logger.Warn().Err(err).Int("attempt", i+1).Int("of", attempts).Msg("database not reachable")
		if i < attempts-1 {
			sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, err)
}

// Migrate creates or updates every table owned by this service
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&productModel{}, &seedRunModel{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	for _, table := range []string{searchCacheTable, productCacheTable} {
		if err := db.Table(table).AutoMigrate(&cacheRow{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", table, err)
		}
	}
	return nil
}
