// Package database opens and manages the GORM connection used by the job
// store. Postgres is the production driver; sqlite backs tests and local runs.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/audiolens/logger"
)

// DB wraps a GORM handle with logging and close-once semantics.
type DB struct {
	GormDB *gorm.DB
	cfg    Config
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

// Dialector maps the configured driver to its GORM dialector.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

// Open connects with a linear backoff between attempts, pinging each time.
// Cancelling ctx aborts the retry loop.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("database")

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	slow, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, slow, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("database: connect canceled: %w", err)
		}

		db, err := connect(ctx, dialector, gormCfg, cfg)
		if err == nil {
			log.Info("database connected", logger.Fields("driver", cfg.Driver, "attempt", attempt))
			return &DB{GormDB: db, cfg: cfg, log: log}, nil
		}
		lastErr = err

		if attempt < cfg.MaxRetries {
			wait := time.Duration(attempt) * time.Second
			log.Warn("database connect failed, retrying", logger.Fields("attempt", attempt, logger.FieldError, err.Error(), "backoff", wait.String()))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("database: connect canceled: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return nil, fmt.Errorf("database: connect failed after %d attempts: %w", cfg.MaxRetries, lastErr)
}

func connect(ctx context.Context, d gorm.Dialector, gormCfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(d, gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		sqlDB.SetConnMaxIdleTime(d)
	}
	return db, nil
}

// Driver returns the configured driver name.
func (d *DB) Driver() string { return d.cfg.Driver }

// Close closes the pool. Calling it twice is safe.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.closed = true
	return sqlDB.Close()
}

func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or alters tables for models. Used with sqlite; Postgres
// schemas come from the SQL migrations.
func (d *DB) AutoMigrate(models ...interface{}) error {
	if err := d.GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: auto-migrate: %w", err)
	}
	d.log.Debug("auto-migration done", logger.Fields("models", len(models)))
	return nil
}

// WithTransaction runs fn in a transaction. A returned error or a panic rolls
// it back; the panic is re-raised.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := d.GormDB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("database: begin: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			d.log.Error("transaction rolled back after panic", logger.Fields("panic", fmt.Sprint(r)))
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("database: commit: %w", err)
	}
	return nil
}
