package database

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/audiolens/component"
	apperrors "github.com/kbukum/audiolens/errors"
	"github.com/kbukum/audiolens/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func sqliteConfig() Config {
	return Config{Driver: DriverSQLite, DSN: ":memory:", MaxRetries: 1, AutoMigrate: true}
}

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), sqliteConfig(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{DSN: "postgres://x"}
	cfg.ApplyDefaults()
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, "warn", cfg.LogLevel)
	require.NoError(t, cfg.Validate())

	lite := sqliteConfig()
	lite.ApplyDefaults()
	assert.Equal(t, 1, lite.MaxOpenConns, "sqlite is pinned to one connection")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing dsn", func(c *Config) { c.DSN = "" }, "dsn is required"},
		{"bad driver", func(c *Config) { c.Driver = "mysql" }, "unsupported driver"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 50 }, "max_idle_conns"},
		{"bad duration", func(c *Config) { c.SlowQueryThreshold = "fast" }, "slow_query_threshold"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{DSN: "postgres://x"}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestOpenCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, sqliteConfig(), logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}

func TestWithTransactionCommitAndRollback(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}))

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, db.WithContext(ctx).Model(&widget{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"kept"}, names)
}

func TestWithTransactionRepanics(t *testing.T) {
	db := openSQLite(t)
	assert.Panics(t, func() {
		_ = db.WithTransaction(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&widget{Name: "ghost"})
			panic("kaboom")
		})
	})

	var count int64
	require.NoError(t, db.GormDB.Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCloseTwice(t *testing.T) {
	db, err := Open(context.Background(), sqliteConfig(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
}

func TestFromDatabase(t *testing.T) {
	assert.Nil(t, FromDatabase(nil, "job"))

	nf := FromDatabase(gorm.ErrRecordNotFound, "job")
	assert.Equal(t, apperrors.ErrCodeNotFound, nf.Code)

	dup := FromDatabase(gorm.ErrDuplicatedKey, "job")
	assert.Equal(t, apperrors.ErrCodeConflict, dup.Code)

	conn := FromDatabase(errors.New("dial tcp: connection refused"), "job")
	assert.Equal(t, apperrors.ErrCodeDatabaseError, conn.Code)
	assert.Equal(t, http.StatusServiceUnavailable, conn.HTTPStatus)
	assert.True(t, conn.Retryable)

	other := FromDatabase(errors.New("syntax error"), "job")
	assert.Equal(t, http.StatusInternalServerError, other.HTTPStatus)
}

func TestComponentLifecycle(t *testing.T) {
	c := NewComponent(sqliteConfig(), logger.Nop()).WithAutoMigrate(&widget{})
	ctx := context.Background()

	assert.Nil(t, c.DB())
	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	assert.True(t, c.DB().GormDB.Migrator().HasTable(&widget{}))
	assert.True(t, strings.HasPrefix(c.Describe().Details, "driver=sqlite"))

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
}
