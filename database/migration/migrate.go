// Package migration applies versioned SQL migrations with golang-migrate.
// Files follow golang-migrate naming (0001_name.up.sql / 0001_name.down.sql)
// and are read from any fs.FS, normally an embed.FS next to the schema owner.
package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kbukum/audiolens/database"
	"github.com/kbukum/audiolens/logger"
)

// Migrator wraps a golang-migrate instance bound to an open database.
type Migrator struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// New builds a Migrator for db reading dir inside files. Only Postgres is
// supported; sqlite databases use GORM auto-migration instead.
func New(db *database.DB, files fs.FS, dir string, log *logger.Logger) (*Migrator, error) {
	if db.Driver() != database.DriverPostgres {
		return nil, fmt.Errorf("migration: driver %q is not supported, use auto_migrate", db.Driver())
	}
	sqlDB, err := db.GormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("migration: get sql.DB: %w", err)
	}

	var driver migratedb.Driver
	driver, err = migratepg.WithInstance(sqlDB, &migratepg.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("migration: postgres driver: %w", err)
	}
	source, err := iofs.New(files, dir)
	if err != nil {
		return nil, fmt.Errorf("migration: open source %s: %w", dir, err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration: init: %w", err)
	}
	return &Migrator{m: m, log: log.WithComponent("migration")}, nil
}

// Up applies every pending migration. No pending migrations is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: up: %w", err)
	}
	mg.logVersion("migrations applied")
	return nil
}

// Steps moves n migrations forward (n > 0) or back (n < 0).
func (mg *Migrator) Steps(n int) error {
	if err := mg.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: steps %d: %w", n, err)
	}
	mg.logVersion("migration steps applied")
	return nil
}

// Down rolls back every migration.
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: down: %w", err)
	}
	mg.log.Info("migrations rolled back")
	return nil
}

// Version returns the applied version; a fresh database reports 0.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) logVersion(msg string) {
	v, dirty, err := mg.Version()
	if err != nil {
		mg.log.Warn(msg, logger.Fields(logger.FieldError, err.Error()))
		return
	}
	mg.log.Info(msg, logger.Fields("version", v, "dirty", dirty))
}
