package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending migration for the configured driver.
// It uses its own connection so closing the migrator cannot affect the
// repository's pool.
func RunMigrations(cfg ConnConfig) error {
	migrateDB, err := sql.Open(string(cfg.Driver), cfg.DSN())
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var driver database.Driver
	switch cfg.Driver {
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(migrateDB, &migratesqlite.Config{})
	case DriverMySQL:
		driver, err = migratemysql.WithInstance(migrateDB, &migratemysql.Config{})
	case DriverPostgres:
		driver, err = migratepg.WithInstance(migrateDB, &migratepg.Config{})
	default:
		return fmt.Errorf("run migrations: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return fmt.Errorf("create %s migration driver: %w", cfg.Driver, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(cfg.Driver))
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(cfg.Driver), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
