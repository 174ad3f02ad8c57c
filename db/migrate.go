package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// RunMigrations applies the embedded schema for dbType to an open connection.
func RunMigrations(conn *sql.DB, dbType DBType, log *zap.Logger) error {
	var (
		driver database.Driver
		err    error
	)
	switch dbType {
	case Postgres:
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	case SQLite:
		driver, err = sqlite3.WithInstance(conn, &sqlite3.Config{})
	default:
		return fmt.Errorf("no migrations for %q", dbType)
	}
	if err != nil {
		return fmt.Errorf("could not start %s migration driver: %w", dbType, err)
	}

	src, err := iofs.New(migrations, "migrations/"+string(dbType))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dbType), driver)
	if err != nil {
		return fmt.Errorf("migration failed to start: %w", err)
	}

	if dbType == Postgres {
		// releases the dedicated connection the driver holds; the sqlite
		// driver would close conn itself
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run up migrations: %w", err)
	}

	version, _, _ := m.Version()
	log.Info("migrations applied", zap.String("db", string(dbType)), zap.Uint("version", version))
	return nil
}
