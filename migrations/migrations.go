// Package migrations embeds the schema for every supported SQL store.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Up applies all pending migrations for driverName ("postgres" or "sqlite3").
func Up(db *sql.DB, driverName string) error {
	var (
		driver database.Driver
		dir    string
		err    error
	)

	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		dir = "sqlite"
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
		dir = "postgres"
	default:
		return fmt.Errorf("unsupported driver: %s", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(files, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations completed successfully", "driver", driverName)
	return nil
}
