package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies pending migrations. A non-positive steps value applies all of them.
func MigrateUp(connString string, steps int) (uint, error) {
	return run(connString, func(m Migrator) error {
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	})
}

// MigrateDown reverts migrations. A non-positive steps value reverts all of them.
func MigrateDown(connString string, steps int) (uint, error) {
	return run(connString, func(m Migrator) error {
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	})
}

// run applies fn and reports the resulting schema version.
// migrate.ErrNoChange is not treated as an error.
func run(connString string, fn func(Migrator) error) (uint, error) {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return 0, err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}
