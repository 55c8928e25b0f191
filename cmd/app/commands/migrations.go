package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var migrationSources = map[string]string{
	"postgres": "file://migrations/postgresql",
	"mysql":    "file://migrations/mysql",
}

// RunMigrations moves the schema of dbDriver (postgres or mysql). With down == 0
// every pending migration is applied; with down > 0 that many migrations are
// rolled back. An already current schema is not an error.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string, down int) error {
	source, ok := migrationSources[dbDriver]
	if !ok {
		return fmt.Errorf("unsupported database driver %q: expected postgres or mysql", dbDriver)
	}
	if down < 0 {
		return fmt.Errorf("down must not be negative")
	}

	m, err := migrate.New(source, dbConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if down > 0 {
		logger.Warn("rolling back database migrations",
			slog.String("driver", dbDriver),
			slog.Int("steps", down),
		)
		err = m.Steps(-down)
	} else {
		logger.Info("running database migrations", slog.String("driver", dbDriver))
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("migrations completed, schema is empty")
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	default:
		logger.Info("migrations completed",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}
