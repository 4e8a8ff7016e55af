package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrate applies every pending up migration of the dialect.
func (cdb *CrawlDB) migrate() error {
	dir, err := fs.Sub(migrationsFS, "migrations/"+string(cdb.dialect))
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	sourceDriver, err := iofs.New(dir, ".")
	if err != nil {
		return fmt.Errorf("could not create source driver: %w", err)
	}

	var driver migratedb.Driver
	switch cdb.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(cdb.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(cdb.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(cdb.dialect), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run up migrations: %w", err)
	}

	// The SQLite driver closes the shared *sql.DB on Close; only the
	// PostgreSQL driver holds a dedicated connection that must be released.
	if cdb.dialect == DialectPostgres {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			return fmt.Errorf("could not close migrate instance: %w", errors.Join(srcErr, dbErr))
		}
	}

	slog.Debug("migrations applied", "dialect", cdb.dialect)
	return nil
}
