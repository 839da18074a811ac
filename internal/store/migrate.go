package store

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// EnsureProcedures verifies that the stored procedures the sync pipeline
// calls are present. Migrations create them, but a partially applied or
// hand-managed schema can miss one, and the failure mode at sync time
// (mid-run, after hours of fetching) is much worse than failing here.
func EnsureProcedures(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	required := []string{
		"provider_update_refreshed",
		"streams_all_sync",
		"streams_cleanup",
		"streams_fixup",
		"streams_move_to_other",
	}
	for _, name := range required {
		var exists bool
		err := db.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1 AND prokind = 'p')",
			name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check procedure %s: %w", name, err)
		}
		if !exists {
			return fmt.Errorf("stored procedure %s is missing; run migrations against this database", name)
		}
	}
	return nil
}

// RunMigrations runs SQL migrations from the given directory (e.g. "file://migrations") against the DSN.
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
