package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

func prepareGoose(driver string) (string, error) {
	goose.SetBaseFS(migrations)

	switch driver {
	case DriverPostgres:
		if err := goose.SetDialect("postgres"); err != nil {
			return "", fmt.Errorf("failed to set dialect: %w", err)
		}
		return "migrations/postgres", nil
	case DriverSQLite:
		if err := goose.SetDialect("sqlite3"); err != nil {
			return "", fmt.Errorf("failed to set dialect: %w", err)
		}
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// MigrateUp applies every pending migration for the driver's dialect.
func MigrateUp(ctx context.Context, conn *sql.DB, driver string) error {
	dir, err := prepareGoose(driver)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, conn *sql.DB, driver string) error {
	dir, err := prepareGoose(driver)
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrationStatus prints applied and pending migrations through goose's logger.
func MigrationStatus(ctx context.Context, conn *sql.DB, driver string) error {
	dir, err := prepareGoose(driver)
	if err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the current goose version of the schema.
func SchemaVersion(ctx context.Context, conn *sql.DB, driver string) (int64, error) {
	if _, err := prepareGoose(driver); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, conn)
}
