// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ncnews/ncnews-backend/internal/db"
)

// Open returns a migrated, empty SQLite database in the test's temp dir.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "news.db")

	conn, err := db.Open(ctx, db.Config{Driver: db.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.MigrateUp(ctx, conn.DB, db.DriverSQLite); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

// OpenSeeded returns a migrated database loaded with db.TestFixtures.
func OpenSeeded(t testing.TB) *sqlx.DB {
	t.Helper()

	conn := Open(t)
	if err := db.Seed(context.Background(), conn, db.TestFixtures); err != nil {
		t.Fatalf("failed to seed sqlite: %v", err)
	}
	return conn
}
