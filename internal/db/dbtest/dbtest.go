// Package dbtest provides a migrated throwaway SQLite database for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/devfolio/portfolio/config"
	"github.com/devfolio/portfolio/internal/db"
)

// Config returns a configuration pointing at a fresh SQLite file inside
// the test's temp directory.
func Config(t testing.TB) config.Config {
	t.Helper()
	return config.Config{
		Env: "test",
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "portfolio.db"),
		},
	}
}

// Open migrates a fresh database and returns a connection that is closed
// when the test finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	cfg := Config(t)
	ctx := context.Background()
	if err := db.MigrateUp(ctx, cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
