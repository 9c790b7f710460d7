// Package testutil provides store fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/database"
	"github.com/loyd0/LoydFam-sub000/internal/migrations"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.NewDB(database.Options{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		// One connection keeps every query on the same in-memory database.
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.RunMigrations(context.Background(), db, nil))
	return db
}

// Count returns the number of rows in a table.
func Count(t testing.TB, db bun.IDB, model interface{}) int {
	t.Helper()

	n, err := db.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}
