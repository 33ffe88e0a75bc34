// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/bunx"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// New returns a fresh database with every migration applied. It is closed
// when the test finishes.
func New(t testing.TB) *bun.DB {
	t.Helper()
	return Open(t, ":memory:")
}

// Open connects to dsn and applies pending migrations. Opening the same file
// twice gives two independent handles, as two processes would have.
func Open(t testing.TB, dsn string) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}
