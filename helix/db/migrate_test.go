package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrate(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "nested", "helix.db")

	db, err := ConnectToDB(dsn, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, zerolog.Nop()))
	// second run has nothing pending
	require.NoError(t, Migrate(ctx, db, zerolog.Nop()))

	for _, table := range []string{"messages", "tasks"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, table, name)
	}
}

func TestConnectToDB_EmptyDSN(t *testing.T) {
	_, err := ConnectToDB("", zerolog.Nop())
	assert.Error(t, err)
}

func TestEmbeddedPath(t *testing.T) {
	path, ok := embeddedPath("file:/tmp/helix.db?_journal_mode=WAL")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/helix.db", path)

	_, ok = embeddedPath("file::memory:?cache=shared")
	assert.False(t, ok)

	_, ok = embeddedPath("libsql://example.turso.io")
	assert.False(t, ok)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "libsql://db.turso.io?authToken=REDACTED", redact("libsql://db.turso.io?authToken=abc123"))
	assert.Equal(t, "file:helix.db", redact("file:helix.db"))
}
