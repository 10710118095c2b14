package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/shared/config"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "votes.db?"+sqliteDSNParams, SQLiteDSN("votes.db"))
	assert.Equal(t, "file::memory:?cache=shared", SQLiteDSN("file::memory:?cache=shared"))
}

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "usdtvote.db"),
	}

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, sqlDB.Ping())
}

func TestOpen_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.DatabaseConfig{
		Driver:         "mysql",
		Host:           "127.0.0.1",
		Port:           1,
		Database:       "usdtvote",
		ConnectRetries: 5,
	}
	_, err := Open(ctx, cfg)
	assert.Error(t, err)
}
