// Package databasetest opens migrated sqlite databases for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orris-inc/usdtvote/internal/infrastructure/database"
	"github.com/orris-inc/usdtvote/internal/infrastructure/migration"
	"github.com/orris-inc/usdtvote/internal/shared/config"
)

// Open returns a fresh file-backed sqlite database with every table migrated.
// File-backed so that concurrent goroutines share one database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.NewGormAutoMigrateStrategy().Migrate(db))
	return db
}
