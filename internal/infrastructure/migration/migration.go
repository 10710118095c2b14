package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/usdtvote/internal/shared/config"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks goose scripts for mysql and gorm AutoMigrate for sqlite.
func NewManager(cfg config.DatabaseConfig) *Manager {
	var strategy Strategy
	if cfg.IsSQLite() {
		strategy = NewGormAutoMigrateStrategy()
	} else {
		strategy = NewGooseStrategy("mysql")
	}
	return NewManagerWithStrategy(strategy)
}

func NewManagerWithStrategy(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.WithComponent("migration.manager"),
	}
}

// Migrate executes the configured migration strategy
func (m *Manager) Migrate(db *gorm.DB, models ...interface{}) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.GetName())

	if err := m.strategy.Migrate(db, models...); err != nil {
		m.logger.Errorw("migration failed", "strategy", m.strategy.GetName(), "error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("database migration completed successfully", "strategy", m.strategy.GetName())
	return nil
}

func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}
