package http

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/usdtvote/internal/infrastructure/blockchain"
	"github.com/orris-inc/usdtvote/internal/infrastructure/config"
	"github.com/orris-inc/usdtvote/internal/infrastructure/metrics"
	"github.com/orris-inc/usdtvote/internal/infrastructure/scheduler"
	"github.com/orris-inc/usdtvote/internal/interfaces/http/middleware"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases, handlers,
// and background services. It wires everything together and provides Shutdown()
// for graceful termination.
type Container struct {
	// Core infrastructure
	engine  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	log     logger.Interface
	redis   *redis.Client
	metrics *metrics.PaymentMetrics

	// Chain adapters
	fetcher   *blockchain.CompositeFetcher
	bscClient *ethclient.Client

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	// Middlewares
	rateLimiter *middleware.RateLimiter
	adminToken  *middleware.AdminToken

	// Background services
	schedulerManager *scheduler.SchedulerManager
}

// NewContainer creates a Container with all dependencies wired together. db must already
// be migrated.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine:  gin.New(),
		db:      db,
		cfg:     cfg,
		log:     log,
		metrics: metrics.Default(),
	}

	// Section 1: Infrastructure - Redis, Repositories
	if err := c.initInfrastructure(ctx); err != nil {
		return nil, err
	}

	// Section 2: Chain adapters
	if err := c.initChains(); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize chain adapters: %w", err)
	}

	// Section 3: Use cases
	if err := c.initUseCases(); err != nil {
		c.Shutdown()
		return nil, err
	}

	// Section 4: Handlers and middlewares
	c.initHandlers()

	// Section 5: Reconciliation scheduler
	if err := c.initScheduler(); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	return c, nil
}

// Shutdown stops background work and releases outbound connections. The database is
// owned by the caller.
func (c *Container) Shutdown() {
	// Stop the sweep first so no pass starts against closed clients
	if c.schedulerManager != nil {
		if err := c.schedulerManager.Stop(); err != nil {
			c.log.Errorw("failed to stop scheduler", "error", err)
		}
	}

	if c.bscClient != nil {
		c.bscClient.Close()
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
