package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/blockchain"
	"github.com/orris-inc/usdtvote/internal/infrastructure/cache"
	"github.com/orris-inc/usdtvote/internal/infrastructure/config"
	"github.com/orris-inc/usdtvote/internal/infrastructure/ratelimit"
	"github.com/orris-inc/usdtvote/internal/infrastructure/repository"
	"github.com/orris-inc/usdtvote/internal/infrastructure/scheduler"
	"github.com/orris-inc/usdtvote/internal/infrastructure/votecredit"
	"github.com/orris-inc/usdtvote/internal/shared/db"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// repositories holds all repository instances used by the application.
type repositories struct {
	paymentRepo *repository.PaymentLedgerRepository
	intentRepo  *repository.PaymentIntentRepository
	voteLedger  *votecredit.Ledger
	txManager   *db.TransactionManager
}

// ============================================================
// Section 1: Infrastructure - Redis, Repositories
// ============================================================

func (c *Container) initInfrastructure(ctx context.Context) error {
	if c.cfg.Redis.Enabled {
		client, err := initRedis(ctx, c.cfg, c.log)
		if err != nil {
			return err
		}
		c.redis = client
	} else {
		c.log.Infow("redis disabled, rate limits and sweep lock are process-local")
	}

	c.repos = newRepositories(c.db)
	return nil
}

// initRedis creates and tests the Redis client connection.
func initRedis(ctx context.Context, cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}
	log.Infow("Redis connection established successfully")

	return redisClient, nil
}

// newRepositories creates all repository instances from the database connection.
func newRepositories(gdb *gorm.DB) *repositories {
	return &repositories{
		paymentRepo: repository.NewPaymentLedgerRepository(gdb),
		intentRepo:  repository.NewPaymentIntentRepository(gdb),
		voteLedger:  votecredit.NewLedger(gdb),
		txManager:   db.NewTransactionManager(gdb),
	}
}

// ============================================================
// Section 2: Chain adapters
// ============================================================

// initChains registers one adapter per network that has a deposit address. Outbound calls
// share a per-process token bucket and, with redis, a per-minute budget across replicas.
func (c *Container) initChains() error {
	chains := c.cfg.Chains

	limiters := []ratelimit.Limiter{ratelimit.NewLocalLimiter(chains.RequestsPerSecond, chains.Burst)}
	if c.redis != nil && chains.SharedLimitPerMinute > 0 {
		limiters = append(limiters, ratelimit.NewRedisRateLimiter(c.redis, chains.SharedLimitPerMinute, time.Minute, c.log))
	}
	opts := blockchain.ClientOptions{
		Limiter: ratelimit.Chain(limiters...),
		Timeout: chains.RequestTimeout,
		Metrics: c.metrics,
		Logger:  logger.WithComponent("blockchain"),
	}

	c.fetcher = blockchain.NewCompositeFetcher()

	if chains.BSC.DepositAddress != "" {
		ethClient, err := blockchain.DialBSC(chains.BSC.RPCURL)
		if err != nil {
			return fmt.Errorf("failed to dial BSC rpc: %w", err)
		}
		c.bscClient = ethClient

		bsc, err := blockchain.NewBSCClient(ethClient, chains.BSC.USDTContract, chains.BSC.DepositAddress, opts)
		if err != nil {
			return err
		}
		c.fetcher.Register(vo.NetworkBSC, bsc)
		c.log.Infow("BSC adapter registered", "rpc_url", chains.BSC.RPCURL)
	}

	if chains.Tron.DepositAddress != "" {
		tron, err := blockchain.NewTronClient(chains.Tron.APIURL, chains.Tron.APIKey, chains.Tron.USDTContract, opts)
		if err != nil {
			return err
		}
		c.fetcher.Register(vo.NetworkTRON, tron)
		c.log.Infow("TRON adapter registered", "api_url", chains.Tron.APIURL)
	}

	return nil
}

// ============================================================
// Section 5: Reconciliation scheduler
// ============================================================

func (c *Container) initScheduler() error {
	if !c.cfg.Sweeper.Enabled {
		c.log.Infow("reconciliation sweeper disabled")
		return nil
	}

	var lock scheduler.RunLocker
	if c.redis != nil {
		lock = cache.NewRunLock(c.redis)
	}

	manager, err := scheduler.NewSchedulerManager(lock, logger.WithComponent("scheduler"))
	if err != nil {
		return err
	}
	if err := manager.RegisterReconcileJob(c.ucs.reconcileUC, scheduler.ReconcileJobConfig{
		Interval: c.cfg.Sweeper.Interval,
		LockTTL:  c.cfg.Sweeper.LockTTL,
	}); err != nil {
		return err
	}
	c.schedulerManager = manager
	return nil
}

// StartScheduler begins periodic reconciliation. It is a no-op when the sweeper is disabled.
func (c *Container) StartScheduler() {
	if c.schedulerManager != nil {
		c.schedulerManager.Start()
	}
}
