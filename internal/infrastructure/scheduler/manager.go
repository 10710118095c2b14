// Package scheduler runs the periodic reconciliation sweep using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/orris-inc/usdtvote/internal/application/payment/dto"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

const reconcileJobName = "payment-reconcile"

// SweepJob is one reconciliation pass.
type SweepJob interface {
	Execute(ctx context.Context) (*dto.ReconcileSummary, error)
}

// RunLocker keeps a job to one replica at a time.
type RunLocker interface {
	TryAcquire(ctx context.Context, job string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, job string) error
}

// SchedulerManager owns the gocron scheduler and the jobs registered on it.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	lock      RunLocker
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager. lock may be nil for single-replica
// deployments without redis.
func NewSchedulerManager(lock RunLocker, log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		lock:      lock,
		logger:    log,
	}, nil
}

// ReconcileJobConfig times the sweep.
type ReconcileJobConfig struct {
	Interval time.Duration
	// Timeout bounds one pass. Defaults to the interval.
	Timeout time.Duration
	// LockTTL is how long a replica holds the run lock. Defaults to twice the timeout.
	LockTTL time.Duration
}

// RegisterReconcileJob runs job once at start and then every interval. A pass that overruns
// the interval delays the next one rather than overlapping it.
func (m *SchedulerManager) RegisterReconcileJob(job SweepJob, cfg ReconcileJobConfig) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * cfg.Timeout
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
			defer cancel()
			m.runReconcile(ctx, job, cfg.LockTTL)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("payment", "reconcile"),
		gocron.WithName(reconcileJobName),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered reconcile job",
		"interval", cfg.Interval,
		"timeout", cfg.Timeout,
		"distributed_lock", m.lock != nil,
	)
	return nil
}

func (m *SchedulerManager) runReconcile(ctx context.Context, job SweepJob, lockTTL time.Duration) {
	if m.lock != nil {
		acquired, err := m.lock.TryAcquire(ctx, reconcileJobName, lockTTL)
		if err != nil {
			// Running twice is safe, so a lock outage must not stall reconciliation.
			m.logger.Warnw("failed to acquire reconcile lock, running anyway", "error", err)
		} else if !acquired {
			m.logger.Debugw("reconcile pass skipped, another instance holds the lock")
			return
		} else {
			defer func() {
				if err := m.lock.Release(context.WithoutCancel(ctx), reconcileJobName); err != nil {
					m.logger.Warnw("failed to release reconcile lock", "error", err)
				}
			}()
		}
	}

	summary, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("reconcile pass failed", "error", err)
		return
	}
	if summary.Scanned > 0 || summary.CreditsRetried > 0 {
		m.logger.Infow("reconcile pass completed",
			"scanned", summary.Scanned,
			"confirmed", summary.Confirmed,
			"rejected", summary.Rejected,
			"pending", summary.StillPending,
			"errors", summary.Errors,
			"credits_settled", summary.CreditsSettled,
			"duration", summary.Duration,
		)
	}
}

// ========================================
// Scheduler Lifecycle Methods
// ========================================

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
