package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orris-inc/usdtvote/internal/application/payment/dto"
	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/metrics"
	"github.com/orris-inc/usdtvote/internal/shared/goroutine"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

const (
	defaultSweepBatchSize = 200
	defaultSweepWorkers   = 4
)

// PendingVerifier re-runs verification for a stored pending row.
type PendingVerifier interface {
	VerifyPending(ctx context.Context, p *payment.Payment) (*dto.VerificationResult, error)
}

// ReconcilePendingUseCase is one sweeper pass: every pending row, oldest first and one page
// at a time, goes through verification again, followed by a retry of credits that failed earlier.
type ReconcilePendingUseCase struct {
	paymentRepo payment.PaymentRepository
	verifier    PendingVerifier
	creditRetry *RetryPendingCreditsUseCase
	batchSize   int
	workers     int
	metrics     *metrics.PaymentMetrics
	logger      logger.Interface

	resumeMu    sync.Mutex
	resumeAfter uint
}

// ReconcileConfig sizes a sweep pass.
type ReconcileConfig struct {
	// BatchSize is the page size used to walk the pending rows, not a cap on the pass.
	BatchSize int
	// Workers caps concurrent verifications, and so concurrent outbound chain requests.
	Workers int
}

func NewReconcilePendingUseCase(
	paymentRepo payment.PaymentRepository,
	verifier PendingVerifier,
	creditRetry *RetryPendingCreditsUseCase,
	cfg ReconcileConfig,
	m *metrics.PaymentMetrics,
	logger logger.Interface,
) *ReconcilePendingUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultSweepBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultSweepWorkers
	}
	return &ReconcilePendingUseCase{
		paymentRepo: paymentRepo,
		verifier:    verifier,
		creditRetry: creditRetry,
		batchSize:   cfg.BatchSize,
		workers:     cfg.Workers,
		metrics:     m,
		logger:      logger,
	}
}

// Execute runs one full pass over every pending row and returns its summary. A failing row is
// logged and counted; it never stops the pass. Only listing failures and cancellation end it early.
func (uc *ReconcilePendingUseCase) Execute(ctx context.Context) (*dto.ReconcileSummary, error) {
	start := time.Now()
	summary := &dto.ReconcileSummary{}
	defer func() {
		summary.Duration = time.Since(start)
		summary.DurationSeconds = summary.Duration.Seconds()
		uc.metrics.ObserveSweepDuration(summary.Duration)
	}()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(uc.workers)

	dispatch := func(p *payment.Payment) {
		mu.Lock()
		summary.Scanned++
		mu.Unlock()

		g.Go(func() error {
			outcome := uc.reconcileRow(ctx, p)
			uc.metrics.ObserveSweepRow(outcome)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case vo.PaymentStatusConfirmed.String():
				summary.Confirmed++
			case vo.PaymentStatusRejected.String():
				summary.Rejected++
			case vo.PaymentStatusPending.String():
				summary.StillPending++
			default:
				summary.Errors++
			}
			return nil
		})
	}

	// A pass cut short by its deadline leaves a resume point; the next one starts there and
	// wraps around, so a backlog larger than one pass can handle is still covered in turn.
	resumeAfter := uc.resumePoint()
	last, err := uc.walk(ctx, resumeAfter, 0, dispatch)
	if err == nil && ctx.Err() == nil && resumeAfter > 0 {
		last, err = uc.walk(ctx, 0, resumeAfter, dispatch)
	}
	_ = g.Wait()

	if err != nil {
		return summary, fmt.Errorf("failed to list pending payments: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		uc.setResumePoint(last)
		uc.logger.Warnw("reconciliation pass cut short, next pass resumes",
			"scanned", summary.Scanned,
			"resume_after_id", last,
			"error", ctxErr,
		)
		return summary, ctxErr
	}
	uc.setResumePoint(0)

	if uc.creditRetry != nil {
		credits, err := uc.creditRetry.Execute(ctx)
		summary.CreditsRetried = credits.Attempted
		summary.CreditsSettled = credits.Settled
		summary.CreditsFailed = credits.Failed
		if err != nil {
			uc.logger.Warnw("vote credit retry failed", "error", err)
		}
	}

	if summary.Scanned > 0 {
		uc.logger.Infow("reconciliation pass finished",
			"resumed_after_id", resumeAfter,
			"scanned", summary.Scanned,
			"confirmed", summary.Confirmed,
			"rejected", summary.Rejected,
			"pending", summary.StillPending,
			"errors", summary.Errors,
			"duration", time.Since(start),
		)
	}
	return summary, nil
}

// walk dispatches pending rows with afterID < ID <= upTo, one page at a time. upTo of zero
// means no upper bound. It returns the ID of the last row dispatched.
func (uc *ReconcilePendingUseCase) walk(ctx context.Context, afterID, upTo uint, dispatch func(*payment.Payment)) (uint, error) {
	for ctx.Err() == nil {
		page, err := uc.paymentRepo.ListPending(ctx, afterID, uc.batchSize)
		if err != nil {
			return afterID, err
		}
		for _, p := range page {
			if upTo > 0 && p.ID() > upTo {
				return afterID, nil
			}
			if ctx.Err() != nil {
				return afterID, nil
			}
			dispatch(p)
			afterID = p.ID()
		}
		if len(page) < uc.batchSize {
			break
		}
	}
	return afterID, nil
}

func (uc *ReconcilePendingUseCase) resumePoint() uint {
	uc.resumeMu.Lock()
	defer uc.resumeMu.Unlock()
	return uc.resumeAfter
}

func (uc *ReconcilePendingUseCase) setResumePoint(id uint) {
	uc.resumeMu.Lock()
	uc.resumeAfter = id
	uc.resumeMu.Unlock()
}

// reconcileRow returns the row's status after verification, or "error".
func (uc *ReconcilePendingUseCase) reconcileRow(ctx context.Context, p *payment.Payment) string {
	outcome := "error"
	err := goroutine.RunSafe(uc.logger, "reconcile-payment", func() error {
		result, err := uc.verifier.VerifyPending(ctx, p)
		if err != nil {
			return err
		}
		outcome = result.Status
		return nil
	})
	if err != nil {
		uc.logger.Warnw("failed to reconcile payment",
			"tx_hash", p.TxHash(),
			"network", p.Network().String(),
			"error", err,
		)
		return "error"
	}

	uc.logger.Debugw("payment reconciled",
		"tx_hash", p.TxHash(),
		"network", p.Network().String(),
		"status", outcome,
	)
	return outcome
}
