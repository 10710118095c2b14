package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	"github.com/orris-inc/usdtvote/internal/infrastructure/metrics"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// VoteCreditor is the participant vote ledger.
type VoteCreditor interface {
	IncrementVotes(ctx context.Context, participantID string, count int64) error
}

// TransactionRunner runs fn in one database transaction carried by ctx.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreditSettler turns a confirmed payment into votes exactly once. The credit claim and the vote
// increment share a transaction, so either both land or the credit stays pending for a retry.
type CreditSettler struct {
	paymentRepo payment.PaymentRepository
	creditor    VoteCreditor
	txRunner    TransactionRunner
	metrics     *metrics.PaymentMetrics
	logger      logger.Interface
}

func NewCreditSettler(
	paymentRepo payment.PaymentRepository,
	creditor VoteCreditor,
	txRunner TransactionRunner,
	m *metrics.PaymentMetrics,
	logger logger.Interface,
) *CreditSettler {
	return &CreditSettler{
		paymentRepo: paymentRepo,
		creditor:    creditor,
		txRunner:    txRunner,
		metrics:     m,
		logger:      logger,
	}
}

// Settle credits p's votes. It returns false, nil when another worker already settled it.
// A failed credit is recorded on the row and reported as ErrCreditFailure; the payment itself
// stays confirmed.
func (s *CreditSettler) Settle(ctx context.Context, p *payment.Payment) (bool, error) {
	if !p.Status().IsConfirmed() || p.VoteCount() == 0 {
		return false, nil
	}

	claimed := false
	err := s.txRunner.RunInTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.paymentRepo.ClaimCredit(txCtx, p.TxHash())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.creditor.IncrementVotes(txCtx, p.ParticipantID(), p.VoteCount()); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		s.metrics.ObserveCreditFailure(p.Network().String())
		s.logger.Errorw("vote credit failed, payment stays confirmed",
			"tx_hash", p.TxHash(),
			"participant_id", p.ParticipantID(),
			"votes", p.VoteCount(),
			"error", err,
		)
		// The caller's context may be the reason the credit failed; still leave a trace.
		if recErr := s.paymentRepo.RecordCreditFailure(context.WithoutCancel(ctx), p.TxHash(), err.Error()); recErr != nil {
			s.logger.Warnw("failed to record credit failure",
				"tx_hash", p.TxHash(),
				"error", recErr,
			)
		}
		return false, fmt.Errorf("%w: %s: %v", payment.ErrCreditFailure, p.TxHash(), err)
	}

	if claimed {
		s.logger.Infow("votes credited",
			"tx_hash", p.TxHash(),
			"participant_id", p.ParticipantID(),
			"votes", p.VoteCount(),
		)
	}
	return claimed, nil
}
