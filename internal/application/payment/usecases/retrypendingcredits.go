package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// CreditRetryResult counts one credit retry pass.
type CreditRetryResult struct {
	Attempted int
	Settled   int
	Failed    int
}

// RetryPendingCreditsUseCase re-issues vote credits for confirmed payments whose credit failed.
// It walks every such row in pages of batchSize and never re-verifies the payment itself.
type RetryPendingCreditsUseCase struct {
	paymentRepo payment.PaymentRepository
	settler     *CreditSettler
	batchSize   int
	logger      logger.Interface
}

func NewRetryPendingCreditsUseCase(
	paymentRepo payment.PaymentRepository,
	settler *CreditSettler,
	batchSize int,
	logger logger.Interface,
) *RetryPendingCreditsUseCase {
	return &RetryPendingCreditsUseCase{
		paymentRepo: paymentRepo,
		settler:     settler,
		batchSize:   batchSize,
		logger:      logger,
	}
}

func (uc *RetryPendingCreditsUseCase) Execute(ctx context.Context) (CreditRetryResult, error) {
	var result CreditRetryResult

	var afterID uint
	for {
		waiting, err := uc.paymentRepo.ListCreditPending(ctx, afterID, uc.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list payments awaiting credit: %w", err)
		}
		if len(waiting) == 0 {
			break
		}
		if afterID == 0 {
			uc.logger.Infow("retrying pending vote credits", "first_page", len(waiting))
		}
		afterID = waiting[len(waiting)-1].ID()

		for _, p := range waiting {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Attempted++
			settled, err := uc.settler.Settle(ctx, p)
			if err != nil {
				result.Failed++
				continue
			}
			if settled {
				result.Settled++
			}
		}
		if uc.batchSize <= 0 || len(waiting) < uc.batchSize {
			break
		}
	}

	if result.Settled > 0 || result.Failed > 0 {
		uc.logger.Infow("vote credit retry finished",
			"settled", result.Settled,
			"failed", result.Failed,
			"total", result.Attempted,
		)
	}
	return result, nil
}
