package handlers

import (
	"context"

	"github.com/orris-inc/usdtvote/internal/application/payment/dto"
	"github.com/orris-inc/usdtvote/internal/application/payment/usecases"
)

// Use case interfaces for PaymentHandler and AdminHandler

type verifyPaymentUseCase interface {
	Execute(ctx context.Context, cmd usecases.VerifyPaymentCommand) (*dto.VerificationResult, error)
	GetPayment(ctx context.Context, network, txHash string) (*dto.PaymentDTO, error)
}

type createDepositIntentUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateDepositIntentCommand) (*dto.DepositIntentDTO, error)
}

type reconcilePendingUseCase interface {
	Execute(ctx context.Context) (*dto.ReconcileSummary, error)
}

// healthChecker is satisfied by *sql.DB.
type healthChecker interface {
	PingContext(ctx context.Context) error
}
