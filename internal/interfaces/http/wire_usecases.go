package http

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/usdtvote/internal/application/payment/usecases"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/config"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// allUseCases holds all use case instances used by the application.
type allUseCases struct {
	verifyUC       *usecases.VerifyPaymentUseCase
	createIntentUC *usecases.CreateDepositIntentUseCase
	retryCreditsUC *usecases.RetryPendingCreditsUseCase
	reconcileUC    *usecases.ReconcilePendingUseCase
}

// ============================================================
// Section 3: Use cases
// ============================================================

func (c *Container) initUseCases() error {
	policy, err := PaymentPolicyFromConfig(c.cfg)
	if err != nil {
		return err
	}

	paymentLog := logger.WithComponent("payment")
	settler := usecases.NewCreditSettler(
		c.repos.paymentRepo,
		c.repos.voteLedger,
		c.repos.txManager,
		c.metrics,
		paymentLog,
	)

	verifyUC := usecases.NewVerifyPaymentUseCase(
		c.repos.paymentRepo,
		c.repos.intentRepo,
		c.fetcher,
		settler,
		policy,
		c.metrics,
		paymentLog,
	)
	retryCreditsUC := usecases.NewRetryPendingCreditsUseCase(
		c.repos.paymentRepo,
		settler,
		c.cfg.Sweeper.BatchSize,
		paymentLog,
	)

	c.ucs = &allUseCases{
		verifyUC:       verifyUC,
		createIntentUC: usecases.NewCreateDepositIntentUseCase(c.repos.intentRepo, policy, paymentLog),
		retryCreditsUC: retryCreditsUC,
		reconcileUC: usecases.NewReconcilePendingUseCase(
			c.repos.paymentRepo,
			verifyUC,
			retryCreditsUC,
			usecases.ReconcileConfig{
				BatchSize: c.cfg.Sweeper.BatchSize,
				Workers:   c.cfg.Sweeper.Workers,
			},
			c.metrics,
			logger.WithComponent("sweeper"),
		),
	}
	return nil
}

// PaymentPolicyFromConfig builds the verification policy from the chains and voting sections.
func PaymentPolicyFromConfig(cfg *config.Config) (usecases.PaymentPolicy, error) {
	unitPrice, err := decimal.NewFromString(cfg.Voting.VoteUnitPrice)
	if err != nil {
		return usecases.PaymentPolicy{}, fmt.Errorf("invalid voting.vote_unit_price %q: %w", cfg.Voting.VoteUnitPrice, err)
	}
	tolerance, err := decimal.NewFromString(cfg.Voting.AmountTolerance)
	if err != nil {
		return usecases.PaymentPolicy{}, fmt.Errorf("invalid voting.amount_tolerance %q: %w", cfg.Voting.AmountTolerance, err)
	}

	return usecases.NewPaymentPolicy(map[vo.Network]usecases.ChainSettings{
		vo.NetworkBSC: {
			DepositAddress:        cfg.Chains.BSC.DepositAddress,
			RequiredConfirmations: cfg.Chains.BSC.RequiredConfirmations,
			ExplorerTxURL:         cfg.Chains.BSC.ExplorerTxURL,
		},
		vo.NetworkTRON: {
			DepositAddress:        cfg.Chains.Tron.DepositAddress,
			RequiredConfirmations: cfg.Chains.Tron.RequiredConfirmations,
			ExplorerTxURL:         cfg.Chains.Tron.ExplorerTxURL,
		},
	}, unitPrice, tolerance)
}
