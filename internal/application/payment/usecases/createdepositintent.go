package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/usdtvote/internal/application/payment/dto"
	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	apperrors "github.com/orris-inc/usdtvote/internal/shared/errors"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

type CreateDepositIntentCommand struct {
	ParticipantID string
	VoteCount     int64
	Network       string
}

// CreateDepositIntentUseCase quotes the amount for a number of votes and records the intent
// that a later verification is checked against.
type CreateDepositIntentUseCase struct {
	intentRepo payment.IntentRepository
	policy     PaymentPolicy
	logger     logger.Interface
}

func NewCreateDepositIntentUseCase(
	intentRepo payment.IntentRepository,
	policy PaymentPolicy,
	logger logger.Interface,
) *CreateDepositIntentUseCase {
	return &CreateDepositIntentUseCase{
		intentRepo: intentRepo,
		policy:     policy,
		logger:     logger,
	}
}

func (uc *CreateDepositIntentUseCase) Execute(ctx context.Context, cmd CreateDepositIntentCommand) (*dto.DepositIntentDTO, error) {
	network, err := vo.NewNetwork(cmd.Network)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	settings, ok := uc.policy.settings(network)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("network %s is not enabled", network))
	}
	if cmd.VoteCount < 1 {
		return nil, apperrors.NewValidationError("vote_count must be at least 1")
	}

	intent, err := payment.NewIntent(cmd.ParticipantID, network, cmd.VoteCount, uc.policy.VoteUnitPrice, settings.DepositAddress)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := uc.intentRepo.Create(ctx, intent); err != nil {
		uc.logger.Errorw("failed to create payment intent", "error", err, "participant_id", cmd.ParticipantID)
		return nil, apperrors.NewInternalError("failed to create payment intent", err.Error())
	}

	uc.logger.Infow("payment intent created",
		"intent_id", intent.ID(),
		"participant_id", intent.ParticipantID(),
		"network", network.String(),
		"amount", intent.ExpectedAmount().String(),
	)

	return &dto.DepositIntentDTO{
		IntentID:              intent.ID(),
		ParticipantID:         intent.ParticipantID(),
		Network:               network.String(),
		DepositAddress:        intent.DepositAddress(),
		VoteCount:             intent.VoteCount(),
		Amount:                intent.ExpectedAmount().String(),
		Decimals:              network.TokenDecimals(),
		RequiredConfirmations: settings.RequiredConfirmations,
		CreatedAt:             intent.CreatedAt(),
	}, nil
}
