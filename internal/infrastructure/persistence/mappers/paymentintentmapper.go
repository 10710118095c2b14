package mappers

import (
	"fmt"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
)

func IntentToModel(i *payment.Intent) *models.PaymentIntentModel {
	return &models.PaymentIntentModel{
		ID:             i.ID(),
		ParticipantID:  i.ParticipantID(),
		Network:        i.Network().String(),
		VoteCount:      i.VoteCount(),
		ExpectedAmount: i.ExpectedAmount(),
		DepositAddress: i.DepositAddress(),
		Status:         i.Status().String(),
		TxHash:         i.TxHash(),
		CreatedAt:      i.CreatedAt(),
		UpdatedAt:      i.UpdatedAt(),
	}
}

func IntentToDomain(model *models.PaymentIntentModel) (*payment.Intent, error) {
	network, err := vo.NewNetwork(model.Network)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", model.ID, err)
	}
	status := vo.PaymentStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("intent %s: invalid status %q", model.ID, model.Status)
	}

	return payment.ReconstructIntent(payment.IntentReconstructParams{
		ID:             model.ID,
		ParticipantID:  model.ParticipantID,
		Network:        network,
		VoteCount:      model.VoteCount,
		ExpectedAmount: model.ExpectedAmount,
		DepositAddress: model.DepositAddress,
		Status:         status,
		TxHash:         model.TxHash,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}), nil
}
