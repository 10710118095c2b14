package mappers

import (
	"fmt"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
)

func PaymentToModel(p *payment.Payment) *models.PaymentLedgerModel {
	model := &models.PaymentLedgerModel{
		ID:             p.ID(),
		TxHash:         p.TxHash(),
		Network:        p.Network().String(),
		ParticipantID:  p.ParticipantID(),
		IntentID:       p.IntentID(),
		ExpectedAmount: p.ExpectedAmount(),
		AmountUSD:      p.AmountUSD(),
		AmountMinor:    p.AmountMinor(),
		FromAddress:    p.FromAddress(),
		ToAddress:      p.ToAddress(),
		BlockNumber:    p.BlockNumber(),
		Confirmations:  p.Confirmations(),
		Status:         p.Status().String(),
		RejectReason:   p.RejectReason().String(),
		VoteCount:      p.VoteCount(),
		CreditStatus:   p.CreditStatus().String(),
		ConfirmedAt:    p.ConfirmedAt(),
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}

	if md := p.Metadata(); len(md) > 0 {
		model.Metadata = md
	}

	return model
}

func PaymentToDomain(model *models.PaymentLedgerModel) (*payment.Payment, error) {
	network, err := vo.NewNetwork(model.Network)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", model.TxHash, err)
	}

	status := vo.PaymentStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("payment %s: invalid status %q", model.TxHash, model.Status)
	}

	creditStatus := vo.CreditStatus(model.CreditStatus)
	if !creditStatus.IsValid() {
		return nil, fmt.Errorf("payment %s: invalid credit status %q", model.TxHash, model.CreditStatus)
	}

	return payment.ReconstructPayment(payment.PaymentReconstructParams{
		ID:             model.ID,
		TxHash:         model.TxHash,
		Network:        network,
		ParticipantID:  model.ParticipantID,
		IntentID:       model.IntentID,
		ExpectedAmount: model.ExpectedAmount,
		AmountUSD:      model.AmountUSD,
		AmountMinor:    model.AmountMinor,
		FromAddress:    model.FromAddress,
		ToAddress:      model.ToAddress,
		BlockNumber:    model.BlockNumber,
		Confirmations:  model.Confirmations,
		Status:         status,
		RejectReason:   vo.RejectReason(model.RejectReason),
		VoteCount:      model.VoteCount,
		CreditStatus:   creditStatus,
		Metadata:       model.Metadata,
		ConfirmedAt:    model.ConfirmedAt,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}), nil
}
