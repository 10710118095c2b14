package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
	"github.com/orris-inc/usdtvote/internal/shared/biztime"
	"github.com/orris-inc/usdtvote/internal/shared/db"
)

// PaymentLedgerRepository is the gorm implementation of payment.PaymentRepository.
// Every transition out of pending is a conditional UPDATE so concurrent verifiers of the
// same tx hash converge on one winner.
type PaymentLedgerRepository struct {
	db *gorm.DB
}

func NewPaymentLedgerRepository(db *gorm.DB) *PaymentLedgerRepository {
	return &PaymentLedgerRepository{db: db}
}

var _ payment.PaymentRepository = (*PaymentLedgerRepository)(nil)

func (r *PaymentLedgerRepository) GetByTxHash(ctx context.Context, txHash string) (*payment.Payment, error) {
	var model models.PaymentLedgerModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("tx_hash = ?", txHash).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment by tx_hash: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentLedgerRepository) CreateIfAbsent(ctx context.Context, p *payment.Payment) (*payment.Payment, bool, error) {
	model := mappers.PaymentToModel(p)

	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create payment: %w", result.Error)
	}

	if result.RowsAffected == 1 {
		p.SetID(model.ID)
		return p, true, nil
	}

	stored, err := r.GetByTxHash(ctx, p.TxHash())
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("payment %s vanished after insert conflict", p.TxHash())
	}
	return stored, false, nil
}

func (r *PaymentLedgerRepository) UpdatePending(ctx context.Context, p *payment.Payment) (bool, error) {
	model := mappers.PaymentToModel(p)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentLedgerModel{}).
		Where("tx_hash = ? AND status = ?", model.TxHash, vo.PaymentStatusPending.String()).
		Updates(map[string]interface{}{
			"amount_usd":    model.AmountUSD,
			"amount_minor":  model.AmountMinor,
			"from_address":  model.FromAddress,
			"to_address":    model.ToAddress,
			"block_number":  model.BlockNumber,
			"confirmations": model.Confirmations,
			"metadata":      model.Metadata,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update pending payment: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// MySQL reports zero affected rows when nothing changed; tell that apart from a lost race.
	stored, err := r.GetByTxHash(ctx, model.TxHash)
	if err != nil {
		return false, err
	}
	return stored != nil && stored.Status().IsPending(), nil
}

func (r *PaymentLedgerRepository) FinalizeFromPending(ctx context.Context, p *payment.Payment) (bool, error) {
	if !p.Status().IsFinal() {
		return false, fmt.Errorf("%w: finalize called with %s payment", payment.ErrInvalidTransition, p.Status())
	}
	model := mappers.PaymentToModel(p)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentLedgerModel{}).
		Where("tx_hash = ? AND status = ?", model.TxHash, vo.PaymentStatusPending.String()).
		Updates(map[string]interface{}{
			"status":        model.Status,
			"reject_reason": model.RejectReason,
			"vote_count":    model.VoteCount,
			"credit_status": model.CreditStatus,
			"amount_usd":    model.AmountUSD,
			"amount_minor":  model.AmountMinor,
			"from_address":  model.FromAddress,
			"to_address":    model.ToAddress,
			"block_number":  model.BlockNumber,
			"confirmations": model.Confirmations,
			"metadata":      model.Metadata,
			"confirmed_at":  model.ConfirmedAt,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to finalize payment: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *PaymentLedgerRepository) ListPending(ctx context.Context, afterID uint, limit int) ([]*payment.Payment, error) {
	var ledgerModels []models.PaymentLedgerModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ?", vo.PaymentStatusPending.String()).
		Scopes(db.AfterID(afterID), db.InsertionOrder(), db.Limit(limit)).
		Find(&ledgerModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}

	return toDomainPayments(ledgerModels)
}

func (r *PaymentLedgerRepository) ListCreditPending(ctx context.Context, afterID uint, limit int) ([]*payment.Payment, error) {
	var ledgerModels []models.PaymentLedgerModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND credit_status = ?", vo.PaymentStatusConfirmed.String(), vo.CreditStatusPending.String()).
		Scopes(db.AfterID(afterID), db.InsertionOrder(), db.Limit(limit)).
		Find(&ledgerModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments awaiting credit: %w", err)
	}

	return toDomainPayments(ledgerModels)
}

func (r *PaymentLedgerRepository) ClaimCredit(ctx context.Context, txHash string) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentLedgerModel{}).
		Where("tx_hash = ? AND status = ? AND credit_status = ?",
			txHash, vo.PaymentStatusConfirmed.String(), vo.CreditStatusPending.String()).
		Updates(map[string]interface{}{
			"credit_status": vo.CreditStatusCredited.String(),
			"updated_at":    biztime.NowUTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim vote credit: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *PaymentLedgerRepository) RecordCreditFailure(ctx context.Context, txHash string, reason string) error {
	var model models.PaymentLedgerModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("tx_hash = ?", txHash).First(&model).Error; err != nil {
		return fmt.Errorf("failed to load payment for credit failure: %w", err)
	}

	metadata := model.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata[payment.MetaCreditError] = reason
	metadata[payment.MetaCreditAttempts] = creditAttempts(metadata[payment.MetaCreditAttempts]) + 1

	if err := tx.Model(&models.PaymentLedgerModel{}).
		Where("tx_hash = ? AND credit_status = ?", txHash, vo.CreditStatusPending.String()).
		Updates(map[string]interface{}{
			"metadata":   metadata,
			"updated_at": biztime.NowUTC(),
		}).Error; err != nil {
		return fmt.Errorf("failed to record credit failure: %w", err)
	}
	return nil
}

// creditAttempts reads the counter back from JSON, where numbers decode as float64.
func creditAttempts(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toDomainPayments(ledgerModels []models.PaymentLedgerModel) ([]*payment.Payment, error) {
	payments := make([]*payment.Payment, len(ledgerModels))
	for i := range ledgerModels {
		p, err := mappers.PaymentToDomain(&ledgerModels[i])
		if err != nil {
			return nil, err
		}
		payments[i] = p
	}
	return payments, nil
}
