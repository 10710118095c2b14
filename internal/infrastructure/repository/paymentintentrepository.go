package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
	"github.com/orris-inc/usdtvote/internal/shared/biztime"
	"github.com/orris-inc/usdtvote/internal/shared/db"
)

type PaymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

var _ payment.IntentRepository = (*PaymentIntentRepository)(nil)

func (r *PaymentIntentRepository) Create(ctx context.Context, intent *payment.Intent) error {
	model := mappers.IntentToModel(intent)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

func (r *PaymentIntentRepository) GetByID(ctx context.Context, id string) (*payment.Intent, error) {
	var model models.PaymentIntentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	return mappers.IntentToDomain(&model)
}

// BindTransaction is conditional on the stored tx_hash, so two requests racing to spend one
// intent on different transactions cannot both win.
func (r *PaymentIntentRepository) BindTransaction(ctx context.Context, id, txHash string) (bool, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.PaymentIntentModel{}).
		Where("id = ? AND (tx_hash IS NULL OR tx_hash = ?)", id, txHash).
		Updates(map[string]interface{}{
			"tx_hash":    txHash,
			"updated_at": biztime.NowUTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to bind payment intent: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Zero rows is either a foreign hash or a missing intent; MySQL also reports zero when nothing changed.
	var model models.PaymentIntentModel
	if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return model.TxHash != nil && *model.TxHash == txHash, nil
}

// Update writes the intent's status. The bound transaction only changes through BindTransaction.
func (r *PaymentIntentRepository) Update(ctx context.Context, intent *payment.Intent) error {
	model := mappers.IntentToModel(intent)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentIntentModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":     model.Status,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update payment intent: %w", result.Error)
	}

	// RowsAffected may be 0 when the stored values already match.
	return nil
}
