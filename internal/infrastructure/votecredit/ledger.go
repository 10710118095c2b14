// Package votecredit is the participant vote ledger that confirmed payments are credited to.
package votecredit

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
	"github.com/orris-inc/usdtvote/internal/shared/biztime"
	"github.com/orris-inc/usdtvote/internal/shared/db"
)

// Ledger keeps per-participant vote totals. Participants are created on their first credit.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// IncrementVotes adds count votes to participantID. It joins the transaction carried by ctx,
// so a rollback of the caller's transaction also undoes the increment.
func (l *Ledger) IncrementVotes(ctx context.Context, participantID string, count int64) error {
	if participantID == "" {
		return fmt.Errorf("participant ID is required")
	}
	if count <= 0 {
		return fmt.Errorf("vote increment must be positive, got %d", count)
	}

	now := biztime.NowUTC()
	row := &models.ParticipantModel{
		ID:        participantID,
		Votes:     count,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result := db.GetTxFromContext(ctx, l.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"votes":      gorm.Expr("votes + ?", count),
				"updated_at": now,
			}),
		}).
		Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to increment votes for %s: %w", participantID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("vote increment for %s affected no rows", participantID)
	}
	return nil
}

// Votes returns the participant's total, zero for an unknown participant.
func (l *Ledger) Votes(ctx context.Context, participantID string) (int64, error) {
	var row models.ParticipantModel
	err := db.GetTxFromContext(ctx, l.db).Where("id = ?", participantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read votes for %s: %w", participantID, err)
	}
	return row.Votes, nil
}
