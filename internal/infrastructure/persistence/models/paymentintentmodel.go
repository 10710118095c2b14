package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/usdtvote/internal/shared/constants"
)

type PaymentIntentModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	ParticipantID  string          `gorm:"size:64;not null;index"`
	Network        string          `gorm:"size:10;not null"`
	VoteCount      int64           `gorm:"not null"`
	ExpectedAmount decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	DepositAddress string          `gorm:"size:64;not null"`
	Status         string          `gorm:"size:20;not null;index"`
	TxHash         *string         `gorm:"size:80;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PaymentIntentModel) TableName() string {
	return constants.TablePaymentIntents
}
