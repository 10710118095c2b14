package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/orris-inc/usdtvote/internal/shared/constants"
)

// PaymentLedgerModel is one verified (or in-flight) USDT payment. tx_hash is unique at the
// storage layer; concurrent writers converge through it.
type PaymentLedgerModel struct {
	ID             uint            `gorm:"primaryKey"`
	TxHash         string          `gorm:"uniqueIndex:uk_payment_ledger_tx_hash;size:80;not null"`
	Network        string          `gorm:"size:10;not null;index"`
	ParticipantID  string          `gorm:"size:64;not null;index"`
	IntentID       *string         `gorm:"size:64;index"`
	ExpectedAmount decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	AmountUSD      decimal.Decimal `gorm:"column:amount_usd;type:decimal(38,18);not null;default:0"`
	AmountMinor    string          `gorm:"size:80"`
	FromAddress    string          `gorm:"size:64"`
	ToAddress      string          `gorm:"size:64"`
	BlockNumber    uint64          `gorm:"not null;default:0"`
	Confirmations  uint64          `gorm:"not null;default:0"`
	Status         string          `gorm:"size:20;not null;index:idx_payment_ledger_status_created,priority:1"`
	RejectReason   string          `gorm:"size:32"`
	VoteCount      int64           `gorm:"not null;default:0"`
	CreditStatus   string          `gorm:"size:20;not null;default:'none';index"`
	Metadata       datatypes.JSONMap
	ConfirmedAt    *time.Time
	Version        int       `gorm:"default:0"`
	CreatedAt      time.Time `gorm:"index:idx_payment_ledger_status_created,priority:2"`
	UpdatedAt      time.Time
}

func (PaymentLedgerModel) TableName() string {
	return constants.TablePaymentLedger
}
