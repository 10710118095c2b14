package dto

import (
	"time"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
)

// VerificationResult is what a verification attempt reports back to the poller.
type VerificationResult struct {
	TxHash                string  `json:"tx_hash"`
	Network               string  `json:"network"`
	ParticipantID         string  `json:"participant_id"`
	Status                string  `json:"status"`
	RejectReason          string  `json:"reject_reason,omitempty"`
	VotesCredited         *int64  `json:"votes_credited,omitempty"`
	CreditStatus          string  `json:"credit_status,omitempty"`
	AmountUSD             string  `json:"amount_usd,omitempty"`
	ExpectedAmount        string  `json:"expected_amount"`
	Confirmations         *uint64 `json:"confirmations,omitempty"`
	RequiredConfirmations int     `json:"required_confirmations"`
	ExplorerURL           string  `json:"explorer_url"`
	// Detail explains a pending or rejected outcome in plain words.
	Detail string `json:"detail,omitempty"`
	// Retryable tells the client that polling again may change the outcome.
	Retryable bool `json:"retryable"`
}

// PaymentDTO is the stored ledger row as served by the lookup endpoint.
type PaymentDTO struct {
	TxHash         string         `json:"tx_hash"`
	Network        string         `json:"network"`
	ParticipantID  string         `json:"participant_id"`
	IntentID       *string        `json:"intent_id,omitempty"`
	Status         string         `json:"status"`
	RejectReason   string         `json:"reject_reason,omitempty"`
	ExpectedAmount string         `json:"expected_amount"`
	AmountUSD      string         `json:"amount_usd"`
	AmountMinor    string         `json:"amount_minor,omitempty"`
	FromAddress    string         `json:"from_address,omitempty"`
	ToAddress      string         `json:"to_address,omitempty"`
	BlockNumber    uint64         `json:"block_number,omitempty"`
	Confirmations  uint64         `json:"confirmations"`
	VoteCount      int64          `json:"vote_count"`
	CreditStatus   string         `json:"credit_status"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ExplorerURL    string         `json:"explorer_url"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func ToPaymentDTO(p *payment.Payment, explorerURL string) *PaymentDTO {
	return &PaymentDTO{
		TxHash:         p.TxHash(),
		Network:        p.Network().String(),
		ParticipantID:  p.ParticipantID(),
		IntentID:       p.IntentID(),
		Status:         p.Status().String(),
		RejectReason:   p.RejectReason().String(),
		ExpectedAmount: p.ExpectedAmount().String(),
		AmountUSD:      p.AmountUSD().String(),
		AmountMinor:    p.AmountMinor(),
		FromAddress:    p.FromAddress(),
		ToAddress:      p.ToAddress(),
		BlockNumber:    p.BlockNumber(),
		Confirmations:  p.Confirmations(),
		VoteCount:      p.VoteCount(),
		CreditStatus:   p.CreditStatus().String(),
		Metadata:       p.Metadata(),
		ExplorerURL:    explorerURL,
		ConfirmedAt:    p.ConfirmedAt(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
}

// DepositIntentDTO tells the client where and how much to pay.
type DepositIntentDTO struct {
	IntentID              string    `json:"intent_id"`
	ParticipantID         string    `json:"participant_id"`
	Network               string    `json:"network"`
	DepositAddress        string    `json:"deposit_address"`
	VoteCount             int64     `json:"vote_count"`
	Amount                string    `json:"amount"`
	Decimals              int32     `json:"decimals"`
	RequiredConfirmations int       `json:"required_confirmations"`
	CreatedAt             time.Time `json:"created_at"`
}

// ReconcileSummary counts the outcomes of one sweep pass plus the credit retry after it.
type ReconcileSummary struct {
	Scanned         int           `json:"scanned"`
	Confirmed       int           `json:"confirmed"`
	Rejected        int           `json:"rejected"`
	StillPending    int           `json:"still_pending"`
	Errors          int           `json:"errors"`
	CreditsRetried  int           `json:"credits_retried"`
	CreditsSettled  int           `json:"credits_settled"`
	CreditsFailed   int           `json:"credits_failed"`
	Duration        time.Duration `json:"-"`
	DurationSeconds float64       `json:"duration_seconds"`
}
