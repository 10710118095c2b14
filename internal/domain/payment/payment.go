package payment

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/shared/biztime"
)

// Metadata keys written by the payment lifecycle.
const (
	MetaRejectDetail   = "reject_detail"
	MetaCreditError    = "credit_error"
	MetaCreditAttempts = "credit_attempts"
	MetaLastCheckError = "last_check_error"
)

// Payment is one row of the payment ledger, keyed by transaction hash.
// Once confirmed, amountUSD and voteCount never change.
type Payment struct {
	id            uint
	txHash        string
	network       vo.Network
	participantID string
	intentID      *string

	expectedAmount decimal.Decimal
	amountUSD      decimal.Decimal
	amountMinor    string
	fromAddress    string
	toAddress      string
	blockNumber    uint64
	confirmations  uint64

	status       vo.PaymentStatus
	rejectReason vo.RejectReason
	voteCount    int64
	creditStatus vo.CreditStatus

	metadata map[string]any

	confirmedAt *time.Time
	version     int
	createdAt   time.Time
	updatedAt   time.Time
}

// Observation is what a chain lookup saw for the payment's transaction.
type Observation struct {
	FromAddress   string
	ToAddress     string
	AmountMinor   *big.Int
	AmountUSD     decimal.Decimal
	BlockNumber   uint64
	Confirmations uint64
}

// NewPendingPayment creates the ledger row for a first-seen transaction hash.
// txHash must already be normalized for its network.
func NewPendingPayment(txHash string, network vo.Network, participantID string, expectedAmount decimal.Decimal, intentID *string) (*Payment, error) {
	if !network.IsValid() {
		return nil, fmt.Errorf("invalid network: %s", network)
	}
	if txHash == "" {
		return nil, fmt.Errorf("tx hash is required")
	}
	if participantID == "" {
		return nil, fmt.Errorf("participant ID is required")
	}
	if !expectedAmount.IsPositive() {
		return nil, fmt.Errorf("expected amount must be positive")
	}

	now := biztime.NowUTC()
	return &Payment{
		txHash:         txHash,
		network:        network,
		participantID:  participantID,
		intentID:       intentID,
		expectedAmount: expectedAmount,
		amountUSD:      decimal.Zero,
		status:         vo.PaymentStatusPending,
		creditStatus:   vo.CreditStatusNone,
		metadata:       make(map[string]any),
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// RecordObservation stores the latest on-chain view of a still-pending payment.
func (p *Payment) RecordObservation(obs Observation) error {
	if !p.status.IsPending() {
		return fmt.Errorf("%w: cannot record observation on %s payment", ErrInvalidTransition, p.status)
	}
	p.applyObservation(obs)
	p.touch()
	return nil
}

// Confirm moves a pending payment to confirmed with its frozen vote count and queues the vote credit.
func (p *Payment) Confirm(obs Observation, voteCount int64) error {
	if !p.status.IsPending() {
		return fmt.Errorf("%w: cannot confirm %s payment", ErrInvalidTransition, p.status)
	}
	if voteCount < 0 {
		return fmt.Errorf("vote count must not be negative")
	}

	p.applyObservation(obs)
	now := biztime.NowUTC()
	p.status = vo.PaymentStatusConfirmed
	p.voteCount = voteCount
	p.creditStatus = vo.CreditStatusPending
	if voteCount == 0 {
		p.creditStatus = vo.CreditStatusCredited
	}
	p.confirmedAt = &now
	delete(p.metadata, MetaLastCheckError)
	p.touch()
	return nil
}

// Reject moves a pending payment to rejected. obs may be nil when nothing was decoded.
func (p *Payment) Reject(reason vo.RejectReason, detail string, obs *Observation) error {
	if !p.status.IsPending() {
		return fmt.Errorf("%w: cannot reject %s payment", ErrInvalidTransition, p.status)
	}
	if !reason.IsValid() {
		return fmt.Errorf("invalid reject reason: %q", reason)
	}

	if obs != nil {
		p.applyObservation(*obs)
	}
	p.status = vo.PaymentStatusRejected
	p.rejectReason = reason
	if detail != "" {
		p.metadata[MetaRejectDetail] = detail
	}
	delete(p.metadata, MetaLastCheckError)
	p.touch()
	return nil
}

// NoteCheckError remembers why the last verification attempt could not reach a verdict.
func (p *Payment) NoteCheckError(msg string) {
	p.metadata[MetaLastCheckError] = msg
	p.updatedAt = biztime.NowUTC()
}

// BelongsTo reports whether the payment was submitted for participantID.
func (p *Payment) BelongsTo(participantID string) bool {
	return p.participantID == participantID
}

func (p *Payment) applyObservation(obs Observation) {
	p.fromAddress = obs.FromAddress
	p.toAddress = obs.ToAddress
	if obs.AmountMinor != nil {
		p.amountMinor = obs.AmountMinor.String()
	}
	p.amountUSD = obs.AmountUSD
	p.blockNumber = obs.BlockNumber
	p.confirmations = obs.Confirmations
}

func (p *Payment) touch() {
	p.updatedAt = biztime.NowUTC()
	p.version++
}

func (p *Payment) ID() uint                        { return p.id }
func (p *Payment) TxHash() string                  { return p.txHash }
func (p *Payment) Network() vo.Network             { return p.network }
func (p *Payment) ParticipantID() string           { return p.participantID }
func (p *Payment) IntentID() *string               { return p.intentID }
func (p *Payment) ExpectedAmount() decimal.Decimal { return p.expectedAmount }
func (p *Payment) AmountUSD() decimal.Decimal      { return p.amountUSD }
func (p *Payment) AmountMinor() string             { return p.amountMinor }
func (p *Payment) FromAddress() string             { return p.fromAddress }
func (p *Payment) ToAddress() string               { return p.toAddress }
func (p *Payment) BlockNumber() uint64             { return p.blockNumber }
func (p *Payment) Confirmations() uint64           { return p.confirmations }
func (p *Payment) Status() vo.PaymentStatus        { return p.status }
func (p *Payment) RejectReason() vo.RejectReason   { return p.rejectReason }
func (p *Payment) VoteCount() int64                { return p.voteCount }
func (p *Payment) CreditStatus() vo.CreditStatus   { return p.creditStatus }
func (p *Payment) ConfirmedAt() *time.Time         { return p.confirmedAt }
func (p *Payment) Version() int                    { return p.version }
func (p *Payment) CreatedAt() time.Time            { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time            { return p.updatedAt }

// Metadata returns a copy of the metadata map.
func (p *Payment) Metadata() map[string]any {
	out := make(map[string]any, len(p.metadata))
	for k, v := range p.metadata {
		out[k] = v
	}
	return out
}

func (p *Payment) SetID(id uint) {
	p.id = id
}

// PaymentReconstructParams carries persisted state back into a Payment.
type PaymentReconstructParams struct {
	ID             uint
	TxHash         string
	Network        vo.Network
	ParticipantID  string
	IntentID       *string
	ExpectedAmount decimal.Decimal
	AmountUSD      decimal.Decimal
	AmountMinor    string
	FromAddress    string
	ToAddress      string
	BlockNumber    uint64
	Confirmations  uint64
	Status         vo.PaymentStatus
	RejectReason   vo.RejectReason
	VoteCount      int64
	CreditStatus   vo.CreditStatus
	Metadata       map[string]any
	ConfirmedAt    *time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructPayment(params PaymentReconstructParams) *Payment {
	metadata := params.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Payment{
		id:             params.ID,
		txHash:         params.TxHash,
		network:        params.Network,
		participantID:  params.ParticipantID,
		intentID:       params.IntentID,
		expectedAmount: params.ExpectedAmount,
		amountUSD:      params.AmountUSD,
		amountMinor:    params.AmountMinor,
		fromAddress:    params.FromAddress,
		toAddress:      params.ToAddress,
		blockNumber:    params.BlockNumber,
		confirmations:  params.Confirmations,
		status:         params.Status,
		rejectReason:   params.RejectReason,
		voteCount:      params.VoteCount,
		creditStatus:   params.CreditStatus,
		metadata:       metadata,
		confirmedAt:    params.ConfirmedAt,
		version:        params.Version,
		createdAt:      params.CreatedAt,
		updatedAt:      params.UpdatedAt,
	}
}
