package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/shared/biztime"
	"github.com/orris-inc/usdtvote/internal/shared/id"
)

// Intent is an expected incoming transfer, created when a client asks where to pay.
// Intents are never deleted; their status follows the ledger row bound to them.
type Intent struct {
	id             string
	participantID  string
	network        vo.Network
	voteCount      int64
	expectedAmount decimal.Decimal
	depositAddress string
	status         vo.PaymentStatus
	txHash         *string
	createdAt      time.Time
	updatedAt      time.Time
}

func NewIntent(participantID string, network vo.Network, voteCount int64, unitPrice decimal.Decimal, depositAddress string) (*Intent, error) {
	if participantID == "" {
		return nil, fmt.Errorf("participant ID is required")
	}
	if !network.IsValid() {
		return nil, fmt.Errorf("invalid network: %s", network)
	}
	if voteCount <= 0 {
		return nil, fmt.Errorf("vote count must be positive")
	}
	if !unitPrice.IsPositive() {
		return nil, fmt.Errorf("vote unit price must be positive")
	}
	if err := network.ValidateAddress(depositAddress); err != nil {
		return nil, fmt.Errorf("deposit address: %w", err)
	}

	now := biztime.NowUTC()
	return &Intent{
		id:             id.New(id.PrefixPaymentIntent),
		participantID:  participantID,
		network:        network,
		voteCount:      voteCount,
		expectedAmount: ExpectedAmount(voteCount, unitPrice),
		depositAddress: depositAddress,
		status:         vo.PaymentStatusPending,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// BindTransaction ties the intent to the transaction that pays it. Rebinding the same hash is a no-op.
func (i *Intent) BindTransaction(txHash string) error {
	if i.txHash != nil {
		if *i.txHash == txHash {
			return nil
		}
		return ErrIntentAlreadyBound
	}
	i.txHash = &txHash
	i.updatedAt = biztime.NowUTC()
	return nil
}

// Resolve copies a terminal ledger status onto the intent.
func (i *Intent) Resolve(status vo.PaymentStatus) error {
	if i.status == status {
		return nil
	}
	if i.status.IsFinal() {
		return fmt.Errorf("%w: intent already %s", ErrInvalidTransition, i.status)
	}
	i.status = status
	i.updatedAt = biztime.NowUTC()
	return nil
}

func (i *Intent) ID() string                      { return i.id }
func (i *Intent) ParticipantID() string           { return i.participantID }
func (i *Intent) Network() vo.Network             { return i.network }
func (i *Intent) VoteCount() int64                { return i.voteCount }
func (i *Intent) ExpectedAmount() decimal.Decimal { return i.expectedAmount }
func (i *Intent) DepositAddress() string          { return i.depositAddress }
func (i *Intent) Status() vo.PaymentStatus        { return i.status }
func (i *Intent) TxHash() *string                 { return i.txHash }
func (i *Intent) CreatedAt() time.Time            { return i.createdAt }
func (i *Intent) UpdatedAt() time.Time            { return i.updatedAt }

type IntentReconstructParams struct {
	ID             string
	ParticipantID  string
	Network        vo.Network
	VoteCount      int64
	ExpectedAmount decimal.Decimal
	DepositAddress string
	Status         vo.PaymentStatus
	TxHash         *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructIntent(p IntentReconstructParams) *Intent {
	return &Intent{
		id:             p.ID,
		participantID:  p.ParticipantID,
		network:        p.Network,
		voteCount:      p.VoteCount,
		expectedAmount: p.ExpectedAmount,
		depositAddress: p.DepositAddress,
		status:         p.Status,
		txHash:         p.TxHash,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}
}
