package blockchain

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
)

// VerifiedTransfer is a chain-agnostic view of one USDT transfer. Addresses stay in the
// chain's native encoding and are not comparable across networks.
type VerifiedTransfer struct {
	Network          vo.Network
	TxHash           string
	FromAddress      string
	ToAddress        string
	AmountMinorUnits *big.Int
	AmountUSD        decimal.Decimal
	BlockNumber      uint64
	Confirmations    uint64
	Success          bool
}

// Observation converts the transfer into what the ledger records.
func (t *VerifiedTransfer) Observation() payment.Observation {
	return payment.Observation{
		FromAddress:   t.FromAddress,
		ToAddress:     t.ToAddress,
		AmountMinor:   t.AmountMinorUnits,
		AmountUSD:     t.AmountUSD,
		BlockNumber:   t.BlockNumber,
		Confirmations: t.Confirmations,
	}
}

// TransferFetcher reads a transaction from chain. It is read-only.
//
// Errors wrap the payment package sentinels: ErrTxNotFound and ErrChainUnavailable are
// retryable, ErrDecode, ErrNoTransferEvent and ErrTxFailed are final.
type TransferFetcher interface {
	FetchTransfer(ctx context.Context, network vo.Network, txHash string) (*VerifiedTransfer, error)
}

// NewVerifiedTransfer fills AmountUSD from the minor units using the network's token decimals.
func NewVerifiedTransfer(network vo.Network, txHash, from, to string, amountMinor *big.Int, blockNumber, confirmations uint64) *VerifiedTransfer {
	return &VerifiedTransfer{
		Network:          network,
		TxHash:           txHash,
		FromAddress:      from,
		ToAddress:        to,
		AmountMinorUnits: amountMinor,
		AmountUSD:        vo.MinorUnitsToUSD(network, amountMinor),
		BlockNumber:      blockNumber,
		Confirmations:    confirmations,
		Success:          true,
	}
}

// Confirmations is head minus inclusion block, floored at zero when the node's head lags.
func Confirmations(head, block uint64) uint64 {
	if head <= block {
		return 0
	}
	return head - block
}
