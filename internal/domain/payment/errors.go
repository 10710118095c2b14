package payment

import (
	"errors"

	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
)

// Chain lookup outcomes. Adapters wrap these with context; callers match with errors.Is.
var (
	// ErrTxNotFound means the transaction is not visible on chain yet. Retryable.
	ErrTxNotFound = errors.New("transaction not found on chain")
	// ErrChainUnavailable covers timeouts, transport failures and throttling. Retryable.
	ErrChainUnavailable = errors.New("chain endpoint unavailable")
	// ErrDecode means the chain returned a payload we cannot parse. Not retryable.
	ErrDecode = errors.New("malformed chain payload")
	// ErrNoTransferEvent means the transaction exists but moved no USDT.
	ErrNoTransferEvent = errors.New("no USDT transfer in transaction")
	// ErrTxFailed means the transaction was included but reverted.
	ErrTxFailed = errors.New("transaction failed on chain")
)

var (
	ErrCreditFailure       = errors.New("vote credit failed")
	ErrInvalidTransition   = errors.New("invalid payment state transition")
	ErrParticipantMismatch = errors.New("transaction already submitted for another participant")
	ErrIntentAlreadyBound  = errors.New("payment intent already bound to another transaction")
)

// IsRetryable reports whether a later attempt may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTxNotFound) || errors.Is(err, ErrChainUnavailable)
}

// RejectReasonFor maps a terminal chain lookup error onto the reason stored with the payment.
func RejectReasonFor(err error) (vo.RejectReason, bool) {
	switch {
	case errors.Is(err, ErrTxFailed):
		return vo.RejectReasonTxFailed, true
	case errors.Is(err, ErrNoTransferEvent):
		return vo.RejectReasonNoTransferEvent, true
	case errors.Is(err, ErrDecode):
		return vo.RejectReasonDecodeError, true
	default:
		return vo.RejectReasonNone, false
	}
}
