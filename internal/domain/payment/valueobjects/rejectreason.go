package valueobjects

// RejectReason explains why a payment reached the rejected state.
type RejectReason string

const (
	RejectReasonNone            RejectReason = ""
	RejectReasonWrongRecipient  RejectReason = "WrongRecipient"
	RejectReasonAmountMismatch  RejectReason = "AmountMismatch"
	RejectReasonNoTransferEvent RejectReason = "NoTransferEvent"
	RejectReasonTxFailed        RejectReason = "TxFailed"
	RejectReasonDecodeError     RejectReason = "DecodeError"
)

func (r RejectReason) IsValid() bool {
	switch r {
	case RejectReasonWrongRecipient, RejectReasonAmountMismatch, RejectReasonNoTransferEvent,
		RejectReasonTxFailed, RejectReasonDecodeError:
		return true
	default:
		return false
	}
}

func (r RejectReason) String() string {
	return string(r)
}
