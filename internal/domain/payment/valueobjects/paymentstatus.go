package valueobjects

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusRejected:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) IsPending() bool {
	return s == PaymentStatusPending
}

func (s PaymentStatus) IsConfirmed() bool {
	return s == PaymentStatusConfirmed
}

// IsFinal reports a terminal state. Nothing transitions out of a final state.
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusRejected
}

func (s PaymentStatus) String() string {
	return string(s)
}
