package valueobjects

// CreditStatus tracks the vote-credit side effect of a confirmed payment, separately from
// the payment status itself: a failed credit never un-confirms a payment.
type CreditStatus string

const (
	CreditStatusNone     CreditStatus = "none"
	CreditStatusPending  CreditStatus = "pending"
	CreditStatusCredited CreditStatus = "credited"
)

func (s CreditStatus) IsValid() bool {
	switch s {
	case CreditStatusNone, CreditStatusPending, CreditStatusCredited:
		return true
	default:
		return false
	}
}

func (s CreditStatus) String() string {
	return string(s)
}
