package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultAmountTolerance absorbs rounding between the quoted price and what wallets actually send.
var DefaultAmountTolerance = decimal.RequireFromString("0.01")

// ComputeVotes returns floor(amountUSD / unitPrice). Overpayment never rounds up.
func ComputeVotes(amountUSD, unitPrice decimal.Decimal) (int64, error) {
	if !unitPrice.IsPositive() {
		return 0, fmt.Errorf("vote unit price must be positive, got %s", unitPrice)
	}
	if amountUSD.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative, got %s", amountUSD)
	}
	// QuoRem keeps the quotient exact; Div would round at DivisionPrecision first.
	q, _ := amountUSD.QuoRem(unitPrice, 0)
	return q.IntPart(), nil
}

// ExpectedAmount is the USD price of voteCount votes.
func ExpectedAmount(voteCount int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(voteCount))
}

// AmountWithinTolerance reports |observed - expected| <= tolerance.
func AmountWithinTolerance(observed, expected, tolerance decimal.Decimal) bool {
	return observed.Sub(expected).Abs().LessThanOrEqual(tolerance)
}
