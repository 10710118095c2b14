package valueobjects

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// MinorUnitsToUSD scales an on-chain USDT amount to dollars, assuming USDT trades 1:1 with USD.
func MinorUnitsToUSD(network Network, minor *big.Int) decimal.Decimal {
	if minor == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(minor, -network.TokenDecimals())
}

// USDToMinorUnits is the inverse of MinorUnitsToUSD, truncating anything finer than the token precision.
func USDToMinorUnits(network Network, usd decimal.Decimal) *big.Int {
	return usd.Shift(network.TokenDecimals()).Truncate(0).BigInt()
}
