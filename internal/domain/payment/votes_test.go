package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeVotes(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		unitPrice string
		want      int64
	}{
		{"floors partial vote", "4.99", "2", 2},
		{"exact multiple", "10", "1", 10},
		{"slight overpayment never rounds up", "9.995", "1", 9},
		{"below one vote", "0.5", "1", 0},
		{"eighteen decimals just under boundary", "5.999999999999999999", "2", 2},
		{"fractional unit price", "1.00", "0.25", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeVotes(d(tt.amount), d(tt.unitPrice))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeVotes_RejectsBadInput(t *testing.T) {
	_, err := ComputeVotes(d("1"), decimal.Zero)
	assert.Error(t, err)

	_, err = ComputeVotes(d("-1"), d("1"))
	assert.Error(t, err)
}

func TestAmountWithinTolerance(t *testing.T) {
	expected := d("10.00")

	assert.True(t, AmountWithinTolerance(d("9.995"), expected, DefaultAmountTolerance))
	assert.True(t, AmountWithinTolerance(d("10.01"), expected, DefaultAmountTolerance))
	assert.True(t, AmountWithinTolerance(d("9.99"), expected, DefaultAmountTolerance))
	assert.False(t, AmountWithinTolerance(d("9.98"), expected, DefaultAmountTolerance))
	assert.False(t, AmountWithinTolerance(d("10.02"), expected, DefaultAmountTolerance))
}

func TestExpectedAmount(t *testing.T) {
	assert.True(t, d("7.5").Equal(ExpectedAmount(3, d("2.5"))))
}
