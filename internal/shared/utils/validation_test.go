package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orris-inc/usdtvote/internal/shared/errors"
)

type verifyInput struct {
	TxHash  string `json:"tx_hash" validate:"required,txhash"`
	Network string `json:"network" validate:"required,network"`
	Amount  string `json:"expected_amount" validate:"omitempty,usd"`
	Votes   int64  `json:"vote_count" validate:"omitempty,min=1"`
}

func TestValidateStruct(t *testing.T) {
	hash := strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		in      verifyInput
		wantErr string
	}{
		{name: "tron id", in: verifyInput{TxHash: hash, Network: "tron"}},
		{name: "bsc hash", in: verifyInput{TxHash: "0x" + hash, Network: "BSC", Amount: "10.5"}},
		{name: "missing hash", in: verifyInput{Network: "BSC"}, wantErr: "tx_hash is required"},
		{name: "short hash", in: verifyInput{TxHash: "0x1234", Network: "BSC"}, wantErr: "tx_hash must be 64 hex characters"},
		{name: "unknown network", in: verifyInput{TxHash: hash, Network: "ETH"}, wantErr: "network must be one of [BSC TRON]"},
		{name: "negative amount", in: verifyInput{TxHash: hash, Network: "BSC", Amount: "-1"}, wantErr: "expected_amount must be a positive decimal amount"},
		{name: "zero votes ignored", in: verifyInput{TxHash: hash, Network: "BSC", Votes: 0}},
		{name: "negative votes", in: verifyInput{TxHash: hash, Network: "BSC", Votes: -2}, wantErr: "vote_count must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsValidationError(err))
			assert.Contains(t, errors.GetAppError(err).Details, tt.wantErr)
		})
	}
}
