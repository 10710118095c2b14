package decode

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
)

var (
	fromAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	toAddr   = common.HexToAddress("0x4a1b2c3d4e5f60718293a4b5c6d7e8f901234567")
)

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(a.Bytes(), 32))
}

func amountData(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func TestTransferEventTopic(t *testing.T) {
	assert.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		TransferEventTopic.Hex())
}

func TestEVMTransferLog(t *testing.T) {
	twoUSDT, _ := new(big.Int).SetString("2000000000000000000", 10)

	tests := map[string]struct {
		topics  []common.Hash
		data    []byte
		want    *EVMTransfer
		wantErr bool
	}{
		"valid transfer": {
			topics: []common.Hash{TransferEventTopic, addressTopic(fromAddr), addressTopic(toAddr)},
			data:   amountData(twoUSDT),
			want:   &EVMTransfer{From: fromAddr, To: toAddr, Amount: twoUSDT},
		},
		"zero amount": {
			topics: []common.Hash{TransferEventTopic, addressTopic(fromAddr), addressTopic(toAddr)},
			data:   make([]byte, 32),
			want:   &EVMTransfer{From: fromAddr, To: toAddr, Amount: big.NewInt(0)},
		},
		"too few topics": {
			topics:  []common.Hash{TransferEventTopic, addressTopic(fromAddr)},
			data:    amountData(twoUSDT),
			wantErr: true,
		},
		"erc721 style four topics": {
			topics:  []common.Hash{TransferEventTopic, addressTopic(fromAddr), addressTopic(toAddr), common.BigToHash(big.NewInt(1))},
			data:    nil,
			wantErr: true,
		},
		"wrong signature": {
			topics:  []common.Hash{common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"), addressTopic(fromAddr), addressTopic(toAddr)},
			data:    amountData(twoUSDT),
			wantErr: true,
		},
		"short data": {
			topics:  []common.Hash{TransferEventTopic, addressTopic(fromAddr), addressTopic(toAddr)},
			data:    make([]byte, 31),
			wantErr: true,
		},
		"dirty address padding": {
			topics:  []common.Hash{TransferEventTopic, addressTopic(fromAddr), common.HexToHash("0x0100000000000000000000004a1b2c3d4e5f60718293a4b5c6d7e8f901234567")},
			data:    amountData(twoUSDT),
			wantErr: true,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := EVMTransferLog(tc.topics, tc.data)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, payment.ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.From, got.From)
			assert.Equal(t, tc.want.To, got.To)
			assert.Equal(t, 0, tc.want.Amount.Cmp(got.Amount))
		})
	}
}

func TestIsTransferTopic(t *testing.T) {
	assert.True(t, IsTransferTopic([]common.Hash{TransferEventTopic}))
	assert.False(t, IsTransferTopic(nil))
	assert.False(t, IsTransferTopic([]common.Hash{{}}))
}
