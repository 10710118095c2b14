package decode

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
)

const (
	usdtTronBase58 = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	usdtTronHex    = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
	zeroTronBase58 = "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb"
)

func transferCall(to []byte, amount *big.Int) []byte {
	data := append([]byte{}, TransferMethodSelector...)
	data = append(data, common.LeftPadBytes(to, 32)...)
	return append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
}

func TestTransferMethodSelector(t *testing.T) {
	assert.Equal(t, "a9059cbb", hex.EncodeToString(TransferMethodSelector))
}

func TestTronAddressRoundTrip(t *testing.T) {
	b58, err := TronHexToBase58(usdtTronHex)
	require.NoError(t, err)
	assert.Equal(t, usdtTronBase58, b58)

	h, err := TronBase58ToHex(usdtTronBase58)
	require.NoError(t, err)
	assert.Equal(t, usdtTronHex, h)

	zero, err := TronHexToBase58("410000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, zeroTronBase58, zero)
}

func TestTronHexToBase58_AcceptsBare20Bytes(t *testing.T) {
	b58, err := TronHexToBase58(usdtTronHex[2:])
	require.NoError(t, err)
	assert.Equal(t, usdtTronBase58, b58)
}

func TestDecodeTronAddress_Errors(t *testing.T) {
	tests := map[string]string{
		"bad checksum":   "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u",
		"not base58":     "T0OIl",
		"bitcoin prefix": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
	}
	for name, addr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTronAddress(addr)
			assert.ErrorIs(t, err, payment.ErrDecode)
		})
	}

	_, err := TronHexToBase58("41abcd")
	assert.ErrorIs(t, err, payment.ErrDecode)
}

func TestTRC20TransferCall(t *testing.T) {
	recipient, err := DecodeTronAddress(usdtTronBase58)
	require.NoError(t, err)

	got, err := TRC20TransferCall(transferCall(recipient, big.NewInt(2_000_000)))
	require.NoError(t, err)
	assert.Equal(t, usdtTronBase58, got.To)
	assert.Equal(t, int64(2_000_000), got.Amount.Int64())
}

func TestTRC20TransferCall_Rejects(t *testing.T) {
	recipient, err := DecodeTronAddress(usdtTronBase58)
	require.NoError(t, err)
	valid := transferCall(recipient, big.NewInt(1))

	t.Run("short payload", func(t *testing.T) {
		_, err := TRC20TransferCall(valid[:67])
		assert.ErrorIs(t, err, payment.ErrDecode)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := TRC20TransferCall(nil)
		assert.ErrorIs(t, err, payment.ErrDecode)
	})

	t.Run("approve selector", func(t *testing.T) {
		approve := append([]byte{0x09, 0x5e, 0xa7, 0xb3}, valid[4:]...)
		_, err := TRC20TransferCall(approve)
		assert.ErrorIs(t, err, payment.ErrNoTransferEvent)
		assert.NotErrorIs(t, err, payment.ErrDecode)
	})
}

func TestTRC20TransferCallHex(t *testing.T) {
	recipient, err := DecodeTronAddress(zeroTronBase58)
	require.NoError(t, err)
	dataHex := hex.EncodeToString(transferCall(recipient, big.NewInt(5_000_000)))

	got, err := TRC20TransferCallHex(dataHex)
	require.NoError(t, err)
	assert.Equal(t, zeroTronBase58, got.To)
	assert.Equal(t, int64(5_000_000), got.Amount.Int64())

	_, err = TRC20TransferCallHex("zz")
	assert.ErrorIs(t, err, payment.ErrDecode)
}
