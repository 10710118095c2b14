package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/shared/id"
)

const testTronDeposit = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

func TestNewIntent(t *testing.T) {
	in, err := NewIntent("participant-1", vo.NetworkTRON, 3, d("2.5"), testTronDeposit)
	require.NoError(t, err)

	assert.True(t, id.HasPrefix(in.ID(), id.PrefixPaymentIntent))
	assert.True(t, d("7.5").Equal(in.ExpectedAmount()))
	assert.Equal(t, vo.PaymentStatusPending, in.Status())
	assert.Nil(t, in.TxHash())
}

func TestNewIntent_Validation(t *testing.T) {
	_, err := NewIntent("", vo.NetworkTRON, 1, d("1"), testTronDeposit)
	assert.Error(t, err)
	_, err = NewIntent("p", vo.NetworkTRON, 0, d("1"), testTronDeposit)
	assert.Error(t, err)
	_, err = NewIntent("p", vo.NetworkBSC, 1, d("1"), testTronDeposit)
	assert.Error(t, err, "TRON address is not a BSC deposit address")
}

func TestIntent_BindAndResolve(t *testing.T) {
	in, err := NewIntent("p", vo.NetworkTRON, 1, d("1"), testTronDeposit)
	require.NoError(t, err)

	require.NoError(t, in.BindTransaction("aa"))
	require.NoError(t, in.BindTransaction("aa"))
	assert.ErrorIs(t, in.BindTransaction("bb"), ErrIntentAlreadyBound)

	require.NoError(t, in.Resolve(vo.PaymentStatusConfirmed))
	require.NoError(t, in.Resolve(vo.PaymentStatusConfirmed))
	assert.ErrorIs(t, in.Resolve(vo.PaymentStatusRejected), ErrInvalidTransition)
}
