package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/database/databasetest"
)

func TestPaymentIntentRepository(t *testing.T) {
	repo := NewPaymentIntentRepository(databasetest.Open(t))
	ctx := context.Background()

	intent, err := payment.NewIntent("alice", vo.NetworkTRON, 3, decimal.RequireFromString("1.5"), "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, intent))

	got, err := repo.GetByID(ctx, intent.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.ParticipantID())
	assert.Equal(t, vo.NetworkTRON, got.Network())
	assert.True(t, got.ExpectedAmount().Equal(decimal.RequireFromString("4.5")))
	assert.Nil(t, got.TxHash())

	txHash := "cdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd"
	bound, err := repo.BindTransaction(ctx, intent.ID(), txHash)
	require.NoError(t, err)
	assert.True(t, bound)
	require.NoError(t, got.Resolve(vo.PaymentStatusConfirmed))
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, intent.ID())
	require.NoError(t, err)
	require.NotNil(t, reloaded.TxHash())
	assert.Equal(t, txHash, *reloaded.TxHash())
	assert.Equal(t, vo.PaymentStatusConfirmed, reloaded.Status())

	missing, err := repo.GetByID(ctx, "pi_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPaymentIntentRepository_BindTransaction(t *testing.T) {
	repo := NewPaymentIntentRepository(databasetest.Open(t))
	ctx := context.Background()

	intent, err := payment.NewIntent("alice", vo.NetworkBSC, 1, decimal.NewFromInt(2), "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, intent))

	first := "0x" + strings.Repeat("a", 64)
	second := "0x" + strings.Repeat("b", 64)

	// Both callers loaded the intent unbound; only the first write lands.
	bound, err := repo.BindTransaction(ctx, intent.ID(), first)
	require.NoError(t, err)
	assert.True(t, bound)

	bound, err = repo.BindTransaction(ctx, intent.ID(), second)
	require.NoError(t, err)
	assert.False(t, bound)

	bound, err = repo.BindTransaction(ctx, intent.ID(), first)
	require.NoError(t, err)
	assert.True(t, bound, "rebinding the same hash is idempotent")

	got, err := repo.GetByID(ctx, intent.ID())
	require.NoError(t, err)
	require.NotNil(t, got.TxHash())
	assert.Equal(t, first, *got.TxHash())

	// A status update never touches the bound hash.
	require.NoError(t, got.Resolve(vo.PaymentStatusRejected))
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, intent.ID())
	require.NoError(t, err)
	assert.Equal(t, first, *got.TxHash())
	assert.Equal(t, vo.PaymentStatusRejected, got.Status())

	bound, err = repo.BindTransaction(ctx, "pi_missing", first)
	require.NoError(t, err)
	assert.False(t, bound)
}
