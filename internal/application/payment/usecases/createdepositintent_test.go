package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	apperrors "github.com/orris-inc/usdtvote/internal/shared/errors"
)

func TestCreateDepositIntent_Execute(t *testing.T) {
	f := newFixture(t)

	got, err := f.intent.Execute(context.Background(), CreateDepositIntentCommand{
		ParticipantID: "alice",
		VoteCount:     5,
		Network:       "tron",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, got.IntentID)
	assert.Equal(t, "TRON", got.Network)
	assert.Equal(t, testTRONDeposit, got.DepositAddress)
	assert.Equal(t, "10", got.Amount)
	assert.Equal(t, int32(6), got.Decimals)
	assert.Equal(t, 1, got.RequiredConfirmations)

	stored, err := f.intents.GetByID(context.Background(), got.IntentID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, vo.PaymentStatusPending, stored.Status())
	assert.Nil(t, stored.TxHash())
}

func TestCreateDepositIntent_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  CreateDepositIntentCommand
	}{
		{name: "unknown network", cmd: CreateDepositIntentCommand{ParticipantID: "alice", VoteCount: 1, Network: "SOL"}},
		{name: "zero votes", cmd: CreateDepositIntentCommand{ParticipantID: "alice", VoteCount: 0, Network: "BSC"}},
		{name: "missing participant", cmd: CreateDepositIntentCommand{VoteCount: 1, Network: "BSC"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.intent.Execute(context.Background(), tt.cmd)
			assert.True(t, apperrors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestCreateDepositIntent_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.intents.SetCreateError(errors.New("disk full"))

	_, err := f.intent.Execute(context.Background(), CreateDepositIntentCommand{ParticipantID: "alice", VoteCount: 1, Network: "BSC"})
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeInternal, appErr.Type)
}
