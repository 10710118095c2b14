package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter_BurstThenBlocks(t *testing.T) {
	l := NewLocalLimiter(1, 2)

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "BSC"))
	require.NoError(t, l.Wait(ctx, "BSC"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short, "BSC"), "third call within a second exceeds the burst")

	// keys are independent
	require.NoError(t, l.Wait(ctx, "TRON"))
}

func TestLocalLimiter_DisabledWhenRateNotPositive(t *testing.T) {
	l := NewLocalLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "BSC"))
	}
}

type countingLimiter struct {
	calls int
	err   error
}

func (c *countingLimiter) Wait(context.Context, string) error {
	c.calls++
	return c.err
}

func TestChain(t *testing.T) {
	first := &countingLimiter{}
	second := &countingLimiter{}

	require.NoError(t, Chain(first, nil, second).Wait(context.Background(), "TRON"))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	failing := &countingLimiter{err: errors.New("cancelled")}
	after := &countingLimiter{}
	assert.Error(t, Chain(failing, after).Wait(context.Background(), "TRON"))
	assert.Equal(t, 0, after.calls)
}

func TestUnlimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, Unlimited().Wait(ctx, "BSC"))
	cancel()
	assert.ErrorIs(t, Unlimited().Wait(ctx, "BSC"), context.Canceled)
}
