package blockchain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/metrics"
	"github.com/orris-inc/usdtvote/internal/infrastructure/ratelimit"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

const (
	defaultRequestTimeout = 10 * time.Second
	// Maximum response body size for blockchain API (1MB)
	maxBlockchainResponseSize = 1 << 20
)

// ClientOptions are shared by every chain adapter.
type ClientOptions struct {
	// Limiter throttles outbound calls, keyed by network name.
	Limiter ratelimit.Limiter
	// Timeout bounds each individual RPC or HTTP call.
	Timeout time.Duration
	Metrics *metrics.PaymentMetrics
	Logger  logger.Interface
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Limiter == nil {
		o.Limiter = ratelimit.Unlimited()
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
	return o
}

type caller struct {
	network vo.Network
	opts    ClientOptions
}

// do runs one outbound call under the limiter and a per-call timeout, and classifies its error.
func (c caller) do(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := c.opts.Limiter.Wait(ctx, c.network.String()); err != nil {
		return c.fail(ctx, method, fmt.Errorf("rate limiter: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	c.opts.Metrics.ObserveChainRequest(c.network.String(), method, time.Since(start))
	if err != nil {
		return c.fail(ctx, method, err)
	}
	return nil
}

func (c caller) fail(ctx context.Context, method string, err error) error {
	err = classifyError(ctx, err)
	c.opts.Metrics.ObserveChainError(c.network.String(), method, errorClass(err))
	return err
}

// classifyError keeps caller cancellation and chain verdicts as they are and turns every
// other failure (timeouts, transport errors, RPC errors) into ErrChainUnavailable.
func classifyError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	switch {
	case errors.Is(err, payment.ErrTxNotFound),
		errors.Is(err, payment.ErrDecode),
		errors.Is(err, payment.ErrNoTransferEvent),
		errors.Is(err, payment.ErrTxFailed),
		errors.Is(err, payment.ErrChainUnavailable):
		return err
	}
	return fmt.Errorf("%w: %v", payment.ErrChainUnavailable, err)
}

func errorClass(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, payment.ErrTxNotFound):
		return "not_found"
	case errors.Is(err, payment.ErrDecode):
		return "decode"
	case errors.Is(err, payment.ErrNoTransferEvent), errors.Is(err, payment.ErrTxFailed):
		return "rejected"
	default:
		return "unavailable"
	}
}
