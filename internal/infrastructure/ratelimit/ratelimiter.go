// Package ratelimit caps outbound chain API calls so public RPC and TronGrid endpoints do not throttle us.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter blocks until one call for key may proceed, or ctx ends.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// LocalLimiter keeps one token bucket per key inside this process.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLocalLimiter allows rps calls per second per key with the given burst.
// A non-positive rps disables limiting.
func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	return l.limiter(key).Wait(ctx)
}

func (l *LocalLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

type chain []Limiter

// Chain waits on every non-nil limiter in order.
func Chain(limiters ...Limiter) Limiter {
	var c chain
	for _, l := range limiters {
		if l != nil {
			c = append(c, l)
		}
	}
	return c
}

func (c chain) Wait(ctx context.Context, key string) error {
	for _, l := range c {
		if err := l.Wait(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

type unlimited struct{}

// Unlimited never blocks.
func Unlimited() Limiter { return unlimited{} }

func (unlimited) Wait(ctx context.Context, _ string) error { return ctx.Err() }
