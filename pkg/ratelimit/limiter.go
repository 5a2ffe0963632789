package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests to one remote host
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the bucket
	Reset()
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	lim   *rate.Limiter
}

// NewTokenBucket allows requestsPerSecond on average with bursts of up to burst requests.
// A non-positive rate disables limiting.
func NewTokenBucket(requestsPerSecond float64, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &TokenBucket{
		rps:   limit,
		burst: burst,
		lim:   rate.NewLimiter(limit, burst),
	}
}

func (tb *TokenBucket) limiter() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lim
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter().Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter().Wait(ctx)
}

// Reset replaces the underlying limiter with a full bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.lim = rate.NewLimiter(tb.rps, tb.burst)
}

// Unlimited returns a Limiter that never blocks
func Unlimited() Limiter {
	return NewTokenBucket(0, 1)
}
