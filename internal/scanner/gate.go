package scanner

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Gate paces requests to one provider and closes for the rest of the run
// once the provider reports its quota as exhausted.
type Gate struct {
	limiter   *rate.Limiter
	exhausted atomic.Bool
}

// NewGate allows one request per interval. A non-positive interval disables pacing.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may be sent.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	if g.exhausted.Load() {
		return ErrRateLimited
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	if g.exhausted.Load() {
		return ErrRateLimited
	}
	return nil
}

// Exhaust closes the gate.
func (g *Gate) Exhaust() {
	if g != nil {
		g.exhausted.Store(true)
	}
}

// Reset reopens the gate for a new run. Pacing state is kept.
func (g *Gate) Reset() {
	if g != nil {
		g.exhausted.Store(false)
	}
}

// Exhausted reports whether the provider quota ran out.
func (g *Gate) Exhausted() bool {
	return g != nil && g.exhausted.Load()
}
