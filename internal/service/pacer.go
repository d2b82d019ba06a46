package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed interval between sequential external calls. The
// enrichment, auto-fix and ingestion loops all wait on it before each item,
// so the inter-call delay is a policy rather than a hard-coded sleep, and
// cancellation lands between items instead of mid-call.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with the given minimum interval between calls.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call slot or until ctx is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
