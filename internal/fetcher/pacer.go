package fetcher

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between two EDGAR requests.
const DefaultMinInterval = 200 * time.Millisecond

// Pacer enforces a minimum interval between consecutive requests made by
// every caller sharing it. It is independent of retry backoff.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewPacer creates a Pacer. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next request may be sent.
func (p *Pacer) Wait(ctx context.Context) error {
	return eris.Wrap(p.limiter.Wait(ctx), "pacer: wait")
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration { return p.interval }
