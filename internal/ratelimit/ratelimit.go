package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Jitter sleeps for a random duration in [min, max] on every Wait. It
// paces direct page fetches and the gaps between batches so traffic does
// not arrive on a fixed rhythm.
type Jitter struct {
	minDelay time.Duration
	maxDelay time.Duration
}

func NewJitter(minDelay, maxDelay time.Duration) *Jitter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Jitter{minDelay: minDelay, maxDelay: maxDelay}
}

func (j *Jitter) Wait(ctx context.Context) error {
	delay := j.Next()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Next returns the delay the following Wait would use.
func (j *Jitter) Next() time.Duration {
	if j.minDelay == j.maxDelay {
		return j.minDelay
	}
	delta := j.maxDelay - j.minDelay
	return j.minDelay + time.Duration(rand.Int63n(int64(delta)+1))
}

// Budget caps outbound requests per second across every strategy and
// every concurrent resolution sharing it.
type Budget struct {
	limiter *rate.Limiter
	name    string
}

// NewBudget returns a budget allowing rps requests per second with a burst
// of the same size. rps <= 0 means unlimited.
func NewBudget(name string, rps int) *Budget {
	if rps <= 0 {
		return &Budget{limiter: rate.NewLimiter(rate.Inf, 0), name: name}
	}
	return &Budget{limiter: rate.NewLimiter(rate.Limit(rps), rps), name: name}
}

func (b *Budget) Wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", b.name, err)
	}
	return nil
}
