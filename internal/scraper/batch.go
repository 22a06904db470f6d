package scraper

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/amazon-product-agent/internal/models"
	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
)

// Resolver is the single-input entry point the batch fans out over.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*models.ProductRecord, error)
}

type Result struct {
	Input  string
	Record *models.ProductRecord
	Err    error
}

// Batch resolves many inputs in groups of Size concurrent resolutions with
// a randomized pause between groups. A failed input never cancels its
// siblings.
type Batch struct {
	resolver Resolver
	size     int
	delay    ratelimit.RateLimiter
	logger   *slog.Logger
}

func NewBatch(resolver Resolver, size int, delay ratelimit.RateLimiter, logger *slog.Logger) *Batch {
	if size < 1 {
		size = 1
	}
	if delay == nil {
		delay = ratelimit.NewJitter(0, 0)
	}
	return &Batch{
		resolver: resolver,
		size:     size,
		delay:    delay,
		logger:   logger.With("component", "batch"),
	}
}

// ResolveAll returns one result per input, in input order.
func (b *Batch) ResolveAll(ctx context.Context, inputs []string) []Result {
	results := make([]Result, len(inputs))
	logger := b.logger.With("batch_id", uuid.NewString())
	logger.Info("batch started", "inputs", len(inputs), "size", b.size)

	for start := 0; start < len(inputs); start += b.size {
		if start > 0 {
			if err := b.delay.Wait(ctx); err != nil {
				logger.Warn("batch interrupted", "remaining", len(inputs)-start, "error", err)
				for i := start; i < len(inputs); i++ {
					results[i] = Result{Input: inputs[i], Err: err}
				}
				return results
			}
		}

		end := min(start+b.size, len(inputs))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				rec, err := b.resolver.Resolve(ctx, inputs[i])
				results[i] = Result{Input: inputs[i], Record: rec, Err: err}
				return nil
			})
		}
		_ = g.Wait()

		logger.Debug("group finished", "from", start, "to", end)
	}

	logger.Info("batch finished", "inputs", len(inputs))
	return results
}
