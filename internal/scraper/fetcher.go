package scraper

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
)

const maxBodyBytes = 10 << 20

// Fetcher performs one strategy's outbound request including retries.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*RawResponse, error)
}

type FetcherOptions struct {
	Timeout            time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	InsecureSkipVerify bool
}

// HTTPFetcher retries transport errors and non-200 responses with a linear
// backoff of RetryDelay * attempt.
type HTTPFetcher struct {
	client *http.Client
	opts   FetcherOptions
	budget ratelimit.RateLimiter
	logger *slog.Logger
}

func NewHTTPFetcher(opts FetcherOptions, budget ratelimit.RateLimiter, logger *slog.Logger) *HTTPFetcher {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if budget == nil {
		budget = ratelimit.NewBudget("outbound", 0)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Certificates are not verified unless INSECURE_SKIP_VERIFY=false. The
	// server logs a warning at startup while this is on.
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec

	return &HTTPFetcher{
		client: &http.Client{Transport: transport},
		opts:   opts,
		budget: budget,
		logger: logger.With("component", "fetcher"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*RawResponse, error) {
	// The query string may carry provider API keys.
	endpoint := req.URL.Host + req.URL.Path

	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		raw, err := f.attempt(ctx, req, endpoint)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		f.logger.Warn("fetch attempt failed",
			"endpoint", endpoint,
			"attempt", attempt,
			"max_attempts", f.opts.MaxRetries,
			"error", err)

		if ctx.Err() != nil || attempt == f.opts.MaxRetries {
			break
		}
		if err := sleep(ctx, f.opts.RetryDelay*time.Duration(attempt)); err != nil {
			break
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", endpoint, lastErr)
}

func (f *HTTPFetcher) attempt(ctx context.Context, req *http.Request, endpoint string) (*RawResponse, error) {
	if err := f.budget.Wait(ctx); err != nil {
		return nil, err
	}

	attemptCtx := ctx
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	resp, err := f.client.Do(req.Clone(attemptCtx))
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = endpoint
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return &RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
