package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/amazon-product-agent/internal/asin"
	"github.com/maltedev/amazon-product-agent/internal/models"
	"github.com/maltedev/amazon-product-agent/internal/parser"
	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
)

const (
	invalidInputMessage = "Invalid input. Please provide a valid Amazon URL or ASIN."
	exhaustedMessage    = "Unable to fetch product information. All methods failed."
	exhaustedSuggestion = "Please check if the ASIN is valid or try again later."
)

// SupportedFormats lists example inputs shown to callers after bad input.
func SupportedFormats() []string {
	return []string{
		"https://www.amazon.com/dp/ASIN",
		"https://www.amazon.com/gp/product/ASIN",
		"ASIN (10-character product code)",
	}
}

// Options configures the default strategy chain. It is built once from
// configuration and never mutated afterwards.
type Options struct {
	Fetch       FetcherOptions
	OutboundRPS int

	RainforestURL string
	RainforestKey string
	ScraperAPIURL string
	ScraperAPIKey string
	RapidAPIURL   string
	RapidAPIKey   string

	// DirectBaseURL replaces the marketplace host for direct and proxied
	// page fetches. Empty in production.
	DirectBaseURL  string
	UserAgents     []string
	DirectDelayMin time.Duration
	DirectDelayMax time.Duration
}

// DefaultStrategies returns the chain in priority order.
func DefaultStrategies(opts Options) []Strategy {
	return []Strategy{
		&RainforestStrategy{Endpoint: opts.RainforestURL, APIKey: opts.RainforestKey},
		&ScraperAPIStrategy{Endpoint: opts.ScraperAPIURL, APIKey: opts.ScraperAPIKey, PageBase: opts.DirectBaseURL},
		&RapidAPIStrategy{Endpoint: opts.RapidAPIURL, APIKey: opts.RapidAPIKey},
		&DirectStrategy{
			BaseURL:    opts.DirectBaseURL,
			UserAgents: opts.UserAgents,
			Delay:      ratelimit.NewJitter(opts.DirectDelayMin, opts.DirectDelayMax),
		},
	}
}

// Agent runs the fallback chain. It holds no per-request state and is safe
// for concurrent use.
type Agent struct {
	fetcher    Fetcher
	strategies []Strategy
	logger     *slog.Logger
}

func NewAgent(fetcher Fetcher, strategies []Strategy, logger *slog.Logger) *Agent {
	return &Agent{
		fetcher:    fetcher,
		strategies: strategies,
		logger:     logger.With("component", "agent"),
	}
}

// New builds an agent with the default strategy chain over HTTP.
func New(opts Options, logger *slog.Logger) *Agent {
	fetcher := NewHTTPFetcher(opts.Fetch, ratelimit.NewBudget("outbound", opts.OutboundRPS), logger)
	return NewAgent(fetcher, DefaultStrategies(opts), logger)
}

// Methods returns the strategy names in the order they are tried.
func (a *Agent) Methods() []string {
	names := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first record with a product name, trying strategies
// strictly one after another. Failures are returned as *models.ErrorRecord
// wrapping ErrInvalidInput or ErrAllMethodsFailed.
func (a *Agent) Resolve(ctx context.Context, input string) (*models.ProductRecord, error) {
	id, err := asin.Extract(input)
	if err != nil {
		a.logger.Info("rejected input", "input", input)
		return nil, &models.ErrorRecord{
			Message:          invalidInputMessage,
			InputReceived:    input,
			SupportedFormats: SupportedFormats(),
			Cause:            ErrInvalidInput,
		}
	}

	t := Target{ASIN: id, Marketplace: asin.ResolveMarketplace(input), Input: input}
	logger := a.logger.With("asin", id.String(), "marketplace", t.Marketplace.Code)

	tried := make([]string, 0, len(a.strategies))
	for _, s := range a.strategies {
		tried = append(tried, s.Name())
		logger.Info("trying strategy", "strategy", s.Name())

		out := a.attempt(ctx, s, t)
		switch out.Status {
		case parser.StatusOK:
			logger.Info("strategy succeeded", "strategy", s.Name())
			return out.Record.WithSource(s.Name(), id.String()), nil
		case parser.StatusEmpty:
			logger.Info("strategy returned no data", "strategy", s.Name(), "reason", out.Reason)
		default:
			logger.Warn("strategy failed", "strategy", s.Name(), "reason", out.Reason)
		}
	}

	logger.Warn("all strategies exhausted", "tried", tried)
	return nil, &models.ErrorRecord{
		Message:      exhaustedMessage,
		ASIN:         id.String(),
		TriedMethods: tried,
		Suggestion:   exhaustedSuggestion,
		Cause:        ErrAllMethodsFailed,
	}
}

func (a *Agent) attempt(ctx context.Context, s Strategy, t Target) parser.Outcome {
	raw, err := a.Execute(ctx, s, t)
	if err != nil {
		return parser.Failed(err.Error())
	}
	return safeParse(s, raw, t)
}

// Execute performs the outbound fetch for one strategy, including any
// pacing delay and the fetcher's retries.
func (a *Agent) Execute(ctx context.Context, s Strategy, t Target) (*RawResponse, error) {
	if p, ok := s.(Pacer); ok {
		if err := p.Pace(ctx); err != nil {
			return nil, fmt.Errorf("pace %s: %w", s.Name(), err)
		}
	}

	req, err := s.NewRequest(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", s.Name(), err)
	}

	raw, err := a.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	raw.Strategy = s.Name()
	raw.Format = s.Format()
	return raw, nil
}

func safeParse(s Strategy, raw *RawResponse, t Target) (out parser.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = parser.Failed(fmt.Sprintf("%s parser panic: %v", s.Name(), r))
		}
	}()
	return s.Parse(raw, t)
}
