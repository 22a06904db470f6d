// Package scraper resolves product input into a product record by trying
// acquisition strategies in a fixed priority order.
package scraper

import (
	"context"
	"errors"
	"net/http"

	"github.com/maltedev/amazon-product-agent/internal/asin"
	"github.com/maltedev/amazon-product-agent/internal/parser"
)

var (
	ErrInvalidInput     = errors.New("invalid product input")
	ErrAllMethodsFailed = errors.New("all acquisition methods failed")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// Target is what every strategy is asked to fetch.
type Target struct {
	ASIN        asin.ASIN
	Marketplace asin.Marketplace
	Input       string
}

type Format int

const (
	FormatJSON Format = iota
	FormatHTML
)

func (f Format) String() string {
	if f == FormatHTML {
		return "html"
	}
	return "json"
}

// RawResponse is one strategy's successful fetch, before parsing.
type RawResponse struct {
	Strategy   string
	Format     Format
	StatusCode int
	Body       []byte
}

// Strategy is one independent way of acquiring product data.
type Strategy interface {
	Name() string
	Format() Format
	NewRequest(ctx context.Context, t Target) (*http.Request, error)
	Parse(raw *RawResponse, t Target) parser.Outcome
}

// Pacer is implemented by strategies that must wait before each request.
type Pacer interface {
	Pace(ctx context.Context) error
}
