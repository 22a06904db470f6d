package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"

	"github.com/maltedev/amazon-product-agent/internal/parser"
	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
)

const (
	DefaultRainforestURL = "https://api.rainforestapi.com/request"
	DefaultScraperAPIURL = "https://api.scraperapi.com/"
	DefaultRapidAPIURL   = "https://amazon-product-reviews-keywords.p.rapidapi.com/product/search"
)

// Strategy names as reported in source_method and tried_methods.
const (
	NameRainforest = "rainforest_api"
	NameScraperAPI = "scraperapi"
	NameRapidAPI   = "rapidapi"
	NameDirect     = "direct_amazon"
)

func productPageURL(base string, t Target) string {
	if base == "" {
		base = "https://www." + t.Marketplace.Domain
	}
	return fmt.Sprintf("%s/dp/%s", base, t.ASIN)
}

func newGET(ctx context.Context, endpoint string, query url.Values) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if query != nil {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// RainforestStrategy queries the Rainforest product API.
type RainforestStrategy struct {
	Endpoint string
	APIKey   string
}

func (s *RainforestStrategy) Name() string   { return NameRainforest }
func (s *RainforestStrategy) Format() Format { return FormatJSON }

func (s *RainforestStrategy) NewRequest(ctx context.Context, t Target) (*http.Request, error) {
	return newGET(ctx, s.Endpoint, url.Values{
		"api_key":       {s.APIKey},
		"type":          {"product"},
		"asin":          {t.ASIN.String()},
		"amazon_domain": {t.Marketplace.Domain},
	})
}

func (s *RainforestStrategy) Parse(raw *RawResponse, _ Target) parser.Outcome {
	return parser.ParseRainforest(raw.Body)
}

// ScraperAPIStrategy fetches the product page through the ScraperAPI proxy
// and reads it with CSS selectors.
type ScraperAPIStrategy struct {
	Endpoint string
	APIKey   string
	// PageBase overrides the product page origin; empty means the
	// marketplace's www host.
	PageBase string
}

func (s *ScraperAPIStrategy) Name() string   { return NameScraperAPI }
func (s *ScraperAPIStrategy) Format() Format { return FormatHTML }

func (s *ScraperAPIStrategy) NewRequest(ctx context.Context, t Target) (*http.Request, error) {
	return newGET(ctx, s.Endpoint, url.Values{
		"api_key": {s.APIKey},
		"url":     {productPageURL(s.PageBase, t)},
	})
}

func (s *ScraperAPIStrategy) Parse(raw *RawResponse, _ Target) parser.Outcome {
	return parser.ParseBasicHTML(string(raw.Body))
}

// RapidAPIStrategy searches the RapidAPI Amazon product index by ASIN.
type RapidAPIStrategy struct {
	Endpoint string
	APIKey   string
}

func (s *RapidAPIStrategy) Name() string   { return NameRapidAPI }
func (s *RapidAPIStrategy) Format() Format { return FormatJSON }

func (s *RapidAPIStrategy) NewRequest(ctx context.Context, t Target) (*http.Request, error) {
	req, err := newGET(ctx, s.Endpoint, url.Values{
		"keyword":  {t.ASIN.String()},
		"country":  {t.Marketplace.Code},
		"category": {"aps"},
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", s.APIKey)
	req.Header.Set("X-RapidAPI-Host", req.URL.Host)
	return req, nil
}

func (s *RapidAPIStrategy) Parse(raw *RawResponse, _ Target) parser.Outcome {
	return parser.ParseRapidAPI(raw.Body)
}

// DirectStrategy fetches the marketplace product page itself with a
// browser-like header set, a rotating User-Agent and a random pre-request
// delay.
type DirectStrategy struct {
	// BaseURL overrides the page origin; empty means the marketplace's
	// www host.
	BaseURL    string
	UserAgents []string
	Delay      ratelimit.RateLimiter
}

func (s *DirectStrategy) Name() string   { return NameDirect }
func (s *DirectStrategy) Format() Format { return FormatHTML }

func (s *DirectStrategy) Pace(ctx context.Context) error {
	if s.Delay == nil {
		return nil
	}
	return s.Delay.Wait(ctx)
}

var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "en-US,en;q=0.9",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
	"Referer":                   "https://www.google.com/",
	"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"macOS"`,
}

func (s *DirectStrategy) NewRequest(ctx context.Context, t Target) (*http.Request, error) {
	req, err := newGET(ctx, productPageURL(s.BaseURL, t), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	if len(s.UserAgents) > 0 {
		req.Header.Set("User-Agent", s.UserAgents[rand.Intn(len(s.UserAgents))])
	}
	return req, nil
}

func (s *DirectStrategy) Parse(raw *RawResponse, t Target) parser.Outcome {
	return parser.ParseEnhancedHTML(string(raw.Body), t.Marketplace.Currency)
}
