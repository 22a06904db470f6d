package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
)

type RouterConfig struct {
	APIKey      string
	CORSOrigins []string
	Limiter     ratelimit.Limiter

	// ScrapeTimeout bounds /scrape; BulkTimeout bounds /bulk-csv, which
	// spends most of its time in inter-batch pauses.
	ScrapeTimeout time.Duration
	BulkTimeout   time.Duration
}

func NewRouter(h *Handlers, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 2 * time.Minute
	}
	if cfg.BulkTimeout <= 0 {
		cfg.BulkTimeout = 30 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(Recoverer(logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", APIKeyHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: !slices.Contains(cfg.CORSOrigins, "*"),
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(RequireAPIKey(cfg.APIKey))
		if cfg.Limiter != nil {
			r.Use(RateLimit(cfg.Limiter, logger))
		}

		r.With(middleware.Timeout(cfg.ScrapeTimeout)).Post("/scrape", h.Scrape)
		r.With(middleware.Timeout(cfg.BulkTimeout)).Post("/bulk-csv", h.BulkCSV)
		if h.log != nil {
			r.Get("/resolutions", h.Resolutions)
		}
	})

	return r
}
