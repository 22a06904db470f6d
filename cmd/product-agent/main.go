package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-product-agent/internal/api"
	"github.com/maltedev/amazon-product-agent/internal/config"
	"github.com/maltedev/amazon-product-agent/internal/database"
	"github.com/maltedev/amazon-product-agent/internal/logging"
	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

const (
	scrapeTimeout = 2 * time.Minute
	bulkTimeout   = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scraper.InsecureSkipVerify {
		logger.Warn("outbound TLS certificate verification is disabled; set INSECURE_SKIP_VERIFY=false to enable it")
	}
	if cfg.Server.APIKey == "changeme" {
		logger.Warn("BACKEND_API_KEY is the default value")
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	var resolutions api.ResolutionLog
	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		repo := database.NewResolutionRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		resolutions = repo
		logger.Info("resolution log enabled", "host", cfg.Database.Host)
	}

	agent := scraper.New(cfg.AgentOptions(), logger)
	batch := scraper.NewBatch(agent, cfg.Batch.Size, ratelimit.NewJitter(cfg.Batch.DelayMin, cfg.Batch.DelayMax), logger)

	handlers := api.NewHandlers(agent, batch, resolutions, logger)
	router := api.NewRouter(handlers, api.RouterConfig{
		APIKey:        cfg.Server.APIKey,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Limiter:       limiter,
		ScrapeTimeout: scrapeTimeout,
		BulkTimeout:   bulkTimeout,
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: bulkTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port, "strategies", agent.Methods())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newLimiter shares limiter state through Redis when REDIS_ADDR is set and
// keeps it in memory otherwise.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	if !cfg.RedisEnabled() {
		return ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimitWindow()), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Info("rate limiter backed by redis", "addr", cfg.Redis.Addr)
	limiter := ratelimit.NewRedisSlidingWindow(client, "ratelimit:", cfg.RateLimit.Limit, cfg.RateLimitWindow())
	return limiter, func() { client.Close() }, nil
}
