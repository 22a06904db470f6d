package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
)

const APIKeyHeader = "x-api-key"

// RequireAPIKey rejects requests whose x-api-key header does not match.
func RequireAPIKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				_ = writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid API Key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit allows limiter.Limit() requests per window per API key. If the
// limiter itself fails the request is let through.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	message := fmt.Sprintf("Rate limit exceeded: %d requests per %d seconds",
		limiter.Limit(), int(limiter.Window().Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), r.Header.Get(APIKeyHeader))
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				_ = writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": message})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recoverer turns a handler panic into the generic JSON 500 and logs the
// stack server-side.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic in handler",
						"path", r.URL.Path,
						"panic", fmt.Sprint(rec),
						"stack", string(debug.Stack()),
					)
					_ = writeJSON(w, http.StatusInternalServerError, map[string]string{"error": internalErrorMessage})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
