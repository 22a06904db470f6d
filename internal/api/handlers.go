package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/amazon-product-agent/internal/database"
	"github.com/maltedev/amazon-product-agent/internal/export"
	"github.com/maltedev/amazon-product-agent/internal/models"
	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

const internalErrorMessage = "Internal server error"

type Resolver interface {
	Resolve(ctx context.Context, input string) (*models.ProductRecord, error)
}

type BatchResolver interface {
	ResolveAll(ctx context.Context, inputs []string) []scraper.Result
}

// ResolutionLog persists resolutions. Optional: nil disables logging and
// the /resolutions endpoint.
type ResolutionLog interface {
	Record(ctx context.Context, res database.Resolution) error
	Recent(ctx context.Context, limit int) ([]database.Resolution, error)
}

type Handlers struct {
	resolver Resolver
	batch    BatchResolver
	log      ResolutionLog
	logger   *slog.Logger
}

func NewHandlers(resolver Resolver, batch BatchResolver, log ResolutionLog, logger *slog.Logger) *Handlers {
	return &Handlers{
		resolver: resolver,
		batch:    batch,
		log:      log,
		logger:   logger.With("component", "api"),
	}
}

// ScrapeRequest carries one input for /scrape, or newline-separated inputs
// for /bulk-csv.
type ScrapeRequest struct {
	URL string `json:"url"`
}

type ScrapeResponse struct {
	Data *models.ProductRecord `json:"data"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Scrape resolves a single URL or ASIN.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	rec, err := h.resolver.Resolve(r.Context(), req.URL)
	h.record(r.Context(), database.NewResolution(req.URL, rec, err, time.Since(start)))

	if err != nil {
		var errRec *models.ErrorRecord
		if errors.As(err, &errRec) {
			h.respondJSON(w, http.StatusBadRequest, errRec)
			return
		}
		h.logger.Error("resolution failed", "input", req.URL, "error", err)
		h.respondError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	h.respondJSON(w, http.StatusOK, ScrapeResponse{Data: rec})
}

// BulkCSV resolves every non-blank line of the url field and streams the
// report as a CSV attachment.
func (h *Handlers) BulkCSV(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs := SplitInputs(req.URL)
	h.logger.Info("bulk export requested", "inputs", len(inputs))

	start := time.Now()
	results := h.batch.ResolveAll(r.Context(), inputs)
	took := time.Since(start)
	for _, res := range results {
		h.record(r.Context(), database.NewResolution(res.Input, res.Record, res.Err, took))
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.ReportFilename))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, results); err != nil {
		h.logger.Error("failed to write csv", "error", err)
	}
}

// Resolutions lists recently logged resolutions, newest first.
func (h *Handlers) Resolutions(w http.ResponseWriter, r *http.Request) {
	limit := database.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := h.log.Recent(r.Context(), database.ClampLimit(limit))
	if err != nil {
		h.logger.Error("failed to list resolutions", "error", err)
		h.respondError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	h.respondJSON(w, http.StatusOK, rows)
}

func (h *Handlers) record(ctx context.Context, res database.Resolution) {
	if h.log == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.log.Record(ctx, res); err != nil {
		h.logger.Warn("failed to record resolution", "input", res.Input, "error", err)
	}
}

// SplitInputs trims each line and drops blank ones.
func SplitInputs(body string) []string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := writeJSON(w, status, data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
