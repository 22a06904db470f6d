package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/amazon-product-agent/internal/models"
)

const (
	ResolutionOK    = "ok"
	ResolutionError = "error"

	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS product_resolutions (
		id            UUID PRIMARY KEY,
		input         TEXT NOT NULL,
		asin          TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		source_method TEXT NOT NULL DEFAULT '',
		product_name  TEXT NOT NULL DEFAULT '',
		price         TEXT NOT NULL DEFAULT '',
		currency      TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		tried_methods TEXT[] NOT NULL DEFAULT '{}',
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_resolutions_created_at
		ON product_resolutions (created_at DESC)`,
}

// Resolution is one logged call to the resolver, successful or not.
type Resolution struct {
	ID           uuid.UUID `json:"id"`
	Input        string    `json:"input"`
	ASIN         string    `json:"asin"`
	Status       string    `json:"status"`
	SourceMethod string    `json:"source_method,omitempty"`
	ProductName  string    `json:"product_name,omitempty"`
	Price        string    `json:"price,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	TriedMethods []string  `json:"tried_methods"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewResolution flattens a resolver result into a log row.
func NewResolution(input string, rec *models.ProductRecord, err error, took time.Duration) Resolution {
	r := Resolution{
		ID:           uuid.New(),
		Input:        input,
		TriedMethods: []string{},
		DurationMS:   took.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}

	if err == nil && rec != nil {
		r.Status = ResolutionOK
		r.ASIN = rec.ASIN
		r.SourceMethod = rec.SourceMethod
		r.ProductName = rec.ProductName
		r.Price = rec.Price.Display()
		r.Currency = rec.Price.Currency
		return r
	}

	r.Status = ResolutionError
	if err == nil {
		return r
	}
	r.ErrorMessage = err.Error()
	var errRec *models.ErrorRecord
	if errors.As(err, &errRec) {
		r.ASIN = errRec.ASIN
		if errRec.TriedMethods != nil {
			r.TriedMethods = errRec.TriedMethods
		}
	}
	return r
}

// ClampLimit applies the default and upper bound for Recent.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return min(limit, MaxRecentLimit)
}

type ResolutionRepository struct {
	db *DB
}

func NewResolutionRepository(db *DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

func (r *ResolutionRepository) Migrate(ctx context.Context) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

func (r *ResolutionRepository) Record(ctx context.Context, res Resolution) error {
	query := `
		INSERT INTO product_resolutions (
			id, input, asin, status, source_method, product_name,
			price, currency, error_message, tried_methods, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		res.ID, res.Input, res.ASIN, res.Status, res.SourceMethod, res.ProductName,
		res.Price, res.Currency, res.ErrorMessage, res.TriedMethods, res.DurationMS, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}
	return nil
}

// Recent returns the newest resolutions first.
func (r *ResolutionRepository) Recent(ctx context.Context, limit int) ([]Resolution, error) {
	query := `
		SELECT id, input, asin, status, source_method, product_name,
			price, currency, error_message, tried_methods, duration_ms, created_at
		FROM product_resolutions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	out := []Resolution{}
	for rows.Next() {
		var res Resolution
		if err := rows.Scan(
			&res.ID, &res.Input, &res.ASIN, &res.Status, &res.SourceMethod, &res.ProductName,
			&res.Price, &res.Currency, &res.ErrorMessage, &res.TriedMethods, &res.DurationMS, &res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
