package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-product-agent/internal/database"
	"github.com/maltedev/amazon-product-agent/internal/models"
	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

const testKey = "test-key"

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, input string) (*models.ProductRecord, error) {
	args := m.Called(ctx, input)
	rec, _ := args.Get(0).(*models.ProductRecord)
	return rec, args.Error(1)
}

type MockResolutionLog struct {
	mock.Mock
}

func (m *MockResolutionLog) Record(ctx context.Context, res database.Resolution) error {
	return m.Called(ctx, res).Error(0)
}

func (m *MockResolutionLog) Recent(ctx context.Context, limit int) ([]database.Resolution, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]database.Resolution)
	return rows, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(resolver Resolver, log ResolutionLog, limiter ratelimit.Limiter) http.Handler {
	logger := discardLogger()
	batch := scraper.NewBatch(resolver, 3, nil, logger)
	return NewRouter(NewHandlers(resolver, batch, log, logger), RouterConfig{
		APIKey:      testKey,
		CORSOrigins: []string{"*"},
		Limiter:     limiter,
	}, logger)
}

func post(t *testing.T, handler http.Handler, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	router := newTestRouter(new(MockResolver), nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestScrape(t *testing.T) {
	product := &models.ProductRecord{
		ProductName:  "Echo Dot",
		Price:        models.PriceRecord{Discounted: "$49.99", Currency: "USD"},
		Variants:     []string{},
		ImageURLs:    []string{},
		SourceMethod: scraper.NameRainforest,
		ASIN:         "B08N5WRWNW",
	}
	invalid := &models.ErrorRecord{
		Message:          "Invalid input. Please provide a valid Amazon URL or ASIN.",
		InputReceived:    "nope",
		SupportedFormats: scraper.SupportedFormats(),
		Cause:            scraper.ErrInvalidInput,
	}

	tests := []struct {
		name       string
		body       string
		key        string
		setup      func(m *MockResolver)
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name: "success",
			body: `{"url": "B08N5WRWNW"}`,
			key:  testKey,
			setup: func(m *MockResolver) {
				m.On("Resolve", mock.Anything, "B08N5WRWNW").Return(product, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "Echo Dot", data["product_name"])
				assert.Equal(t, scraper.NameRainforest, data["source_method"])
			},
		},
		{
			name: "invalid input",
			body: `{"url": "nope"}`,
			key:  testKey,
			setup: func(m *MockResolver) {
				m.On("Resolve", mock.Anything, "nope").Return(nil, invalid)
			},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, invalid.Message, body["error"])
				assert.Equal(t, "nope", body["input_received"])
				assert.Len(t, body["supported_formats"], 3)
			},
		},
		{
			name: "internal fault is not leaked",
			body: `{"url": "B08N5WRWNW"}`,
			key:  testKey,
			setup: func(m *MockResolver) {
				m.On("Resolve", mock.Anything, "B08N5WRWNW").Return(nil, errors.New("pq: secret detail"))
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Internal server error", body["error"])
			},
		},
		{
			name:       "malformed body",
			body:       `{"url":`,
			key:        testKey,
			setup:      func(m *MockResolver) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong api key",
			body:       `{"url": "B08N5WRWNW"}`,
			key:        "wrong",
			setup:      func(m *MockResolver) {},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Invalid API Key", body["error"])
			},
		},
		{
			name:       "missing api key",
			body:       `{"url": "B08N5WRWNW"}`,
			setup:      func(m *MockResolver) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockResolver)
			tt.setup(resolver)
			router := newTestRouter(resolver, nil, nil)

			rec := post(t, router, "/scrape", tt.body, tt.key)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.check != nil {
				tt.check(t, decode(t, rec))
			}
			resolver.AssertExpectations(t)
		})
	}
}

func TestScrapeRecordsResolution(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "B08N5WRWNW").
		Return(&models.ProductRecord{ProductName: "Echo", ASIN: "B08N5WRWNW", SourceMethod: "direct_amazon"}, nil)

	log := new(MockResolutionLog)
	log.On("Record", mock.Anything, mock.MatchedBy(func(r database.Resolution) bool {
		return r.Status == database.ResolutionOK && r.ASIN == "B08N5WRWNW" && r.SourceMethod == "direct_amazon"
	})).Return(nil)

	rec := post(t, newTestRouter(resolver, log, nil), "/scrape", `{"url": "B08N5WRWNW"}`, testKey)

	assert.Equal(t, http.StatusOK, rec.Code)
	log.AssertExpectations(t)
}

func TestScrapeRecordFailureDoesNotFailRequest(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "B08N5WRWNW").Return(&models.ProductRecord{ProductName: "Echo"}, nil)

	log := new(MockResolutionLog)
	log.On("Record", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	rec := post(t, newTestRouter(resolver, log, nil), "/scrape", `{"url": "B08N5WRWNW"}`, testKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBulkCSV(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "https://www.amazon.in/dp/B08N5WRWNW").
		Return(&models.ProductRecord{
			ProductName: "Steel Bottle",
			Price:       models.PriceRecord{Discounted: "₹2,499", Currency: "INR"},
			ASIN:        "B08N5WRWNW",
		}, nil)
	resolver.On("Resolve", mock.Anything, "not-a-product").
		Return(nil, &models.ErrorRecord{Message: "Invalid input. Please provide a valid Amazon URL or ASIN.", Cause: scraper.ErrInvalidInput})
	resolver.On("Resolve", mock.Anything, "B07XJ8C8F5").
		Return(nil, &models.ErrorRecord{Message: "Unable to fetch product information. All methods failed.", ASIN: "B07XJ8C8F5", Cause: scraper.ErrAllMethodsFailed})

	body := `{"url": "https://www.amazon.in/dp/B08N5WRWNW\n\n  not-a-product  \nB07XJ8C8F5\n"}`
	rec := post(t, newTestRouter(resolver, nil, nil), "/bulk-csv", body, testKey)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=amazon_bulk_report.csv", rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "URL", rows[0][0])
	assert.Equal(t, []string{"https://www.amazon.in/dp/B08N5WRWNW", "not-a-product", "B07XJ8C8F5"},
		[]string{rows[1][0], rows[2][0], rows[3][0]})
	assert.Equal(t, []string{"OK", "Error", "Error"}, []string{rows[1][6], rows[2][6], rows[3][6]})
	assert.Equal(t, "www.amazon.in", rows[1][5])
	resolver.AssertExpectations(t)
}

func TestRateLimit(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&models.ProductRecord{ProductName: "x"}, nil)

	router := newTestRouter(resolver, nil, ratelimit.NewSlidingWindow(2, 30*time.Second))

	for i := 0; i < 2; i++ {
		rec := post(t, router, "/scrape", `{"url": "B08N5WRWNW"}`, testKey)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := post(t, router, "/scrape", `{"url": "B08N5WRWNW"}`, testKey)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded: 2 requests per 30 seconds", decode(t, rec)["error"])
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLimiter) Limit() int            { return 1 }
func (failingLimiter) Window() time.Duration { return time.Second }

func TestRateLimitFailsOpen(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&models.ProductRecord{ProductName: "x"}, nil)

	rec := post(t, newTestRouter(resolver, nil, failingLimiter{}), "/scrape", `{"url": "B08N5WRWNW"}`, testKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type panickingResolver struct{}

func (panickingResolver) Resolve(context.Context, string) (*models.ProductRecord, error) {
	panic("nil map write")
}

func TestRecovererReturnsGenericError(t *testing.T) {
	rec := post(t, newTestRouter(panickingResolver{}, nil, nil), "/scrape", `{"url": "B08N5WRWNW"}`, testKey)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "nil map write")
}

func TestResolutions(t *testing.T) {
	rows := []database.Resolution{{Input: "B08N5WRWNW", Status: database.ResolutionOK, TriedMethods: []string{}}}

	t.Run("default limit", func(t *testing.T) {
		log := new(MockResolutionLog)
		log.On("Recent", mock.Anything, database.DefaultRecentLimit).Return(rows, nil)

		req := httptest.NewRequest(http.MethodGet, "/resolutions", nil)
		req.Header.Set(APIKeyHeader, testKey)
		rec := httptest.NewRecorder()
		newTestRouter(new(MockResolver), log, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got []database.Resolution
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "B08N5WRWNW", got[0].Input)
		log.AssertExpectations(t)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		log := new(MockResolutionLog)
		log.On("Recent", mock.Anything, database.MaxRecentLimit).Return(rows, nil)

		req := httptest.NewRequest(http.MethodGet, "/resolutions?limit=9999", nil)
		req.Header.Set(APIKeyHeader, testKey)
		rec := httptest.NewRecorder()
		newTestRouter(new(MockResolver), log, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		log.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resolutions?limit=abc", nil)
		req.Header.Set(APIKeyHeader, testKey)
		rec := httptest.NewRecorder()
		newTestRouter(new(MockResolver), new(MockResolutionLog), nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not mounted without a database", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resolutions", nil)
		req.Header.Set(APIKeyHeader, testKey)
		rec := httptest.NewRecorder()
		newTestRouter(new(MockResolver), nil, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSplitInputs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitInputs(" a \n\n\tb\r\n"))
	assert.Empty(t, SplitInputs("\n  \n"))
}
