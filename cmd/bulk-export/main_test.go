package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-product-agent/internal/models"
	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

type stubResolver map[string]*models.ProductRecord

func (s stubResolver) Resolve(_ context.Context, input string) (*models.ProductRecord, error) {
	if rec, ok := s[input]; ok {
		return rec, nil
	}
	return nil, &models.ErrorRecord{Message: "Unable to fetch product information. All methods failed.", Cause: scraper.ErrAllMethodsFailed}
}

func TestExportReport(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	batch := scraper.NewBatch(stubResolver{
		"B08N5WRWNW": {ProductName: "Echo Dot", ASIN: "B08N5WRWNW", Price: models.PriceRecord{Original: "$49.99"}},
	}, 2, nil, logger)

	var out bytes.Buffer
	in := strings.NewReader("B08N5WRWNW\n\nB000000000\n")
	require.NoError(t, exportReport(context.Background(), in, &out, batch, logger))

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "OK", rows[1][6])
	assert.Equal(t, "$", rows[1][4])
	assert.Equal(t, "Error", rows[2][6])
}

func TestOpenOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	w, closeFn, err := openOutput(path)
	require.NoError(t, err)

	_, err = io.WriteString(w, "URL\n")
	require.NoError(t, err)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "URL\n", string(data))
}

func TestCLIParse(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("bulk-export"))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"inputs.txt", "-o", "out.csv", "--batch-size", "5"})
	require.NoError(t, err)

	assert.Equal(t, "inputs.txt", cli.Input)
	assert.Equal(t, "out.csv", cli.Output)
	assert.Equal(t, 5, cli.BatchSize)
	assert.Equal(t, "text", cli.LogFormat)

	_, err = parser.Parse([]string{"--log-format", "yaml"})
	assert.Error(t, err)
}
