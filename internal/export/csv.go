// Package export writes batch resolution results as a CSV report.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/maltedev/amazon-product-agent/internal/models"
	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

const (
	ReportFilename       = "amazon_bulk_report.csv"
	maxDescriptionLength = 200

	StatusOK    = "OK"
	StatusError = "Error"
)

var Header = []string{"URL", "ASIN", "Product Name", "Price", "Currency", "Domain", "Status", "Description", "Error"}

var priceSymbols = []string{"$", "₹", "€", "£"}

// WriteCSV writes the header and one row per result, in order.
func WriteCSV(w io.Writer, results []scraper.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("write row for %q: %w", r.Input, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row renders one result. Failures become an error-tagged row.
func Row(r scraper.Result) []string {
	domain := hostname(r.Input)

	if r.Err != nil || r.Record == nil {
		var id string
		var rec *models.ErrorRecord
		if errors.As(r.Err, &rec) {
			id = rec.ASIN
		}
		msg := "no result"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return []string{r.Input, id, "", "", "", domain, StatusError, "", msg}
	}

	rec := r.Record
	price := rec.Price.Display()
	return []string{
		r.Input,
		rec.ASIN,
		rec.ProductName,
		price,
		currencyLabel(rec.Price.Currency, price),
		domain,
		StatusOK,
		truncate(rec.Description, maxDescriptionLength),
		"",
	}
}

func currencyLabel(code, price string) string {
	if code != "" {
		return code
	}
	for _, s := range priceSymbols {
		if strings.Contains(price, s) {
			return s
		}
	}
	return ""
}

func hostname(input string) string {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
