package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/amazon-product-agent/internal/asin"
	"github.com/maltedev/amazon-product-agent/internal/models"
)

// Mode selects how much the extractor trusts its input.
type Mode int

const (
	// ModeStructured assumes a validated product page and uses strict
	// range checks.
	ModeStructured Mode = iota
	// ModeFallback is for possibly blocked or degraded fetches. The page is
	// classified first; non-product pages get a lenient pass.
	ModeFallback
)

type currencyPattern struct {
	re       *regexp.Regexp
	symbol   string
	currency string
}

func pattern(expr, symbol, currency string) currencyPattern {
	return currencyPattern{re: regexp.MustCompile(`(?i)` + expr), symbol: symbol, currency: currency}
}

var (
	inrPatterns = []currencyPattern{
		pattern(`₹(\d+(?:,\d+)*)`, "₹", "INR"),
		pattern(`Rs\.?\s*(\d+(?:,\d+)*)`, "₹", "INR"),
		pattern(`INR\s*(\d+(?:,\d+)*)`, "₹", "INR"),
	}

	// GBP, USD, EUR, CAD, AUD in that order. USD precedes CAD and AUD so a
	// "C$" or "A$" price is reported as dollars; this ordering is relied on.
	westernPatterns = []currencyPattern{
		pattern(`£(\d+(?:\.\d{2})?)`, "£", "GBP"),
		pattern(`GBP\s*(\d+(?:\.\d{2})?)`, "£", "GBP"),
		pattern(`\$(\d+(?:\.\d{2})?)`, "$", "USD"),
		pattern(`USD\s*(\d+(?:\.\d{2})?)`, "$", "USD"),
		pattern(`€(\d+(?:\.\d{2})?)`, "€", "EUR"),
		pattern(`EUR\s*(\d+(?:\.\d{2})?)`, "€", "EUR"),
		pattern(`C\$\s*(\d+(?:\.\d{2})?)`, "C$", "CAD"),
		pattern(`CAD\s*(\d+(?:\.\d{2})?)`, "C$", "CAD"),
		pattern(`A\$\s*(\d+(?:\.\d{2})?)`, "A$", "AUD"),
		pattern(`AUD\s*(\d+(?:\.\d{2})?)`, "A$", "AUD"),
	}

	// Amazon price markup with no currency cue.
	genericPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<span[^>]*class="[^"]*a-price-whole[^"]*"[^>]*>(\d+(?:,\d+)*)</span>`),
		regexp.MustCompile(`(?i)<span[^>]*class="[^"]*a-offscreen[^"]*"[^>]*>([^<]+)</span>`),
	}

	bareNumber = regexp.MustCompile(`(\d{2,4}(?:,\d{3})*(?:\.\d{2})?)`)

	nonPriceChars = regexp.MustCompile(`[^\d.,]`)
)

// contextTokens is checked in order around a generic match when no
// currency is expected.
var contextTokens = []struct {
	tokens   []string
	currency string
}{
	{[]string{"₹", "INR"}, "INR"},
	{[]string{"$", "USD"}, "USD"},
	{[]string{"£", "GBP"}, "GBP"},
	{[]string{"€", "EUR"}, "EUR"},
}

const contextRadius = 100

type priceRange struct {
	min, max float64
}

var (
	strictRange  = priceRange{min: 1, max: 1_000_000}
	lenientRange = priceRange{min: 0.01, max: 10_000_000}
)

// currencyTable returns the specific-currency patterns in evaluation order.
// INR goes first only when rupees are expected; otherwise it goes last so
// the rupee patterns cannot shadow other currencies.
func currencyTable(expected string) []currencyPattern {
	table := make([]currencyPattern, 0, len(inrPatterns)+len(westernPatterns))
	if expected == "INR" {
		table = append(table, inrPatterns...)
		return append(table, westernPatterns...)
	}
	table = append(table, westernPatterns...)
	return append(table, inrPatterns...)
}

// ExtractPrice finds the best price in text. The original and discounted
// fields always carry the same value. An empty record means no price was
// found, which is not an error.
func ExtractPrice(text, expectedCurrency string, mode Mode) models.PriceRecord {
	if mode == ModeFallback && !IsRealProduct(text) {
		return lenientPass(text, expectedCurrency)
	}
	return strictPass(text, expectedCurrency)
}

func strictPass(text, expected string) models.PriceRecord {
	for _, p := range currencyTable(expected) {
		m := p.re.FindStringSubmatch(text)
		if m != nil && validPrice(m[1], strictRange) {
			return newPrice(p.symbol+m[1], p.currency)
		}
	}

	for _, re := range genericPatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		value := text[loc[2]:loc[3]]
		if validPrice(value, strictRange) {
			return genericPrice(text, value, loc[0], loc[1], expected)
		}
	}

	return models.PriceRecord{}
}

func lenientPass(text, expected string) models.PriceRecord {
	for _, p := range currencyTable(expected) {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if validPrice(m[1], lenientRange) {
				return newPrice(p.symbol+m[1], p.currency)
			}
		}
	}

	for _, re := range genericPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			value := text[loc[2]:loc[3]]
			if validPrice(value, lenientRange) {
				return genericPrice(text, value, loc[0], loc[1], expected)
			}
		}
	}

	// A bare number carries no currency of its own, so it is only usable
	// when the marketplace tells us what to expect.
	symbol := asin.SymbolFor(expected)
	if symbol == "" {
		return models.PriceRecord{}
	}
	for _, m := range bareNumber.FindAllStringSubmatch(text, -1) {
		if validPrice(m[1], lenientRange) {
			return newPrice(symbol+m[1], expected)
		}
	}

	return models.PriceRecord{}
}

func genericPrice(text, value string, start, end int, expected string) models.PriceRecord {
	currency := expected
	if asin.SymbolFor(currency) == "" {
		currency = currencyNear(text, start, end)
	}
	return newPrice(asin.SymbolFor(currency)+cleanPrice(value), currency)
}

func currencyNear(text string, start, end int) string {
	from := max(start-contextRadius, 0)
	to := min(end+contextRadius, len(text))
	window := text[from:to]

	for _, c := range contextTokens {
		for _, tok := range c.tokens {
			if strings.Contains(window, tok) {
				return c.currency
			}
		}
	}
	return "USD"
}

func newPrice(formatted, currency string) models.PriceRecord {
	return models.PriceRecord{Original: formatted, Discounted: formatted, Currency: currency}
}

func cleanPrice(value string) string {
	return nonPriceChars.ReplaceAllString(value, "")
}

// validPrice strips everything but digits, dots and commas, requires at
// least two remaining characters, and range-checks the number with
// thousands separators removed.
func validPrice(value string, r priceRange) bool {
	clean := cleanPrice(value)
	if len(clean) < 2 {
		return false
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(clean, ",", ""), 64)
	if err != nil {
		return false
	}
	return n >= r.min && n <= r.max
}
