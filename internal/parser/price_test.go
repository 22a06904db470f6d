package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/amazon-product-agent/internal/models"
)

const productShell = `<span id="productTitle">Widget</span><div class="a-price">%s</div>`

func TestExtractPriceStructured(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
		want     models.PriceRecord
	}{
		{
			name:     "rupees on india marketplace",
			html:     `<span class="a-offscreen">₹2,499</span>`,
			expected: "INR",
			want:     models.PriceRecord{Original: "₹2,499", Discounted: "₹2,499", Currency: "INR"},
		},
		{
			name:     "dollars on us marketplace",
			html:     `<span class="a-offscreen">$49.99</span>`,
			expected: "USD",
			want:     models.PriceRecord{Original: "$49.99", Discounted: "$49.99", Currency: "USD"},
		},
		{
			name:     "rupees last when not expected",
			html:     `₹2,499 or $30`,
			expected: "USD",
			want:     models.PriceRecord{Original: "$30", Discounted: "$30", Currency: "USD"},
		},
		{
			name:     "rupees first when expected",
			html:     `$30 or ₹2,499`,
			expected: "INR",
			want:     models.PriceRecord{Original: "₹2,499", Discounted: "₹2,499", Currency: "INR"},
		},
		{
			name:     "pounds before dollars",
			html:     `$20.00 and £15.50`,
			expected: "USD",
			want:     models.PriceRecord{Original: "£15.50", Discounted: "£15.50", Currency: "GBP"},
		},
		{
			name:     "currency code variant",
			html:     `EUR 35.00`,
			expected: "EUR",
			want:     models.PriceRecord{Original: "€35.00", Discounted: "€35.00", Currency: "EUR"},
		},
		{
			name:     "single digit rejected",
			html:     `only $5 today`,
			expected: "USD",
			want:     models.PriceRecord{},
		},
		{
			name:     "out of range rejected",
			html:     `$2000000`,
			expected: "USD",
			want:     models.PriceRecord{},
		},
		{
			name:     "invalid first match falls through to next pattern",
			html:     `$0 then USD 12.00`,
			expected: "USD",
			want:     models.PriceRecord{Original: "$12.00", Discounted: "$12.00", Currency: "USD"},
		},
		{
			name:     "generic markup uses expected currency",
			html:     `<span class="a-price-whole">1,299</span>`,
			expected: "EUR",
			want:     models.PriceRecord{Original: "€1,299", Discounted: "€1,299", Currency: "EUR"},
		},
		{
			name:     "generic markup infers currency from context",
			html:     `<span class="sym">₹</span><span class="a-price-whole">1,234</span>`,
			expected: "",
			want:     models.PriceRecord{Original: "₹1,234", Discounted: "₹1,234", Currency: "INR"},
		},
		{
			name:     "generic markup defaults to dollars",
			html:     `<span class="a-price-whole">1,234</span>`,
			expected: "",
			want:     models.PriceRecord{Original: "$1,234", Discounted: "$1,234", Currency: "USD"},
		},
		{
			name:     "nothing found",
			html:     `<p>no price here</p>`,
			expected: "USD",
			want:     models.PriceRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPrice(tt.html, tt.expected, ModeStructured)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Original, got.Discounted)
		})
	}
}

func TestExtractPriceFallback(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
		want     models.PriceRecord
	}{
		{
			name:     "real page uses strict range",
			html:     `<span id="productTitle">Widget</span><div class="a-price">$0.50</div>`,
			expected: "USD",
			want:     models.PriceRecord{},
		},
		{
			name:     "degraded page uses lenient range",
			html:     `<div>$0.50</div>`,
			expected: "USD",
			want:     models.PriceRecord{Original: "$0.50", Discounted: "$0.50", Currency: "USD"},
		},
		{
			name:     "challenge page still yields a price",
			html:     `<title>Robot Check</title><span id="productTitle"></span><div class="a-price">$25.00</div>`,
			expected: "USD",
			want:     models.PriceRecord{Original: "$25.00", Discounted: "$25.00", Currency: "USD"},
		},
		{
			name:     "later valid match is used",
			html:     `<div>$0 and $19.99</div>`,
			expected: "USD",
			want:     models.PriceRecord{Original: "$19.99", Discounted: "$19.99", Currency: "USD"},
		},
		{
			name:     "bare number takes expected currency",
			html:     `<div>only 99.50 left</div>`,
			expected: "GBP",
			want:     models.PriceRecord{Original: "£99.50", Discounted: "£99.50", Currency: "GBP"},
		},
		{
			name:     "bare number needs an expected currency",
			html:     `<div>only 99.50 left</div>`,
			expected: "",
			want:     models.PriceRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPrice(tt.html, tt.expected, ModeFallback))
		})
	}
}

func TestValidPrice(t *testing.T) {
	tests := []struct {
		value string
		r     priceRange
		want  bool
	}{
		{"0", strictRange, false},
		{"5", strictRange, false},
		{"0.5", strictRange, false},
		{"1.00", strictRange, true},
		{"1,000", strictRange, true},
		{"1,000,000", strictRange, true},
		{"1000001", strictRange, false},
		{"$49.99", strictRange, true},
		{"abc", strictRange, false},
		{"1.2.3", strictRange, false},
		{"0.01", lenientRange, true},
		{"0.00", lenientRange, false},
		{"10,000,000", lenientRange, true},
		{"10,000,001", lenientRange, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, validPrice(tt.value, tt.r))
		})
	}
}

func TestCurrencyTableOrder(t *testing.T) {
	inr := currencyTable("INR")
	assert.Equal(t, "INR", inr[0].currency)
	assert.Equal(t, "AUD", inr[len(inr)-1].currency)

	usd := currencyTable("USD")
	assert.Equal(t, "GBP", usd[0].currency)
	assert.Equal(t, "INR", usd[len(usd)-1].currency)
	assert.Len(t, usd, len(inr))
}
