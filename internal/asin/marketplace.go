package asin

import "strings"

// Marketplace is a regional Amazon storefront with its default currency.
type Marketplace struct {
	Code     string
	Domain   string
	Currency string
	Symbol   string
}

var (
	US        = Marketplace{Code: "US", Domain: "amazon.com", Currency: "USD", Symbol: "$"}
	India     = Marketplace{Code: "IN", Domain: "amazon.in", Currency: "INR", Symbol: "₹"}
	UK        = Marketplace{Code: "GB", Domain: "amazon.co.uk", Currency: "GBP", Symbol: "£"}
	Canada    = Marketplace{Code: "CA", Domain: "amazon.ca", Currency: "CAD", Symbol: "C$"}
	Germany   = Marketplace{Code: "DE", Domain: "amazon.de", Currency: "EUR", Symbol: "€"}
	France    = Marketplace{Code: "FR", Domain: "amazon.fr", Currency: "EUR", Symbol: "€"}
	Italy     = Marketplace{Code: "IT", Domain: "amazon.it", Currency: "EUR", Symbol: "€"}
	Spain     = Marketplace{Code: "ES", Domain: "amazon.es", Currency: "EUR", Symbol: "€"}
	Australia = Marketplace{Code: "AU", Domain: "amazon.com.au", Currency: "AUD", Symbol: "A$"}
	Brazil    = Marketplace{Code: "BR", Domain: "amazon.com.br", Currency: "BRL", Symbol: "R$"}
	Japan     = Marketplace{Code: "JP", Domain: "amazon.co.jp", Currency: "JPY", Symbol: "¥"}
)

// Country domains are checked before the bare amazon.com default, which is
// a substring of several of them.
var marketplaces = []Marketplace{
	India, UK, Canada, Germany, France, Italy, Spain, Australia, Brazil, Japan,
}

// ResolveMarketplace infers the storefront from hostname fragments found
// anywhere in input. Unmatched input resolves to US.
func ResolveMarketplace(input string) Marketplace {
	lower := strings.ToLower(input)
	for _, m := range marketplaces {
		if strings.Contains(lower, m.Domain) {
			return m
		}
	}
	return US
}

// SymbolFor returns the display symbol for an ISO currency code, or "" if
// the code belongs to no known marketplace.
func SymbolFor(currency string) string {
	if currency == US.Currency {
		return US.Symbol
	}
	for _, m := range marketplaces {
		if m.Currency == currency {
			return m.Symbol
		}
	}
	return ""
}
