// Package asin turns free-form user input into a canonical Amazon product
// identifier and the regional marketplace it belongs to.
package asin

import (
	"errors"
	"regexp"
	"strings"
)

var ErrNotFound = errors.New("no product identifier found in input")

// ASIN is a 10-character uppercase alphanumeric Amazon product code.
type ASIN string

func (a ASIN) String() string {
	return string(a)
}

var bareASIN = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Order matters: the loose path-segment pattern is last so that explicit
// URL markers win over unrelated 10-character segments.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/ASIN/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/d/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)asin=([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/([A-Z0-9]{10})(?:[/?]|$)`),
}

// Extract returns the identifier embedded in input, which may be a bare
// code or a product URL in any of the known shapes.
func Extract(input string) (ASIN, error) {
	candidate := strings.ToUpper(strings.TrimSpace(input))
	if bareASIN.MatchString(candidate) {
		return ASIN(candidate), nil
	}

	for _, re := range urlPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return ASIN(strings.ToUpper(m[1])), nil
		}
	}

	return "", ErrNotFound
}

// Valid reports whether s is already a canonical identifier.
func Valid(s string) bool {
	return bareASIN.MatchString(s)
}
