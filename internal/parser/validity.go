package parser

import "strings"

var challengePhrases = []string{
	"sorry, we just need to make sure you're not a robot",
	"enter the characters you see below",
	"type the characters you see in this image",
	"to discuss automated access to amazon data please contact",
	"robot check",
	"captcha",
	"blocked",
}

var productMarkers = []string{
	"productTitle",
	"feature-bullets",
	"productDescription",
	"a-price",
	"a-offscreen",
	"data-old-hires",
	"data-a-dynamic-image",
}

const minProductMarkers = 2

// IsChallengePage reports whether html contains bot-wall or CAPTCHA wording.
func IsChallengePage(html string) bool {
	lower := strings.ToLower(html)
	for _, phrase := range challengePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsRealProduct reports whether html looks like a genuine product page: no
// challenge wording and at least two distinct product-page markers.
func IsRealProduct(html string) bool {
	if IsChallengePage(html) {
		return false
	}

	found := 0
	for _, marker := range productMarkers {
		if strings.Contains(html, marker) {
			found++
		}
	}
	return found >= minProductMarkers
}
