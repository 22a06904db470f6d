package parser

import (
	"regexp"
	"strings"
)

var boilerplatePrefixes = []string{
	"About this item",
	"About this Item",
	"ABOUT THIS ITEM",
	"Product Description",
	"Description",
	"Features:",
	"Features :",
	"FEATURES:",
	"FEATURES :",
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// minDescriptionLength is exclusive: a description must be longer than this.
const minDescriptionLength = 20

// CleanDescription strips boilerplate headings, decodes a fixed set of HTML
// entities, removes tags and normalizes whitespace. Passes repeat until the
// text is stable, which makes the function idempotent.
func CleanDescription(text string) string {
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range boilerplatePrefixes {
		text = strings.TrimPrefix(text, prefix)
	}

	text = whitespaceRun.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = htmlTag.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func acceptDescription(text string) (string, bool) {
	cleaned := CleanDescription(text)
	if len(cleaned) > minDescriptionLength {
		return cleaned, true
	}
	return "", false
}
