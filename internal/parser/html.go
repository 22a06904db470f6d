package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/amazon-product-agent/internal/models"
)

const maxBasicImages = 5

var (
	titleSelectors = []string{
		"span#productTitle",
		"h1#title",
		"h1.a-size-large",
		`[data-automation-id="product-title"]`,
	}
	priceSelectors = []string{
		"span.a-price-whole",
		"span.a-price.a-text-price span.a-offscreen",
		"span.a-price.a-text-price",
		".a-price .a-offscreen",
	}
	descriptionSelectors = []string{
		"#feature-bullets",
		"#productDescription",
		".a-expander-content",
		".a-section.a-spacing-base",
		`[data-automation-id="feature-bullets"]`,
	}
	imageSelectors = []string{
		"img[data-old-hires]",
		"img[data-a-dynamic-image]",
		".a-dynamic-image",
	}
)

// ParseBasicHTML reads a product page through CSS selectors. The price is
// the first matching element's text with no currency detection.
func ParseBasicHTML(html string) Outcome {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Failed("parse html: " + err.Error())
	}

	price := firstText(doc, priceSelectors)

	var description string
	for _, sel := range descriptionSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if d, ok := acceptDescription(s.Text()); ok {
			description = d
			break
		}
	}

	images := newURLSet()
	for _, sel := range imageSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("data-old-hires")
			if !ok || src == "" {
				src = s.AttrOr("src", "")
			}
			images.add(src)
		})
	}
	urls := images.list()
	if len(urls) > maxBasicImages {
		urls = urls[:maxBasicImages]
	}

	return Parsed(models.ProductRecord{
		ProductName: firstText(doc, titleSelectors),
		Price:       models.PriceRecord{Original: price, Discounted: price},
		Description: description,
		Variants:    []string{},
		ImageURLs:   urls,
	})
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return strings.TrimSpace(s.Text())
		}
	}
	return ""
}

var (
	// Element ids first, the page <title> last.
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<span[^>]*id="productTitle"[^>]*>(.*?)</span>`),
		regexp.MustCompile(`(?is)<h1[^>]*id="title"[^>]*>(.*?)</h1>`),
		regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`),
	}
	descriptionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<div[^>]*id="feature-bullets"[^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<div[^>]*id="productDescription"[^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<div[^>]*class="[^"]*a-expander-content[^"]*"[^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<div[^>]*class="[^"]*a-section[^"]*"[^>]*>.*?About this item.*?(.*?)</div>`),
		regexp.MustCompile(`(?is)<span[^>]*class="[^"]*a-list-item[^"]*"[^>]*>(.*?)</span>`),
		regexp.MustCompile(`(?is)<div[^>]*class="[^"]*a-spacing-base[^"]*"[^>]*>(.*?)</div>`),
	}
	imagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)data-old-hires="([^"]+)"`),
		regexp.MustCompile(`(?i)data-a-dynamic-image="([^"]+)"`),
		regexp.MustCompile(`(?i)src="([^"]*amazon[^"]*\.(?:jpg|jpeg|png|webp)[^"]*)"`),
	}
	embeddedImageURL = regexp.MustCompile(`"([^"]*amazon[^"]*\.(?:jpg|jpeg|png|webp)[^"]*)"`)

	titleEntities = strings.NewReplacer("&#39;", "'", "&amp;", "&")
	urlEntities   = strings.NewReplacer("&quot;", `"`, "&#39;", "'")
)

// ParseEnhancedHTML reads a product page with regular expressions and
// detects the price currency. Bot-challenge pages yield an empty outcome so
// the caller moves on without retrying.
func ParseEnhancedHTML(html, expectedCurrency string) Outcome {
	if IsChallengePage(html) {
		return Empty("bot challenge page")
	}

	var name string
	for _, re := range titlePatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			name = strings.TrimSpace(htmlTag.ReplaceAllString(m[1], ""))
			name = titleEntities.Replace(name)
			break
		}
	}

	var description string
	for _, re := range descriptionPatterns {
		m := re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		if d, ok := acceptDescription(htmlTag.ReplaceAllString(m[1], "")); ok {
			description = d
			break
		}
	}

	return Parsed(models.ProductRecord{
		ProductName: name,
		Price:       ExtractPrice(html, expectedCurrency, ModeFallback),
		Description: description,
		Variants:    []string{},
		ImageURLs:   enhancedImages(html),
	})
}

// enhancedImages collects image URLs from all patterns. Attribute values
// holding a JSON object of URLs (data-a-dynamic-image) are unwrapped.
func enhancedImages(html string) []string {
	raw := newURLSet()
	for _, re := range imagePatterns {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			raw.add(urlEntities.Replace(m[1]))
		}
	}

	out := newURLSet()
	for _, u := range raw.order {
		if strings.HasPrefix(u, "{") && strings.HasSuffix(u, "}") {
			for _, m := range embeddedImageURL.FindAllStringSubmatch(u, -1) {
				out.add(m[1])
			}
			continue
		}
		out.add(u)
	}
	return out.list()
}
