package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/maltedev/amazon-product-agent/internal/models"
)

// jsonText accepts a JSON string or number and keeps its literal text.
// Providers are inconsistent about quoting prices.
type jsonText string

func (t *jsonText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = jsonText(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*t = jsonText(data)
	default:
		*t = ""
	}
	return nil
}

type rainforestResponse struct {
	Product *struct {
		Title     jsonText `json:"title"`
		ListPrice struct {
			Value jsonText `json:"value"`
		} `json:"list_price"`
		Price struct {
			Value jsonText `json:"value"`
		} `json:"price"`
		FeatureBullets []jsonText `json:"feature_bullets"`
		Variants       []struct {
			Title jsonText `json:"title"`
		} `json:"variants"`
		Images []struct {
			Link jsonText `json:"link"`
		} `json:"images"`
	} `json:"product"`
}

// ParseRainforest parses a Rainforest product response. Prices are passed
// through as the provider reports them, without a currency.
func ParseRainforest(body []byte) Outcome {
	var resp rainforestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Failed("decode rainforest response: " + err.Error())
	}
	if resp.Product == nil {
		return Empty("response has no product")
	}
	p := resp.Product

	bullets := make([]string, 0, len(p.FeatureBullets))
	for _, b := range p.FeatureBullets {
		bullets = append(bullets, string(b))
	}

	variants := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, string(v.Title))
	}

	images := newURLSet()
	for _, img := range p.Images {
		images.add(string(img.Link))
	}

	return Parsed(models.ProductRecord{
		ProductName: strings.TrimSpace(string(p.Title)),
		Price: models.PriceRecord{
			Original:   string(p.ListPrice.Value),
			Discounted: string(p.Price.Value),
		},
		Description: strings.Join(bullets, " "),
		Variants:    variants,
		ImageURLs:   images.list(),
	})
}

type rapidAPIResponse struct {
	Products []struct {
		Title         jsonText          `json:"title"`
		OriginalPrice jsonText          `json:"original_price"`
		CurrentPrice  jsonText          `json:"current_price"`
		Description   jsonText          `json:"description"`
		Variants      []json.RawMessage `json:"variants"`
		Image         jsonText          `json:"image"`
	} `json:"products"`
}

// ParseRapidAPI parses a RapidAPI product search response, using the first
// product only.
func ParseRapidAPI(body []byte) Outcome {
	var resp rapidAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Failed("decode rapidapi response: " + err.Error())
	}
	if len(resp.Products) == 0 {
		return Empty("response has no products")
	}
	p := resp.Products[0]

	images := newURLSet()
	images.add(string(p.Image))

	return Parsed(models.ProductRecord{
		ProductName: strings.TrimSpace(string(p.Title)),
		Price: models.PriceRecord{
			Original:   string(p.OriginalPrice),
			Discounted: string(p.CurrentPrice),
		},
		Description: string(p.Description),
		Variants:    variantNames(p.Variants),
		ImageURLs:   images.list(),
	})
}

// variantNames accepts either plain strings or objects with a title.
func variantNames(raw []json.RawMessage) []string {
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			names = append(names, s)
			continue
		}
		var obj struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(r, &obj); err == nil && obj.Title != "" {
			names = append(names, obj.Title)
		}
	}
	return names
}

// urlSet keeps unique, non-empty URLs in insertion order.
type urlSet struct {
	seen  map[string]struct{}
	order []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) add(u string) {
	u = strings.TrimSpace(u)
	if u == "" {
		return
	}
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.order = append(s.order, u)
}

func (s *urlSet) list() []string {
	return append([]string{}, s.order...)
}
