package models

// PriceRecord holds display prices. The zero value is the valid "no price
// found" state and serializes as three empty strings.
type PriceRecord struct {
	Original   string `json:"original"`
	Discounted string `json:"discounted"`
	Currency   string `json:"currency"`
}

func (p PriceRecord) IsEmpty() bool {
	return p.Original == "" && p.Discounted == "" && p.Currency == ""
}

// Display returns the discounted price, falling back to the original.
func (p PriceRecord) Display() string {
	if p.Discounted != "" {
		return p.Discounted
	}
	return p.Original
}

type ProductRecord struct {
	ProductName  string      `json:"product_name"`
	Price        PriceRecord `json:"price"`
	Description  string      `json:"description"`
	Variants     []string    `json:"variants"`
	ImageURLs    []string    `json:"image_urls"`
	SourceMethod string      `json:"source_method"`
	ASIN         string      `json:"asin"`
}

// WithSource returns a copy of r tagged with the producing strategy and
// identifier. Nil slices become empty so the JSON shape is stable.
func (r ProductRecord) WithSource(method, asin string) *ProductRecord {
	out := r
	out.SourceMethod = method
	out.ASIN = asin
	out.Variants = append([]string{}, r.Variants...)
	out.ImageURLs = append([]string{}, r.ImageURLs...)
	return &out
}

// ErrorRecord is the terminal failure of a resolution. It doubles as a Go
// error that unwraps to the sentinel describing its kind.
type ErrorRecord struct {
	Message          string   `json:"error"`
	ASIN             string   `json:"asin,omitempty"`
	InputReceived    string   `json:"input_received,omitempty"`
	TriedMethods     []string `json:"tried_methods,omitempty"`
	SupportedFormats []string `json:"supported_formats,omitempty"`
	Suggestion       string   `json:"suggestion,omitempty"`

	Cause error `json:"-"`
}

func (e *ErrorRecord) Error() string {
	return e.Message
}

func (e *ErrorRecord) Unwrap() error {
	return e.Cause
}
