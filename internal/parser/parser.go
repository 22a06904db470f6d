// Package parser converts raw provider responses into product records and
// extracts currency-aware prices from unstructured page text.
package parser

import (
	"github.com/maltedev/amazon-product-agent/internal/models"
)

type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one parse. Parsers never panic or return Go
// errors; a malformed response becomes StatusError with a reason.
type Outcome struct {
	Status Status
	Record models.ProductRecord
	Reason string
}

func Parsed(rec models.ProductRecord) Outcome {
	if rec.ProductName == "" {
		return Empty("no product name")
	}
	return Outcome{Status: StatusOK, Record: rec}
}

func Empty(reason string) Outcome {
	return Outcome{Status: StatusEmpty, Reason: reason}
}

func Failed(reason string) Outcome {
	return Outcome{Status: StatusError, Reason: reason}
}

func (o Outcome) OK() bool {
	return o.Status == StatusOK
}
