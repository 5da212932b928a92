package market

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable marks a single source failure. Callers recover it as
// zero observations; it never crosses the comparator boundary.
var ErrUnavailable = errors.New("market: source unavailable")

// Observation is one vendor's reported price for a queried product.
type Observation struct {
	Vendor string          `json:"source"`
	Price  decimal.Decimal `json:"price"`
	URL    string          `json:"url,omitempty"`
}

// SampleSource yields market price observations for a product query.
type SampleSource interface {
	Sample(ctx context.Context, name, category string) ([]Observation, error)
}
