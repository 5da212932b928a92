package market

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// vendorProfile describes one simulated competitor: its name, the
// asymmetric multiplicative noise band applied to the baseline price,
// and how its product URLs are shaped.
type vendorProfile struct {
	name    string
	low     float64
	high    float64
	urlTmpl string
}

// The fixed competitor roster. Bands are intentionally uneven so the
// simulated market is not centred on the baseline.
var vendorRoster = []vendorProfile{
	{name: "Agimex", low: 0.85, high: 1.15, urlTmpl: "https://agimex.com/productos/%s"},
	{name: "Corimexo", low: 0.90, high: 1.20, urlTmpl: "https://corimexo.com/buscar?q=%s"},
	{name: "Blau", low: 0.88, high: 1.12, urlTmpl: "https://blau.com/productos/%s"},
	{name: "Living Room", low: 0.92, high: 1.18, urlTmpl: "https://livingroom.com/item/%s"},
	{name: "Tua Casa", low: 0.85, high: 1.10, urlTmpl: "https://tuacasa.com/catalogo/%s"},
	{name: "La cuisine", low: 0.90, high: 1.15, urlTmpl: "https://lacuisine.com/productos/%s"},
}

// Baseline prices per category, in BOB.
var categoryBasePrices = map[string]float64{
	"alimentos":        25.0,
	"bebidas":          15.0,
	"limpieza":         20.0,
	"cuidado personal": 30.0,
	"hogar":            50.0,
	"tecnología":       500.0,
	"ropa":             80.0,
}

const defaultBasePrice = 35.0

// Synthetic derives a baseline price from category and name heuristics
// and perturbs it per vendor. It stands in for competitor sites that
// cannot be scraped directly.
type Synthetic struct {
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic constructs the simulated market source. A non-zero seed
// makes the jitter deterministic.
func NewSynthetic(seed int64, logger zerolog.Logger) *Synthetic {
	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}
	return &Synthetic{
		logger: logger.With().Str("component", "synthetic_source").Logger(),
		rng:    rng,
	}
}

// Sample emits one observation per roster vendor around the estimated
// baseline price.
func (s *Synthetic) Sample(ctx context.Context, name, category string) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := EstimateBasePrice(name, category)
	observations := make([]Observation, 0, len(vendorRoster))
	for _, vendor := range vendorRoster {
		jitter := vendor.low + s.random()*(vendor.high-vendor.low)
		price := decimal.NewFromFloat(base * jitter).Round(2)
		observations = append(observations, Observation{
			Vendor: vendor.name,
			Price:  price,
			URL:    fmt.Sprintf(vendor.urlTmpl, strings.ReplaceAll(name, " ", "-")),
		})
	}

	s.logger.Debug().Str("product", name).Float64("base_price", base).Int("vendors", len(observations)).Msg("synthetic sample generated")
	return observations, nil
}

func (s *Synthetic) random() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

// EstimateBasePrice maps a category to its baseline and scales it by a
// name-length multiplier: more specific product names tend to be pricier.
func EstimateBasePrice(name, category string) float64 {
	base, ok := categoryBasePrices[strings.ToLower(category)]
	if !ok {
		base = defaultBasePrice
	}
	multiplier := 1.0 + float64(len([]rune(name)))/100.0
	return base * multiplier
}

var _ SampleSource = (*Synthetic)(nil)
