package pricing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/market"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

// ErrNoMarketData indicates every configured source failed or returned
// nothing. Surfaced to the caller as a not-found condition; nothing is
// persisted.
var ErrNoMarketData = errors.New("pricing: no market data for product")

// Comparator turns noisy market observations into one comparison
// snapshot per product. The suggestion policy is the arithmetic mean of
// the filtered observations: the simplest correct baseline, deliberately
// free of outlier trimming or vendor weighting so it stays easy to
// replace.
type Comparator struct {
	sources   []market.SampleSource
	store     storage.ComparisonStore
	evaluator *AlertEvaluator
	logger    zerolog.Logger
}

// NewComparator constructs a market comparator over the given sources.
func NewComparator(sources []market.SampleSource, store storage.ComparisonStore, evaluator *AlertEvaluator, logger zerolog.Logger) *Comparator {
	return &Comparator{
		sources:   sources,
		store:     store,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "comparator").Logger(),
	}
}

// Compare samples all sources for the product, aggregates the valid
// observations, persists the snapshot and runs alert evaluation as a
// side effect. Alert failures are logged, never escalated; the
// comparison stands on its own.
func (c *Comparator) Compare(ctx context.Context, product storage.Product) (storage.PriceComparison, []market.Observation, error) {
	observations := c.collect(ctx, product)
	if len(observations) == 0 {
		return storage.PriceComparison{}, nil, ErrNoMarketData
	}

	minPrice := observations[0].Price
	maxPrice := observations[0].Price
	sum := decimal.Zero
	for _, obs := range observations {
		if obs.Price.LessThan(minPrice) {
			minPrice = obs.Price
		}
		if obs.Price.GreaterThan(maxPrice) {
			maxPrice = obs.Price
		}
		sum = sum.Add(obs.Price)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(observations))))

	comparison := storage.PriceComparison{
		ProductID:      product.ID,
		MinPrice:       minPrice,
		MaxPrice:       maxPrice,
		AvgPrice:       avg,
		SuggestedPrice: avg,
		SourceCount:    len(observations),
	}

	if c.store != nil {
		persisted, err := c.store.InsertComparison(ctx, comparison)
		if err != nil {
			return storage.PriceComparison{}, nil, err
		}
		comparison = persisted
	}

	if c.evaluator != nil {
		if _, err := c.evaluator.Evaluate(ctx, product, avg); err != nil {
			c.logger.Error().Err(err).Int64("product_id", product.ID).Msg("alert evaluation failed")
		}
	}

	c.logger.Info().
		Int64("product_id", product.ID).
		Int("sources", comparison.SourceCount).
		Str("avg_price", avg.String()).
		Msg("comparison recorded")

	return comparison, observations, nil
}

// collect fans in observations across sources. A failing source is
// logged and contributes nothing; observations with non-positive prices
// are dropped before aggregation.
func (c *Comparator) collect(ctx context.Context, product storage.Product) []market.Observation {
	observations := make([]market.Observation, 0)
	for _, source := range c.sources {
		sampled, err := source.Sample(ctx, product.Name, product.Category)
		if err != nil {
			c.logger.Warn().Err(err).Str("product", product.Name).Msg("market source failed, skipping")
			continue
		}
		for _, obs := range sampled {
			if obs.Vendor == "" || !obs.Price.IsPositive() {
				continue
			}
			observations = append(observations, obs)
		}
	}
	return observations
}
