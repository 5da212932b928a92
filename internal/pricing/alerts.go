package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/alerting"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

var oneHundred = decimal.NewFromInt(100)

// AlertEvaluator decides whether a catalog price diverges from the
// market estimate enough to record an alert. It is a pure decision plus
// one conditional persist; there is no state machine here.
type AlertEvaluator struct {
	store    storage.AlertStore
	notifier alerting.Notifier
	// threshold is a ratio, e.g. 0.10 for the reference 10%.
	threshold decimal.Decimal
	logger    zerolog.Logger
}

// NewAlertEvaluator constructs an evaluator. thresholdPct is expressed
// in percent (10 means 10%).
func NewAlertEvaluator(store storage.AlertStore, notifier alerting.Notifier, thresholdPct float64, logger zerolog.Logger) *AlertEvaluator {
	return &AlertEvaluator{
		store:     store,
		notifier:  notifier,
		threshold: decimal.NewFromFloat(thresholdPct).Div(oneHundred),
		logger:    logger.With().Str("component", "alert_evaluator").Logger(),
	}
}

// Evaluate compares the product's recorded price against the market
// average and persists an alert when the deviation exceeds the
// threshold. A product with no recorded price never alerts.
func (e *AlertEvaluator) Evaluate(ctx context.Context, product storage.Product, marketAvg decimal.Decimal) (*storage.PriceAlert, error) {
	if product.Price == nil {
		return nil, nil
	}

	oldPrice := *product.Price
	if oldPrice.IsZero() {
		return nil, nil
	}

	deviation := oldPrice.Sub(marketAvg).Abs().Div(oldPrice)
	if deviation.LessThanOrEqual(e.threshold) {
		return nil, nil
	}

	alert := storage.PriceAlert{
		ProductID:        product.ID,
		OldPrice:         oldPrice,
		NewPrice:         marketAvg,
		VariationPercent: Variation(oldPrice, marketAvg),
	}

	if e.store != nil {
		persisted, err := e.store.InsertPriceAlert(ctx, alert)
		if err != nil {
			return nil, fmt.Errorf("persist price alert: %w", err)
		}
		alert = persisted
	}

	e.notify(ctx, product, alert)
	return &alert, nil
}

func (e *AlertEvaluator) notify(ctx context.Context, product storage.Product, alert storage.PriceAlert) {
	if e.notifier == nil {
		return
	}

	note := alerting.Notification{
		ProductID:    product.ID,
		ProductName:  product.Name,
		CatalogPrice: alert.OldPrice,
		MarketAvg:    alert.NewPrice,
		VariationPct: alert.VariationPercent,
		ThresholdPct: e.threshold.Mul(oneHundred),
		Direction:    classifyVariation(alert.VariationPercent),
		DetectedAt:   time.Now().UTC(),
	}
	if err := e.notifier.Notify(ctx, note); err != nil {
		e.logger.Error().Err(err).Int64("product_id", product.ID).Msg("failed to dispatch alert")
	}
}

// Variation computes the signed percentage change from oldPrice to
// newPrice, so alerts distinguish market-below from market-above.
func Variation(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	return newPrice.Sub(oldPrice).Div(oldPrice).Mul(oneHundred)
}

func classifyVariation(v decimal.Decimal) string {
	switch v.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}
