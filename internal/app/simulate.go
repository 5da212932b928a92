package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/pricing"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

// SimulateAlert 通过给定的目录/市场价格模拟一次告警流程。Nothing is
// persisted; only the configured notifier fires.
func (a *App) SimulateAlert(ctx context.Context, catalog, marketAvg decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	evaluator := pricing.NewAlertEvaluator(nil, a.newNotifier(), a.Config.Alerting.ThresholdPct, a.Logger)

	product := storage.Product{
		ID:       0,
		Name:     "simulated product",
		Category: "hogar",
		Price:    &catalog,
	}

	alert, err := evaluator.Evaluate(ctx, product, marketAvg)
	if err != nil {
		return err
	}
	if alert == nil {
		fmt.Fprintln(os.Stdout, "deviation within threshold, no alert")
		return nil
	}

	fmt.Fprintf(os.Stdout, "alert: catalog %s vs market %s, variation %s%%\n",
		alert.OldPrice.StringFixed(2), alert.NewPrice.StringFixed(2), alert.VariationPercent.StringFixed(2))
	return nil
}
