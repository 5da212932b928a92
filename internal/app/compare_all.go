package app

import (
	"context"
	"errors"

	"github.com/JosueCoro/mobicorp/internal/pricing"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

// CompareAllOptions configure the batch comparison job.
type CompareAllOptions struct {
	Limit  int
	Offset int
	DryRun bool
}

// CompareAll runs a market comparison for every catalog product in the
// selected page. Products without market data are counted as skipped,
// not failures.
func (a *App) CompareAll(ctx context.Context, opts CompareAllOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	var comparisonStore storage.ComparisonStore
	var alertStore storage.AlertStore
	if opts.DryRun {
		a.Logger.Warn().Msg("批量比较 dry-run：不会写入数据库")
	} else {
		comparisonStore = store
		alertStore = store
	}

	comparator := pricing.NewComparator(
		a.newSources(store),
		comparisonStore,
		pricing.NewAlertEvaluator(alertStore, a.newNotifier(), a.Config.Alerting.ThresholdPct, a.Logger),
		a.Logger,
	)

	products, err := store.ListProducts(ctx, opts.Limit, opts.Offset)
	if err != nil {
		return err
	}

	processed := 0
	skipped := 0
	failed := 0
	for _, product := range products {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, _, err := comparator.Compare(ctx, product); err != nil {
			if errors.Is(err, pricing.ErrNoMarketData) {
				skipped++
				continue
			}
			failed++
			a.Logger.Error().Err(err).Int64("product_id", product.ID).Msg("comparison failed")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("skipped", skipped).Int("failed", failed).Msg("批量比较完成")
	if failed > 0 {
		return errors.New("部分产品比较失败，请检查日志")
	}
	return nil
}
