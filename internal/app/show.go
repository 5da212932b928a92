package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/storage"
)

// Alerts prints recent price alerts, newest first.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tProduct\tCatalog\tMarket Avg\tVariation%")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			sanitizeInline(alert.ProductName),
			alert.OldPrice.StringFixed(2),
			alert.NewPrice.StringFixed(2),
			alert.VariationPercent.StringFixed(2),
		)
	}

	writer.Flush()
	return nil
}

// Scraped prints stored scraped items, newest first.
func (a *App) Scraped(ctx context.Context, opts ScrapedOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	filter := storage.ScrapedFilter{
		Categoria: opts.Categoria,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	}
	if opts.PrecioMin > 0 {
		value := decimal.NewFromFloat(opts.PrecioMin)
		filter.PrecioMin = &value
	}
	if opts.PrecioMax > 0 {
		value := decimal.NewFromFloat(opts.PrecioMax)
		filter.PrecioMax = &value
	}

	items, err := store.ListScraped(ctx, filter)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stdout, "no scraped items found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Scraped (UTC)\tPrice\tCategory\tName\tLink")

	for _, item := range items {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			item.FechaScraping.UTC().Format(time.RFC3339),
			item.Precio.StringFixed(2),
			item.Categoria,
			sanitizeInline(item.Nombre),
			item.Link,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
