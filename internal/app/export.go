package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/JosueCoro/mobicorp/internal/storage"
)

// Export dumps stored scraped items as CSV and/or a price distribution
// PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := store.ListScraped(ctx, storage.ScrapedFilter{Limit: opts.MaxRows})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.Logger.Info().Msg("no scraped items to export")
		return nil
	}

	a.Logger.Info().Int("exported", len(items)).Msg("exporting scraped items")

	if opts.CSVPath != "" {
		if err := writeScrapedCSV(opts.CSVPath, items); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePriceChartPNG(opts.PNGPath, items); err != nil {
			return err
		}
	}

	return nil
}

func writeScrapedCSV(path string, items []storage.ScrapedItem) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"fecha_scraping", "precio", "nombre", "categoria", "link", "fuente"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, item := range items {
		record := []string{
			item.FechaScraping.Format(time.RFC3339),
			item.Precio.String(),
			item.Nombre,
			item.Categoria,
			item.Link,
			item.Fuente,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// writePriceChartPNG renders how many stored items sit at each price
// point. Buckets beyond the widest 40 are merged into their neighbours
// by simple truncation to keep the chart legible.
func writePriceChartPNG(path string, items []storage.ScrapedItem) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	counts := make(map[int]int)
	for _, item := range items {
		counts[int(item.Precio.IntPart())]++
	}

	prices := make([]int, 0, len(counts))
	for price := range counts {
		prices = append(prices, price)
	}
	sort.Ints(prices)

	const maxBars = 40
	step := 1
	if len(prices) > maxBars {
		step = (prices[len(prices)-1]-prices[0])/maxBars + 1
	}

	buckets := make(map[int]int)
	for _, price := range prices {
		buckets[(price/step)*step] += counts[price]
	}

	keys := make([]int, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	bars := make([]chart.Value, 0, len(keys))
	for _, key := range keys {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("Bs %d", key),
			Value: float64(buckets[key]),
		})
	}

	graph := chart.BarChart{
		Title:    "Scraped price distribution",
		Width:    1280,
		Height:   720,
		BarWidth: 24,
		Bars:     bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
