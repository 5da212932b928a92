package scraper

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/storage"
)

// PointFetcher is the single capability the sweep needs from the
// catalog site.
type PointFetcher interface {
	FetchPoint(ctx context.Context, categoryURL string, price int) ([]Listing, error)
}

// SweepOptions parameterise one range sweep.
type SweepOptions struct {
	MinPrice     int
	MaxPrice     int
	CategoryURL  string
	CategoryName string
	// Delay is the fixed pause between price points. One outstanding
	// request to the target site at a time.
	Delay time.Duration
}

// SweepStats summarises the distinct price points that surfaced items.
type SweepStats struct {
	PreciosDiferentes int   `json:"precios_diferentes"`
	Precios           []int `json:"precios"`
	PrecioMin         int   `json:"precio_min"`
	PrecioMax         int   `json:"precio_max"`
}

// SweepResult is the summary returned by every sweep, even when all
// price points failed.
type SweepResult struct {
	TotalProductos      int                   `json:"total_productos"`
	ProductosNuevos     int                   `json:"productos_nuevos"`
	ProductosDuplicados int                   `json:"productos_duplicados"`
	Productos           []storage.ScrapedItem `json:"productos"`
	Estadisticas        SweepStats            `json:"estadisticas"`
}

// Sweeper enumerates a catalog category by driving the fetcher across
// successive exact-price filters and persisting novel discoveries.
type Sweeper struct {
	fetcher PointFetcher
	store   storage.ScrapedItemStore
	source  string
	logger  zerolog.Logger
}

// NewSweeper constructs a range sweeper.
func NewSweeper(fetcher PointFetcher, store storage.ScrapedItemStore, source string, logger zerolog.Logger) *Sweeper {
	if source == "" {
		source = "livingroom.com.bo"
	}
	return &Sweeper{
		fetcher: fetcher,
		store:   store,
		source:  source,
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

// Sweep visits every integer price in [MinPrice, MaxPrice] in ascending
// order, deduplicates by link within the run and against the store, and
// commits staged inserts once at the end. Individual point failures are
// logged and skipped; only context cancellation interrupts the run, and
// even then the partial summary is returned alongside ctx.Err().
func (s *Sweeper) Sweep(ctx context.Context, opts SweepOptions) (SweepResult, error) {
	seen := make(map[string]int)
	staged := make([]storage.ScrapedItem, 0)
	result := SweepResult{Productos: []storage.ScrapedItem{}}

	now := time.Now().UTC()

	for price := opts.MinPrice; price <= opts.MaxPrice; price++ {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, &result, seen, staged)
			return result, err
		}

		listings, err := s.fetcher.FetchPoint(ctx, opts.CategoryURL, price)
		if err != nil {
			s.logger.Warn().Err(err).Int("price", price).Msg("price point failed, continuing")
		}

		for _, listing := range listings {
			if listing.Link == "" {
				continue
			}
			if _, dup := seen[listing.Link]; dup {
				// same item surfaced by a nearby filter value
				continue
			}
			seen[listing.Link] = price

			exists, existsErr := s.store.LinkExists(ctx, listing.Link)
			if existsErr != nil {
				s.logger.Error().Err(existsErr).Str("link", listing.Link).Msg("store lookup failed, treating item as new")
			}
			if exists {
				result.ProductosDuplicados++
				continue
			}

			staged = append(staged, storage.ScrapedItem{
				Nombre:        listing.Nombre,
				Precio:        decimal.NewFromInt(int64(price)),
				Categoria:     opts.CategoryName,
				Link:          listing.Link,
				Imagen:        listing.Imagen,
				Fuente:        s.source,
				FechaScraping: now,
			})
			result.ProductosNuevos++
		}

		if price < opts.MaxPrice && opts.Delay > 0 {
			if err := sleepCtx(ctx, opts.Delay); err != nil {
				s.finish(ctx, &result, seen, staged)
				return result, err
			}
		}
	}

	s.finish(ctx, &result, seen, staged)

	s.logger.Info().
		Str("category", opts.CategoryName).
		Int("min_price", opts.MinPrice).
		Int("max_price", opts.MaxPrice).
		Int("total", result.TotalProductos).
		Int("new", result.ProductosNuevos).
		Int("duplicates", result.ProductosDuplicados).
		Msg("sweep completed")

	return result, nil
}

// finish commits staged inserts and fills in the result summary.
func (s *Sweeper) finish(ctx context.Context, result *SweepResult, seen map[string]int, staged []storage.ScrapedItem) {
	result.TotalProductos = len(seen)
	result.Estadisticas = buildStats(seen)

	if len(staged) > 0 {
		if _, err := s.store.InsertScrapedItems(ctx, staged); err != nil {
			s.logger.Error().Err(err).Int("staged", len(staged)).Msg("failed to commit staged items")
		}
	}

	if len(seen) == 0 {
		return
	}

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	items, err := s.store.ListByLinks(ctx, links)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load persisted items, returning staged set")
		result.Productos = staged
		return
	}
	result.Productos = items
}

func buildStats(seen map[string]int) SweepStats {
	distinct := make(map[int]struct{})
	for _, price := range seen {
		distinct[price] = struct{}{}
	}

	prices := make([]int, 0, len(distinct))
	for price := range distinct {
		prices = append(prices, price)
	}
	sort.Ints(prices)

	stats := SweepStats{PreciosDiferentes: len(prices), Precios: prices}
	if len(prices) > 0 {
		stats.PrecioMin = prices[0]
		stats.PrecioMax = prices[len(prices)-1]
	}
	return stats
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
