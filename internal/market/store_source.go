package market

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JosueCoro/mobicorp/internal/storage"
)

// ScrapedSource turns previously swept catalog entries into market
// observations. Prices come from the sweep's filter values, so they are
// coarse; the comparator treats them like any other vendor sample.
type ScrapedSource struct {
	store  storage.ScrapedItemStore
	limit  int
	logger zerolog.Logger
}

// NewScrapedSource builds a source over the scraped-item store.
func NewScrapedSource(store storage.ScrapedItemStore, limit int, logger zerolog.Logger) *ScrapedSource {
	if limit <= 0 {
		limit = 50
	}
	return &ScrapedSource{
		store:  store,
		limit:  limit,
		logger: logger.With().Str("component", "scraped_source").Logger(),
	}
}

// Sample returns observations for stored items in the product's category.
func (s *ScrapedSource) Sample(ctx context.Context, name, category string) ([]Observation, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: scraped store not configured", ErrUnavailable)
	}

	items, err := s.store.ListScraped(ctx, storage.ScrapedFilter{
		Categoria: category,
		Limit:     s.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	observations := make([]Observation, 0, len(items))
	for _, item := range items {
		observations = append(observations, Observation{
			Vendor: item.Fuente,
			Price:  item.Precio,
			URL:    item.Link,
		})
	}

	s.logger.Debug().Str("category", category).Int("observations", len(observations)).Msg("scraped sample collected")
	return observations, nil
}

var _ SampleSource = (*ScrapedSource)(nil)
