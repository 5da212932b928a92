package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/config"
	"github.com/JosueCoro/mobicorp/internal/market"
	"github.com/JosueCoro/mobicorp/internal/pricing"
	"github.com/JosueCoro/mobicorp/internal/scraper"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

// panicFetcher fails the test if validation ever lets a request through.
type panicFetcher struct{ t *testing.T }

func (p *panicFetcher) FetchPoint(ctx context.Context, categoryURL string, price int) ([]scraper.Listing, error) {
	p.t.Fatal("fetch must not happen for invalid input")
	return nil, nil
}

type stubProducts struct {
	product storage.Product
	err     error
}

func (s *stubProducts) GetProduct(ctx context.Context, id int64) (storage.Product, error) {
	if s.err != nil {
		return storage.Product{}, s.err
	}
	return s.product, nil
}

func (s *stubProducts) ListProducts(ctx context.Context, limit, offset int) ([]storage.Product, error) {
	return nil, nil
}

func newValidationService(t *testing.T) *Service {
	cfg := &config.Config{}
	cfg.Scraper.Categories = config.DefaultCategories()
	sweeper := scraper.NewSweeper(&panicFetcher{t: t}, nil, "test", zerolog.Nop())
	return New(cfg, sweeper, nil, nil, nil, nil, nil, zerolog.Nop())
}

func TestSweepValidation(t *testing.T) {
	svc := newValidationService(t)

	cases := []struct {
		name   string
		params SweepParams
	}{
		{"unknown category", SweepParams{CategoryID: 99, MinPrice: 0, MaxPrice: 10}},
		{"negative min", SweepParams{CategoryID: 1, MinPrice: -1, MaxPrice: 10}},
		{"max below min", SweepParams{CategoryID: 1, MinPrice: 50, MaxPrice: 10}},
		{"negative delay", SweepParams{CategoryID: 1, MinPrice: 0, MaxPrice: 10, Delay: -time.Second}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Sweep(context.Background(), tc.params)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSuggestUnknownProduct(t *testing.T) {
	cfg := &config.Config{}
	svc := New(cfg, nil, nil, &stubProducts{err: storage.ErrNotFound}, nil, nil, nil, zerolog.Nop())

	_, err := svc.Suggest(context.Background(), 404)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestSuggestStoreFailurePassesThrough(t *testing.T) {
	cfg := &config.Config{}
	storeErr := errors.New("connection refused")
	svc := New(cfg, nil, nil, &stubProducts{err: storeErr}, nil, nil, nil, zerolog.Nop())

	_, err := svc.Suggest(context.Background(), 1)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected the store error to pass through, got %v", err)
	}
	if errors.Is(err, ErrProductNotFound) {
		t.Fatal("an infrastructure failure must not masquerade as not-found")
	}
}

type pairSource struct{}

func (pairSource) Sample(ctx context.Context, name, category string) ([]market.Observation, error) {
	return []market.Observation{
		{Vendor: "Agimex", Price: decimal.RequireFromString("95")},
		{Vendor: "Blau", Price: decimal.RequireFromString("105")},
	}, nil
}

type recordingComparisons struct {
	inserted []storage.PriceComparison
}

func (r *recordingComparisons) InsertComparison(ctx context.Context, c storage.PriceComparison) (storage.PriceComparison, error) {
	c.ID = int64(len(r.inserted) + 1)
	r.inserted = append(r.inserted, c)
	return c, nil
}

func (r *recordingComparisons) ListComparisons(ctx context.Context, productID int64, limit, offset int) ([]storage.PriceComparison, error) {
	return r.inserted, nil
}

func TestSuggestMapsComparison(t *testing.T) {
	cfg := &config.Config{}
	comparisons := &recordingComparisons{}
	comparator := pricing.NewComparator([]market.SampleSource{pairSource{}}, comparisons, nil, zerolog.Nop())
	products := &stubProducts{product: storage.Product{ID: 1, Name: "Silla Ejecutiva", Category: "Sillas"}}
	svc := New(cfg, nil, comparator, products, nil, nil, nil, zerolog.Nop())

	suggestion, err := svc.Suggest(context.Background(), 1)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}

	if !suggestion.SuggestedPrice.Equal(decimal.RequireFromString("100")) {
		t.Errorf("suggested = %s, want 100", suggestion.SuggestedPrice)
	}
	if !suggestion.MinPrice.Equal(decimal.RequireFromString("95")) || !suggestion.MaxPrice.Equal(decimal.RequireFromString("105")) {
		t.Errorf("bounds = [%s, %s], want [95, 105]", suggestion.MinPrice, suggestion.MaxPrice)
	}
	if len(suggestion.MarketSources) != 2 {
		t.Errorf("expected 2 market sources, got %d", len(suggestion.MarketSources))
	}
	if suggestion.ComparisonID != 1 {
		t.Errorf("comparison id = %d, want the persisted id 1", suggestion.ComparisonID)
	}
}
