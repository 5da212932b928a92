package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/JosueCoro/mobicorp/internal/storage"
)

// fakeFetcher serves scripted listings per price point.
type fakeFetcher struct {
	pages map[int][]Listing
	fail  map[int]bool
	calls []int
}

func (f *fakeFetcher) FetchPoint(ctx context.Context, categoryURL string, price int) ([]Listing, error) {
	f.calls = append(f.calls, price)
	if f.fail[price] {
		return nil, fmt.Errorf("%w: scripted failure at %d", ErrUnavailable, price)
	}
	return f.pages[price], nil
}

// memStore is an in-memory ScrapedItemStore keyed by link.
type memStore struct {
	items  map[string]storage.ScrapedItem
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]storage.ScrapedItem)}
}

func (m *memStore) LinkExists(ctx context.Context, link string) (bool, error) {
	_, ok := m.items[link]
	return ok, nil
}

func (m *memStore) InsertScrapedItems(ctx context.Context, items []storage.ScrapedItem) (int64, error) {
	var inserted int64
	for _, item := range items {
		if _, ok := m.items[item.Link]; ok {
			continue
		}
		m.nextID++
		item.ID = m.nextID
		m.items[item.Link] = item
		inserted++
	}
	return inserted, nil
}

func (m *memStore) ListByLinks(ctx context.Context, links []string) ([]storage.ScrapedItem, error) {
	result := make([]storage.ScrapedItem, 0, len(links))
	for _, link := range links {
		if item, ok := m.items[link]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (m *memStore) ListScraped(ctx context.Context, filter storage.ScrapedFilter) ([]storage.ScrapedItem, error) {
	result := make([]storage.ScrapedItem, 0, len(m.items))
	for _, item := range m.items {
		result = append(result, item)
	}
	return result, nil
}

func (m *memStore) DeleteScraped(ctx context.Context, id int64) error { return nil }

func (m *memStore) Stats(ctx context.Context) (storage.ScrapedStats, error) {
	return storage.ScrapedStats{}, nil
}

var _ storage.ScrapedItemStore = (*memStore)(nil)

func listing(name, link string) Listing {
	return Listing{Nombre: name, Link: link}
}

func newTestSweeper(fetcher PointFetcher, store storage.ScrapedItemStore) *Sweeper {
	return NewSweeper(fetcher, store, "test-source", zerolog.Nop())
}

func TestSweepCrossPointDedup(t *testing.T) {
	// the same chair satisfies the filter at two adjacent price points
	fetcher := &fakeFetcher{pages: map[int][]Listing{
		100: {listing("Silla A", "https://x/p/a")},
		101: {listing("Silla A", "https://x/p/a"), listing("Silla B", "https://x/p/b")},
	}}
	store := newMemStore()

	result, err := newTestSweeper(fetcher, store).Sweep(context.Background(), SweepOptions{
		MinPrice: 100, MaxPrice: 101, CategoryURL: "https://x/cat", CategoryName: "Sillas",
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.TotalProductos != 2 || result.ProductosNuevos != 2 || result.ProductosDuplicados != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(store.items) != 2 {
		t.Fatalf("expected 2 persisted items, got %d", len(store.items))
	}
	if got := store.items["https://x/p/a"].Precio.IntPart(); got != 100 {
		t.Fatalf("first sighting should keep filter price 100, got %d", got)
	}
}

func TestSweepIdempotence(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]Listing{
		100: {listing("Silla A", "https://x/p/a")},
		101: {listing("Silla B", "https://x/p/b")},
	}}
	store := newMemStore()
	sweeper := newTestSweeper(fetcher, store)
	opts := SweepOptions{MinPrice: 100, MaxPrice: 101, CategoryURL: "https://x/cat", CategoryName: "Sillas"}

	first, err := sweeper.Sweep(context.Background(), opts)
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first.ProductosNuevos != 2 {
		t.Fatalf("first run should insert 2, got %d", first.ProductosNuevos)
	}

	second, err := sweeper.Sweep(context.Background(), opts)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.ProductosNuevos != 0 {
		t.Fatalf("second run should insert nothing, got %d", second.ProductosNuevos)
	}
	if second.ProductosDuplicados != second.TotalProductos {
		t.Fatalf("second run should report all items as duplicates: %+v", second)
	}
}

func TestSweepSinglePointKnownAndNew(t *testing.T) {
	store := newMemStore()
	if _, err := store.InsertScrapedItems(context.Background(), []storage.ScrapedItem{
		{Nombre: "Silla conocida", Link: "https://x/p/known", Categoria: "Sillas", Fuente: "test-source"},
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fetcher := &fakeFetcher{pages: map[int][]Listing{
		100: {listing("Silla conocida", "https://x/p/known"), listing("Silla nueva", "https://x/p/new")},
	}}

	result, err := newTestSweeper(fetcher, store).Sweep(context.Background(), SweepOptions{
		MinPrice: 100, MaxPrice: 100, CategoryURL: "https://x/cat", CategoryName: "Sillas",
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.ProductosNuevos != 1 || result.ProductosDuplicados != 1 || result.TotalProductos != 2 {
		t.Fatalf("expected 1/1/2, got %d/%d/%d", result.ProductosNuevos, result.ProductosDuplicados, result.TotalProductos)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int][]Listing{
			12: {listing("Silla A", "https://x/p/a")},
		},
		fail: map[int]bool{10: true, 11: true},
	}
	store := newMemStore()

	result, err := newTestSweeper(fetcher, store).Sweep(context.Background(), SweepOptions{
		MinPrice: 10, MaxPrice: 12, CategoryURL: "https://x/cat", CategoryName: "Sillas",
	})
	if err != nil {
		t.Fatalf("sweep should never raise on point failures: %v", err)
	}
	if len(fetcher.calls) != 3 {
		t.Fatalf("all 3 points should be visited, got %v", fetcher.calls)
	}
	if result.ProductosNuevos != 1 {
		t.Fatalf("surviving point should still insert, got %d", result.ProductosNuevos)
	}
}

func TestSweepAllPointsFailed(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[int]bool{1: true, 2: true}}
	store := newMemStore()

	result, err := newTestSweeper(fetcher, store).Sweep(context.Background(), SweepOptions{
		MinPrice: 1, MaxPrice: 2, CategoryURL: "https://x/cat", CategoryName: "Sillas",
	})
	if err != nil {
		t.Fatalf("sweep should return a summary even when everything failed: %v", err)
	}
	if result.TotalProductos != 0 || result.ProductosNuevos != 0 || result.ProductosDuplicados != 0 {
		t.Fatalf("expected zeroed summary, got %+v", result)
	}
	if result.Estadisticas.PreciosDiferentes != 0 {
		t.Fatalf("expected empty stats, got %+v", result.Estadisticas)
	}
}

func TestSweepAscendingOrderAndStats(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]Listing{
		5: {listing("A", "https://x/p/a")},
		7: {listing("B", "https://x/p/b"), listing("C", "https://x/p/c")},
	}}
	store := newMemStore()

	result, err := newTestSweeper(fetcher, store).Sweep(context.Background(), SweepOptions{
		MinPrice: 5, MaxPrice: 8, CategoryURL: "https://x/cat", CategoryName: "Bar",
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	for i := 1; i < len(fetcher.calls); i++ {
		if fetcher.calls[i] <= fetcher.calls[i-1] {
			t.Fatalf("price points must ascend: %v", fetcher.calls)
		}
	}

	stats := result.Estadisticas
	if stats.PreciosDiferentes != 2 || stats.PrecioMin != 5 || stats.PrecioMax != 7 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.Precios) != 2 || stats.Precios[0] != 5 || stats.Precios[1] != 7 {
		t.Fatalf("expected sorted distinct prices [5 7], got %v", stats.Precios)
	}
}

func TestSweepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}
	result, err := newTestSweeper(fetcher, newMemStore()).Sweep(ctx, SweepOptions{
		MinPrice: 0, MaxPrice: 100, CategoryURL: "https://x/cat", CategoryName: "Sillas",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("no fetch should happen after cancellation, got %v", fetcher.calls)
	}
	if result.TotalProductos != 0 {
		t.Fatalf("partial summary should still be coherent: %+v", result)
	}
}
