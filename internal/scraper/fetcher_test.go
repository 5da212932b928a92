package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const listingPage = `<html><body><ul>
<li class="product">
  <p class="woocommerce-loop-product__title"><a href="https://example.com/p/silla-a">Silla A</a></p>
  <a href="https://example.com/p/silla-a"><img src="https://example.com/img/a.jpg"></a>
</li>
<li class="product">
  <h2>Silla B</h2>
  <a href="https://example.com/p/silla-b"><img data-src="https://example.com/img/b.jpg"></a>
</li>
<li class="product">
  <p class="woocommerce-loop-product__title">Silla sin enlace</p>
</li>
</ul></body></html>`

func newTestFetcher() *Fetcher {
	return NewFetcher(FetcherOptions{Timeout: time.Second, UserAgent: "test"}, zerolog.Nop())
}

func TestFetchPointParsesListings(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	fetcher := newTestFetcher()
	listings, err := fetcher.FetchPoint(context.Background(), srv.URL, 150)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if gotURL != "/?min_price=150&max_price=150" {
		t.Fatalf("unexpected request url %q", gotURL)
	}

	// the linkless node is dropped, it cannot be deduplicated
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.Nombre != "Silla A" || first.Link != "https://example.com/p/silla-a" {
		t.Fatalf("unexpected first listing: %+v", first)
	}
	if first.Imagen == nil || *first.Imagen != "https://example.com/img/a.jpg" {
		t.Fatalf("expected src image, got %+v", first.Imagen)
	}

	second := listings[1]
	if second.Nombre != "Silla B" {
		t.Fatalf("heading fallback failed: %+v", second)
	}
	if second.Imagen == nil || *second.Imagen != "https://example.com/img/b.jpg" {
		t.Fatalf("expected data-src image, got %+v", second.Imagen)
	}
}

func TestFetchPointDivFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="product"><a href="https://example.com/p/x">x</a></div>`)
	}))
	defer srv.Close()

	listings, err := newTestFetcher().FetchPoint(context.Background(), srv.URL, 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing from div.product, got %d", len(listings))
	}
	if listings[0].Nombre != "Sin nombre" {
		t.Fatalf("expected placeholder name, got %q", listings[0].Nombre)
	}
}

func TestFetchPointHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchPoint(context.Background(), srv.URL, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchPointMissingURL(t *testing.T) {
	if _, err := newTestFetcher().FetchPoint(context.Background(), "", 10); err == nil {
		t.Fatal("empty category url should fail")
	}
}
