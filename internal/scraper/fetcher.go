package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// ErrUnavailable marks a failed fetch or parse of one price point. The
// sweep recovers it as zero listings for that point.
var ErrUnavailable = errors.New("scraper: catalog unavailable")

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
}

// Listing is one catalog entry parsed from a listing page. Items
// without a detail link are dropped upstream; the link is the only
// stable identity available for dedup.
type Listing struct {
	Nombre string
	Link   string
	Imagen *string
}

// FetcherOptions parameterise the catalog page fetcher.
type FetcherOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves and parses catalog listing pages filtered to a
// single exact price value.
type Fetcher struct {
	opts   FetcherOptions
	logger zerolog.Logger
	client *http.Client
}

// NewFetcher constructs a catalog fetcher.
func NewFetcher(opts FetcherOptions, logger zerolog.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Fetcher{
		opts:   opts,
		logger: logger.With().Str("component", "catalog_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchPoint requests the category page with min_price=max_price=price
// and parses its listing nodes.
func (f *Fetcher) FetchPoint(ctx context.Context, categoryURL string, price int) ([]Listing, error) {
	if categoryURL == "" {
		return nil, errors.New("category url not configured")
	}

	url := fmt.Sprintf("%s?min_price=%d&max_price=%d", strings.TrimRight(categoryURL, "?"), price, price)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for price %d", ErrUnavailable, resp.StatusCode, price)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrUnavailable, err)
	}

	return parseListings(doc), nil
}

func (f *Fetcher) userAgent() string {
	if f.opts.UserAgent != "" {
		return f.opts.UserAgent
	}
	return defaultUserAgents[rand.Intn(len(defaultUserAgents))]
}

// parseListings extracts the WooCommerce-style product nodes. Listing
// markup varies between li.product and div.product across categories.
func parseListings(doc *goquery.Document) []Listing {
	nodes := doc.Find("li.product")
	if nodes.Length() == 0 {
		nodes = doc.Find("div.product")
	}

	listings := make([]Listing, 0, nodes.Length())
	nodes.Each(func(_ int, node *goquery.Selection) {
		nombre := extractName(node)

		link, ok := node.Find("a[href]").First().Attr("href")
		if !ok || link == "" {
			// no link, no identity
			return
		}

		listing := Listing{Nombre: nombre, Link: link}
		if img := node.Find("img").First(); img.Length() > 0 {
			src, hasSrc := img.Attr("src")
			if !hasSrc || src == "" {
				src, hasSrc = img.Attr("data-src")
			}
			if hasSrc && src != "" {
				listing.Imagen = &src
			}
		}
		listings = append(listings, listing)
	})
	return listings
}

func extractName(node *goquery.Selection) string {
	title := node.Find("p.woocommerce-loop-product__title").First()
	if title.Length() > 0 {
		if anchor := title.Find("a").First(); anchor.Length() > 0 {
			return strings.TrimSpace(anchor.Text())
		}
		return strings.TrimSpace(title.Text())
	}

	for _, selector := range []string{"h2", "h3"} {
		if heading := node.Find(selector).First(); heading.Length() > 0 {
			return strings.TrimSpace(heading.Text())
		}
	}
	return "Sin nombre"
}
