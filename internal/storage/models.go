package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by the surrounding business backend.
// The price intelligence core only reads it.
type Product struct {
	ID       int64
	Name     string
	Category string
	// Price is the recorded catalog/base price. Products without one
	// cannot participate in deviation alerting.
	Price     *decimal.Decimal
	Stock     int
	SKU       *string
	CreatedAt time.Time
}

// ScrapedItem is a catalog entry discovered by the price-range sweep.
// Precio is the filter value that surfaced the item, not an observed
// price; site-side rounding collapses nearby true prices into it.
type ScrapedItem struct {
	ID            int64           `json:"id"`
	Nombre        string          `json:"nombre"`
	Precio        decimal.Decimal `json:"precio"`
	Categoria     string          `json:"categoria"`
	Link          string          `json:"link"`
	Imagen        *string         `json:"imagen"`
	Fuente        string          `json:"fuente"`
	FechaScraping time.Time       `json:"fecha_scraping"`
}

// PriceComparison is an immutable snapshot of one market-comparison run.
type PriceComparison struct {
	ID             int64
	ProductID      int64
	MinPrice       decimal.Decimal
	MaxPrice       decimal.Decimal
	AvgPrice       decimal.Decimal
	SuggestedPrice decimal.Decimal
	SourceCount    int
	CreatedAt      time.Time
}

// PriceAlert records one detected catalog/market price deviation.
// VariationPercent is signed: negative means the market sits below the
// recorded catalog price.
type PriceAlert struct {
	ID               int64
	ProductID        int64
	OldPrice         decimal.Decimal
	NewPrice         decimal.Decimal
	VariationPercent decimal.Decimal
	CreatedAt        time.Time
}

// AlertView is an alert row resolved against its product name at read
// time. A deleted or missing product resolves to "N/A".
type AlertView struct {
	PriceAlert
	ProductName string
}

// ScrapedStats summarises the stored scraped catalog.
type ScrapedStats struct {
	TotalProductos int64
	Categorias     []string
	PrecioMin      decimal.Decimal
	PrecioMax      decimal.Decimal
	PrecioPromedio decimal.Decimal
}

// ScrapedFilter narrows ListScraped queries. Nil bounds are open.
type ScrapedFilter struct {
	Categoria string
	PrecioMin *decimal.Decimal
	PrecioMax *decimal.Decimal
	Limit     int
	Offset    int
}
