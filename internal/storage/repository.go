package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

const (
	getProductSQL = `SELECT id, name, category, price, stock, sku, created_at
    FROM products
    WHERE id = $1;`

	listProductsSQL = `SELECT id, name, category, price, stock, sku, created_at
    FROM products
    ORDER BY id
    LIMIT $1 OFFSET $2;`

	linkExistsSQL = `SELECT EXISTS (SELECT 1 FROM productos_scraped WHERE link = $1);`

	// Insert-or-ignore on the unique link: the in-flight existence check
	// is advisory only, the constraint is what makes dedup correct.
	insertScrapedSQL = `INSERT INTO productos_scraped (
        nombre, precio, categoria, link, imagen, fuente, fecha_scraping
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (link) DO NOTHING;`

	listScrapedByLinksSQL = `SELECT id, nombre, precio, categoria, link, imagen, fuente, fecha_scraping
    FROM productos_scraped
    WHERE link = ANY($1)
    ORDER BY precio, id;`

	deleteScrapedSQL = `DELETE FROM productos_scraped WHERE id = $1;`

	scrapedStatsSQL = `SELECT
        COUNT(*),
        COALESCE(MIN(precio), 0),
        COALESCE(MAX(precio), 0),
        COALESCE(AVG(precio), 0)
    FROM productos_scraped;`

	scrapedCategoriesSQL = `SELECT DISTINCT categoria FROM productos_scraped ORDER BY categoria;`

	insertComparisonSQL = `INSERT INTO price_comparisons (
        product_id, min_price, max_price, avg_price, suggested_price, source_count
    ) VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, created_at;`

	listComparisonsSQL = `SELECT id, product_id, min_price, max_price, avg_price, suggested_price, source_count, created_at
    FROM price_comparisons
    WHERE ($1 = 0 OR product_id = $1)
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3;`

	insertPriceAlertSQL = `INSERT INTO price_alerts (
        product_id, old_price, new_price, variation_percent
    ) VALUES ($1,$2,$3,$4)
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        a.id, a.product_id, a.old_price, a.new_price, a.variation_percent, a.created_at,
        p.name
    FROM price_alerts a
    LEFT JOIN products p ON p.id = a.product_id
    ORDER BY a.created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ProductStore supplies read-only catalog lookups.
type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]Product, error)
}

// ScrapedItemStore defines persistence for sweep discoveries.
type ScrapedItemStore interface {
	LinkExists(ctx context.Context, link string) (bool, error)
	InsertScrapedItems(ctx context.Context, items []ScrapedItem) (int64, error)
	ListByLinks(ctx context.Context, links []string) ([]ScrapedItem, error)
	ListScraped(ctx context.Context, filter ScrapedFilter) ([]ScrapedItem, error)
	DeleteScraped(ctx context.Context, id int64) error
	Stats(ctx context.Context) (ScrapedStats, error)
}

// ComparisonStore defines persistence for comparison snapshots.
type ComparisonStore interface {
	InsertComparison(ctx context.Context, cmp PriceComparison) (PriceComparison, error)
	ListComparisons(ctx context.Context, productID int64, limit, offset int) ([]PriceComparison, error)
}

// AlertStore defines persistence for price deviation alerts.
type AlertStore interface {
	InsertPriceAlert(ctx context.Context, alert PriceAlert) (PriceAlert, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertView, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to products, scraped items, comparisons and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock dies with the connection anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// GetProduct fetches one catalog product.
func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	pool, err := s.getPool()
	if err != nil {
		return Product{}, err
	}

	product, scanErr := scanProduct(pool.QueryRow(ctx, getProductSQL, id))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", scanErr)
	}
	return product, nil
}

// ListProducts pages through the catalog.
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listProductsSQL, limit, offset)
	if queryErr != nil {
		return nil, fmt.Errorf("list products: %w", queryErr)
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		product, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// LinkExists reports whether a scraped item with this link is already stored.
func (s *Store) LinkExists(ctx context.Context, link string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var exists bool
	if scanErr := pool.QueryRow(ctx, linkExistsSQL, link).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("link exists: %w", scanErr)
	}
	return exists, nil
}

// InsertScrapedItems batch-inserts sweep discoveries, ignoring links that
// raced in since the sweep's existence check. Returns the number of rows
// actually written.
func (s *Store) InsertScrapedItems(ctx context.Context, items []ScrapedItem) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		scrapedAt := item.FechaScraping
		if scrapedAt.IsZero() {
			scrapedAt = time.Now().UTC()
		}
		var imagen interface{}
		if item.Imagen != nil {
			imagen = *item.Imagen
		}
		batch.Queue(insertScrapedSQL,
			item.Nombre,
			item.Precio.String(),
			item.Categoria,
			item.Link,
			imagen,
			item.Fuente,
			scrapedAt,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range items {
		tag, execErr := results.Exec()
		if execErr != nil {
			return inserted, fmt.Errorf("insert scraped item: %w", execErr)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListByLinks returns the stored rows for the given links, ordered by price.
func (s *Store) ListByLinks(ctx context.Context, links []string) ([]ScrapedItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []ScrapedItem{}, nil
	}

	rows, queryErr := pool.Query(ctx, listScrapedByLinksSQL, links)
	if queryErr != nil {
		return nil, fmt.Errorf("list scraped by links: %w", queryErr)
	}
	defer rows.Close()

	return collectScraped(rows)
}

// ListScraped pages through stored scraped items, newest first.
func (s *Store) ListScraped(ctx context.Context, filter ScrapedFilter) ([]ScrapedItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`SELECT id, nombre, precio, categoria, link, imagen, fuente, fecha_scraping
    FROM productos_scraped`)

	clauses := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	if filter.Categoria != "" {
		args = append(args, "%"+filter.Categoria+"%")
		clauses = append(clauses, fmt.Sprintf("categoria ILIKE $%d", len(args)))
	}
	if filter.PrecioMin != nil {
		args = append(args, filter.PrecioMin.String())
		clauses = append(clauses, fmt.Sprintf("precio >= $%d", len(args)))
	}
	if filter.PrecioMax != nil {
		args = append(args, filter.PrecioMax.String())
		clauses = append(clauses, fmt.Sprintf("precio <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query.WriteString(fmt.Sprintf(" ORDER BY fecha_scraping DESC LIMIT $%d", len(args)))
	args = append(args, filter.Offset)
	query.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))

	rows, queryErr := pool.Query(ctx, query.String(), args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list scraped: %w", queryErr)
	}
	defer rows.Close()

	return collectScraped(rows)
}

// DeleteScraped removes one scraped item by id.
func (s *Store) DeleteScraped(ctx context.Context, id int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	tag, execErr := pool.Exec(ctx, deleteScrapedSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete scraped: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarises the scraped catalog.
func (s *Store) Stats(ctx context.Context) (ScrapedStats, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScrapedStats{}, err
	}

	var stats ScrapedStats
	var minStr, maxStr, avgStr string
	if scanErr := pool.QueryRow(ctx, scrapedStatsSQL).Scan(&stats.TotalProductos, &minStr, &maxStr, &avgStr); scanErr != nil {
		return ScrapedStats{}, fmt.Errorf("scraped stats: %w", scanErr)
	}

	var convErr error
	if stats.PrecioMin, convErr = decimal.NewFromString(minStr); convErr != nil {
		return ScrapedStats{}, fmt.Errorf("parse precio min: %w", convErr)
	}
	if stats.PrecioMax, convErr = decimal.NewFromString(maxStr); convErr != nil {
		return ScrapedStats{}, fmt.Errorf("parse precio max: %w", convErr)
	}
	if stats.PrecioPromedio, convErr = decimal.NewFromString(avgStr); convErr != nil {
		return ScrapedStats{}, fmt.Errorf("parse precio promedio: %w", convErr)
	}

	rows, queryErr := pool.Query(ctx, scrapedCategoriesSQL)
	if queryErr != nil {
		return ScrapedStats{}, fmt.Errorf("scraped categories: %w", queryErr)
	}
	defer rows.Close()

	for rows.Next() {
		var categoria string
		if err := rows.Scan(&categoria); err != nil {
			return ScrapedStats{}, err
		}
		stats.Categorias = append(stats.Categorias, categoria)
	}
	return stats, rows.Err()
}

// InsertComparison persists a comparison snapshot and returns it with
// identity filled in.
func (s *Store) InsertComparison(ctx context.Context, cmp PriceComparison) (PriceComparison, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceComparison{}, err
	}

	row := pool.QueryRow(ctx, insertComparisonSQL,
		cmp.ProductID,
		cmp.MinPrice.String(),
		cmp.MaxPrice.String(),
		cmp.AvgPrice.String(),
		cmp.SuggestedPrice.String(),
		cmp.SourceCount,
	)
	if scanErr := row.Scan(&cmp.ID, &cmp.CreatedAt); scanErr != nil {
		return PriceComparison{}, fmt.Errorf("insert comparison: %w", scanErr)
	}
	return cmp, nil
}

// ListComparisons lists comparison history, newest first. productID 0
// means all products.
func (s *Store) ListComparisons(ctx context.Context, productID int64, limit, offset int) ([]PriceComparison, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listComparisonsSQL, productID, limit, offset)
	if queryErr != nil {
		return nil, fmt.Errorf("list comparisons: %w", queryErr)
	}
	defer rows.Close()

	comparisons := make([]PriceComparison, 0, limit)
	for rows.Next() {
		var cmp PriceComparison
		var minStr, maxStr, avgStr, sugStr string
		if err := rows.Scan(&cmp.ID, &cmp.ProductID, &minStr, &maxStr, &avgStr, &sugStr, &cmp.SourceCount, &cmp.CreatedAt); err != nil {
			return nil, err
		}
		var convErr error
		if cmp.MinPrice, convErr = decimal.NewFromString(minStr); convErr != nil {
			return nil, fmt.Errorf("parse min price: %w", convErr)
		}
		if cmp.MaxPrice, convErr = decimal.NewFromString(maxStr); convErr != nil {
			return nil, fmt.Errorf("parse max price: %w", convErr)
		}
		if cmp.AvgPrice, convErr = decimal.NewFromString(avgStr); convErr != nil {
			return nil, fmt.Errorf("parse avg price: %w", convErr)
		}
		if cmp.SuggestedPrice, convErr = decimal.NewFromString(sugStr); convErr != nil {
			return nil, fmt.Errorf("parse suggested price: %w", convErr)
		}
		comparisons = append(comparisons, cmp)
	}
	return comparisons, rows.Err()
}

// InsertPriceAlert persists a deviation alert. Append-only.
func (s *Store) InsertPriceAlert(ctx context.Context, alert PriceAlert) (PriceAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceAlert{}, err
	}

	row := pool.QueryRow(ctx, insertPriceAlertSQL,
		alert.ProductID,
		alert.OldPrice.String(),
		alert.NewPrice.String(),
		alert.VariationPercent.String(),
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return PriceAlert{}, fmt.Errorf("insert price alert: %w", scanErr)
	}
	return alert, nil
}

// ListRecentAlerts lists most recent alerts with product names resolved.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertView, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertView, 0, limit)
	for rows.Next() {
		var view AlertView
		var oldStr, newStr, varStr string
		var name sql.NullString
		if err := rows.Scan(&view.ID, &view.ProductID, &oldStr, &newStr, &varStr, &view.CreatedAt, &name); err != nil {
			return nil, err
		}
		var convErr error
		if view.OldPrice, convErr = decimal.NewFromString(oldStr); convErr != nil {
			return nil, fmt.Errorf("parse old price: %w", convErr)
		}
		if view.NewPrice, convErr = decimal.NewFromString(newStr); convErr != nil {
			return nil, fmt.Errorf("parse new price: %w", convErr)
		}
		if view.VariationPercent, convErr = decimal.NewFromString(varStr); convErr != nil {
			return nil, fmt.Errorf("parse variation percent: %w", convErr)
		}
		view.ProductName = "N/A"
		if name.Valid {
			view.ProductName = name.String
		}
		alerts = append(alerts, view)
	}
	return alerts, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var product Product
	var price sql.NullString
	var sku sql.NullString
	if err := row.Scan(&product.ID, &product.Name, &product.Category, &price, &product.Stock, &sku, &product.CreatedAt); err != nil {
		return Product{}, err
	}
	if price.Valid {
		parsed, convErr := decimal.NewFromString(price.String)
		if convErr != nil {
			return Product{}, fmt.Errorf("parse product price: %w", convErr)
		}
		product.Price = &parsed
	}
	if sku.Valid {
		value := sku.String
		product.SKU = &value
	}
	return product, nil
}

func collectScraped(rows pgx.Rows) ([]ScrapedItem, error) {
	items := make([]ScrapedItem, 0)
	for rows.Next() {
		var item ScrapedItem
		var precioStr string
		var imagen sql.NullString
		if err := rows.Scan(&item.ID, &item.Nombre, &precioStr, &item.Categoria, &item.Link, &imagen, &item.Fuente, &item.FechaScraping); err != nil {
			return nil, err
		}
		precio, convErr := decimal.NewFromString(precioStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse precio: %w", convErr)
		}
		item.Precio = precio
		if imagen.Valid {
			value := imagen.String
			item.Imagen = &value
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
