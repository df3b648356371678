package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mercai/backend/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	getListQuery = `
		SELECT CAST(id AS TEXT), CAST(user_id AS TEXT), COALESCE(name, ''), latitude, longitude
		FROM shopping_lists
		WHERE CAST(id AS TEXT) = ?
	`
	listItemsQuery = `
		SELECT CAST(li.id AS TEXT), li.quantity,
		       CAST(p.id AS TEXT), p.name, COALESCE(p.category, ''), COALESCE(p.brand, ''), COALESCE(p.image_url, '')
		FROM list_items li
		JOIN products p ON p.id = li.product_id
		WHERE CAST(li.list_id AS TEXT) = ?
		ORDER BY li.id
	`
	getProductQuery = `
		SELECT CAST(id AS TEXT), name, COALESCE(category, ''), COALESCE(brand, ''), COALESCE(image_url, '')
		FROM products
		WHERE CAST(id AS TEXT) = ?
	`
	getStoreQuery = `
		SELECT CAST(id AS TEXT), name, COALESCE(url, ''), COALESCE(logo_url, ''), latitude, longitude,
		       COALESCE(address, ''), COALESCE(phone, '')
		FROM stores
		WHERE CAST(id AS TEXT) = ?
	`
	offersForProductQuery = `
		SELECT CAST(id AS TEXT), CAST(product_id AS TEXT), CAST(store_id AS TEXT),
		       price, original_price, discount_percentage, in_stock, valid_until, scraped_at
		FROM offers
		WHERE CAST(product_id AS TEXT) = ?
		ORDER BY id
	`
	allProductsQuery = `
		SELECT CAST(id AS TEXT), name, COALESCE(category, ''), COALESCE(brand, ''), COALESCE(image_url, '')
		FROM products
		ORDER BY name, id
	`
	categoriesQuery = `
		SELECT category, COUNT(id)
		FROM products
		WHERE category IS NOT NULL AND category <> ''
		GROUP BY category
		ORDER BY category
	`
	popularProductsQuery = `
		SELECT CAST(p.id AS TEXT), p.name, COALESCE(p.category, ''), COALESCE(p.brand, ''), COALESCE(p.image_url, ''),
		       COUNT(o.id) AS offers_count
		FROM products p
		JOIN offers o ON o.product_id = p.id
		WHERE o.in_stock IS NULL OR o.in_stock = ?
		GROUP BY p.id, p.name, p.category, p.brand, p.image_url
		ORDER BY offers_count DESC, p.name
		LIMIT ?
	`
	listStoresQuery = `
		SELECT CAST(id AS TEXT), name, COALESCE(url, ''), COALESCE(logo_url, ''), latitude, longitude,
		       COALESCE(address, ''), COALESCE(phone, '')
		FROM stores
		ORDER BY name, id
	`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// SQLCatalog reads the catalog straight from the backend database
type SQLCatalog struct {
	db     *sql.DB
	rebind func(string) string
}

// OpenSQLCatalog opens and pings a database. driver is "postgres" (pgx) or "sqlite".
func OpenSQLCatalog(ctx context.Context, driver, dsn string) (*SQLCatalog, error) {
	driverName, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", driver, err)
	}

	return NewSQLCatalog(db, driver), nil
}

// NewSQLCatalog wraps an open database
func NewSQLCatalog(db *sql.DB, driver string) *SQLCatalog {
	c := &SQLCatalog{db: db, rebind: func(q string) string { return q }}
	if name, _ := sqlDriverName(driver); name == "pgx" {
		c.rebind = dollarPlaceholders
	}
	return c
}

func sqlDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// dollarPlaceholders rewrites ? placeholders to $1, $2...
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database
func (c *SQLCatalog) Close() error {
	return c.db.Close()
}

// ForSession returns the catalog itself; list ownership is checked by the caller
func (c *SQLCatalog) ForSession(token string) domain.Catalog {
	return c
}

// GetList loads a list and its items in insertion order
func (c *SQLCatalog) GetList(ctx context.Context, listID string) (*domain.ShoppingList, error) {
	var (
		list     domain.ShoppingList
		lat, lon sql.NullFloat64
	)
	err := c.db.QueryRowContext(ctx, c.rebind(getListQuery), listID).
		Scan(&list.ID, &list.UserID, &list.Name, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	if lat.Valid && lon.Valid {
		list.Location = &domain.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}

	rows, err := c.db.QueryContext(ctx, c.rebind(listItemsQuery), listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of list %s: %w", listID, err)
	}
	defer rows.Close()

	list.Items = make([]domain.ListItem, 0)
	for rows.Next() {
		var item domain.ListItem
		p := &item.Product
		if err := rows.Scan(&item.ID, &item.Quantity, &p.ID, &p.Name, &p.Category, &p.Brand, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		list.Items = append(list.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items of list %s: %w", listID, err)
	}
	return &list, nil
}

// GetProduct loads a product by id
func (c *SQLCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := c.db.QueryRowContext(ctx, c.rebind(getProductQuery), productID).
		Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return &p, nil
}

// GetStore loads a store by id
func (c *SQLCatalog) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	s, err := scanStore(c.db.QueryRowContext(ctx, c.rebind(getStoreQuery), storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load store %s: %w", storeID, err)
	}
	return s, nil
}

func scanStore(row rowScanner) (*domain.Store, error) {
	var (
		s        domain.Store
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.URL, &s.LogoURL, &lat, &lon, &s.Address, &s.Phone); err != nil {
		return nil, err
	}
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lon.Valid {
		s.Longitude = &lon.Float64
	}
	return &s, nil
}

// OffersForProduct loads every offer of a product, out-of-stock ones included
func (c *SQLCatalog) OffersForProduct(ctx context.Context, productID string) ([]domain.Offer, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(offersForProductQuery), productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load offers of product %s: %w", productID, err)
	}
	defer rows.Close()

	offers := make([]domain.Offer, 0)
	for rows.Next() {
		var (
			o                     domain.Offer
			validUntil, scrapedAt sql.NullTime
			inStock               sql.NullBool
		)
		if err := rows.Scan(&o.ID, &o.ProductID, &o.StoreID, &o.Price, &o.OriginalPrice,
			&o.DiscountPercentage, &inStock, &validUntil, &scrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		o.InStock = !inStock.Valid || inStock.Bool
		if validUntil.Valid {
			o.ValidUntil = &validUntil.Time
		}
		if scrapedAt.Valid {
			o.ScrapedAt = &scrapedAt.Time
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read offers of product %s: %w", productID, err)
	}
	return offers, nil
}

// SearchProducts scans the product table and keeps the rows matching filter.
// Matching runs in Go so accents fold the same way on every driver.
func (c *SQLCatalog) SearchProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(allProductsQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if filter.Matches(p) {
			products = append(products, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	sortProducts(products)
	return products, nil
}

// Categories counts products per non-empty category
func (c *SQLCatalog) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(categoriesQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.CategoryCount, 0)
	for rows.Next() {
		var cat domain.CategoryCount
		if err := rows.Scan(&cat.Name, &cat.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return categories, nil
}

// PopularProducts ranks products by in-stock offer count
func (c *SQLCatalog) PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(popularProductsQuery), true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load popular products: %w", err)
	}
	defer rows.Close()

	popular := make([]domain.PopularProduct, 0)
	for rows.Next() {
		var pp domain.PopularProduct
		p := &pp.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.ImageURL, &pp.OffersCount); err != nil {
			return nil, fmt.Errorf("failed to scan popular product: %w", err)
		}
		popular = append(popular, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read popular products: %w", err)
	}
	return popular, nil
}

// ListStores loads every store ordered by name
func (c *SQLCatalog) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(listStoresQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stores: %w", err)
	}
	return stores, nil
}
