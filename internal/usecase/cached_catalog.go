package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
)

const defaultCatalogCacheTTL = 30 * time.Minute

// CachedCatalog caches product, offer and store lookups of another Catalog.
// Shopping lists are user data and always go to the underlying catalog.
type CachedCatalog struct {
	domain.Catalog
	cache  domain.CacheRepository
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedCatalog wraps next with a cache-aside layer
func NewCachedCatalog(next domain.Catalog, cache domain.CacheRepository, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = defaultCatalogCacheTTL
	}
	return &CachedCatalog{
		Catalog: next,
		cache:   cache,
		ttl:     ttl,
		logger:  logging.WithPrefix("cache"),
	}
}

// OffersForProduct returns cached offers, falling back to the wrapped catalog
func (c *CachedCatalog) OffersForProduct(ctx context.Context, productID string) ([]domain.Offer, error) {
	key := fmt.Sprintf("offers:%s", productID)

	var offers []domain.Offer
	if c.load(ctx, key, &offers) {
		return offers, nil
	}

	offers, err := c.Catalog.OffersForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if offers == nil {
		offers = []domain.Offer{}
	}
	c.store(ctx, key, offers)
	return offers, nil
}

// GetStore returns a cached store, falling back to the wrapped catalog
func (c *CachedCatalog) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	key := fmt.Sprintf("store:%s", storeID)

	var store domain.Store
	if c.load(ctx, key, &store) {
		return &store, nil
	}

	found, err := c.Catalog.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreNotFound, storeID)
	}
	c.store(ctx, key, found)
	return found, nil
}

// GetProduct returns a cached product, falling back to the wrapped catalog
func (c *CachedCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	key := fmt.Sprintf("product:%s", productID)

	var product domain.Product
	if c.load(ctx, key, &product) {
		return &product, nil
	}

	found, err := c.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	c.store(ctx, key, found)
	return found, nil
}

// load reports a hit only for a decodable, non-null entry
func (c *CachedCatalog) load(ctx context.Context, key string, out interface{}) bool {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		_ = c.cache.Delete(ctx, key)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", key, "err", err)
		_ = c.cache.Delete(ctx, key)
		return false
	}
	return true
}

// store logs and swallows cache write errors
func (c *CachedCatalog) store(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cannot encode cache entry", "key", key, "err", err)
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
