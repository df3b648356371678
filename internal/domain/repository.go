package domain

import (
	"context"
	"time"
)

// OfferLookup returns the offers published for a product. An empty slice is valid.
type OfferLookup interface {
	OffersForProduct(ctx context.Context, productID string) ([]Offer, error)
}

// StoreLookup resolves a store by id
type StoreLookup interface {
	GetStore(ctx context.Context, storeID string) (*Store, error)
}

// ProductLookup resolves a product by id
type ProductLookup interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}

// ListResolver resolves a shopping list with its items.
// Returns ErrListNotFound when the list does not exist.
type ListResolver interface {
	GetList(ctx context.Context, listID string) (*ShoppingList, error)
}

// Catalog is the full data source a ranking request needs
type Catalog interface {
	OfferLookup
	StoreLookup
	ProductLookup
	ListResolver
}

// CatalogProvider hands out a Catalog bound to a caller's session token.
// Sources that need no credentials may ignore the token.
type CatalogProvider interface {
	ForSession(token string) Catalog
}

// OfferLookupFunc adapts a function to OfferLookup
type OfferLookupFunc func(ctx context.Context, productID string) ([]Offer, error)

// OffersForProduct calls f(ctx, productID)
func (f OfferLookupFunc) OffersForProduct(ctx context.Context, productID string) ([]Offer, error) {
	return f(ctx, productID)
}

// StoreLookupFunc adapts a function to StoreLookup
type StoreLookupFunc func(ctx context.Context, storeID string) (*Store, error)

// GetStore calls f(ctx, storeID)
func (f StoreLookupFunc) GetStore(ctx context.Context, storeID string) (*Store, error) {
	return f(ctx, storeID)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductSearcher browses the product catalog. It needs no session.
type ProductSearcher interface {
	// SearchProducts returns every product matching filter, in no particular order
	SearchProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	// Categories returns the non-empty categories with their product counts, by name
	Categories(ctx context.Context) ([]CategoryCount, error)
	// PopularProducts returns the products with the most in-stock offers
	PopularProducts(ctx context.Context, limit int) ([]PopularProduct, error)
}

// StoreDirectory lists every store of the catalog
type StoreDirectory interface {
	ListStores(ctx context.Context) ([]Store, error)
}

// Browser is the public, session-less side of a catalog source
type Browser interface {
	ProductSearcher
	StoreDirectory
}
