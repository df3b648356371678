package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
)

// OfferSort selects the ordering of a product's offer listing
type OfferSort string

const (
	SortPriceAsc  OfferSort = "price_asc"
	SortPriceDesc OfferSort = "price_desc"
	SortScore     OfferSort = "score" // Biggest discount first, then cheapest
)

// ParseOfferSort parses a sort query value. Empty means price_asc.
func ParseOfferSort(s string) (OfferSort, error) {
	switch OfferSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	case SortScore:
		return SortScore, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidRequest, s)
	}
}

// ProductOffersOptions controls filtering and ordering of a product's offers
type ProductOffersOptions struct {
	Sort        OfferSort
	InStockOnly bool
	Location    *domain.Location
}

// OfferService lists the offers of a single product for product-detail views.
// Unlike ranking, out-of-stock offers are only dropped when asked to.
type OfferService struct {
	catalogs domain.CatalogProvider
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   *log.Logger
}

// NewOfferService creates a new offer service. cache may be nil.
func NewOfferService(catalogs domain.CatalogProvider, cache domain.CacheRepository, cacheTTL time.Duration) *OfferService {
	return &OfferService{
		catalogs: catalogs,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logging.WithPrefix("offers"),
	}
}

// ProductOffers returns the product with its offers and their stores.
// Missing discount percentages are derived from the original price.
func (s *OfferService) ProductOffers(
	ctx context.Context,
	token string,
	productID string,
	options ProductOffersOptions,
) (*domain.ProductOffers, error) {
	if productID == "" {
		return nil, domain.ErrInvalidRequest
	}

	catalog := s.catalogs.ForSession(token)
	if s.cache != nil {
		catalog = NewCachedCatalog(catalog, s.cache, s.cacheTTL)
	}

	product, err := catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	offers, err := catalog.OffersForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: offers for product %s: %w", domain.ErrLookupFailure, productID, err)
	}

	resolver := newStoreResolver(catalog)
	listed := make([]domain.StoreOffer, 0, len(offers))
	for _, offer := range offers {
		if options.InStockOnly && !offer.InStock {
			continue
		}

		store, err := resolver.resolve(ctx, offer.StoreID)
		if err != nil {
			return nil, err
		}

		offer.DiscountPercentage = offer.EffectiveDiscount()
		entry := domain.StoreOffer{Offer: offer, Store: *store}
		if options.Location != nil {
			if storeLocation := store.Location(); storeLocation != nil {
				km := HaversineKm(*options.Location, *storeLocation)
				entry.DistanceKm = &km
			}
		}
		listed = append(listed, entry)
	}

	sortStoreOffers(listed, options.Sort)

	s.logger.Debug("product offers listed", "product", productID, "offers", len(listed), "sort", options.Sort)
	return &domain.ProductOffers{
		Product: *product,
		Offers:  listed,
		Count:   len(listed),
	}, nil
}

func sortStoreOffers(offers []domain.StoreOffer, order OfferSort) {
	switch order {
	case SortPriceDesc:
		sort.SliceStable(offers, func(a, b int) bool {
			return offers[a].Price.GreaterThan(offers[b].Price)
		})
	case SortScore:
		sort.SliceStable(offers, func(a, b int) bool {
			da, db := offers[a].DiscountPercentage, offers[b].DiscountPercentage
			if da.Valid != db.Valid {
				return da.Valid
			}
			if da.Valid && !da.Decimal.Equal(db.Decimal) {
				return da.Decimal.GreaterThan(db.Decimal)
			}
			return offers[a].Price.LessThan(offers[b].Price)
		})
	default:
		sort.SliceStable(offers, func(a, b int) bool {
			return offers[a].Price.LessThan(offers[b].Price)
		})
	}
}
