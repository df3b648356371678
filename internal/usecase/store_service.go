package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
)

const (
	defaultNearbyRadiusKm = 5.0
	minNearbyRadiusKm     = 1.0
	maxNearbyRadiusKm     = 50.0
	defaultNearbyLimit    = 10
	maxNearbyLimit        = 50

	storesCacheTTL = time.Hour
	nearbyCacheTTL = 10 * time.Minute
)

// NearbyQuery finds the stores around a location
type NearbyQuery struct {
	Location *domain.Location
	RadiusKm float64 // Defaults to 5, bounded to [1, 50]
	Limit    int     // Defaults to 10, capped at 50
}

// StoreService lists stores and finds the ones near a location
type StoreService struct {
	stores domain.StoreDirectory
	cache  domain.CacheRepository
	logger *log.Logger
}

// NewStoreService creates a new store service. cache may be nil.
func NewStoreService(stores domain.StoreDirectory, cache domain.CacheRepository) *StoreService {
	return &StoreService{
		stores: stores,
		cache:  cache,
		logger: logging.WithPrefix("stores"),
	}
}

// ListStores returns one page of the stores ordered by name
func (s *StoreService) ListStores(ctx context.Context, page, perPage int) (*domain.StorePage, error) {
	page = max(page, 1)
	perPage = clampInt(perPage, defaultPerPage, 1, maxPerPage)

	key := fmt.Sprintf("stores_list:%d:%d", page, perPage)
	return cacheAside(ctx, s.cache, s.logger, key, storesCacheTTL, func() (*domain.StorePage, error) {
		stores, err := s.stores.ListStores(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: stores: %w", domain.ErrLookupFailure, err)
		}

		pagination := domain.NewPagination(page, perPage, len(stores))
		start, end := pagination.Window()
		return &domain.StorePage{
			Stores:     append(make([]domain.Store, 0, end-start), stores[start:end]...),
			Pagination: pagination,
		}, nil
	})
}

// Nearby returns the stores within the radius of the location, closest first.
// Stores without coordinates are skipped.
func (s *StoreService) Nearby(ctx context.Context, q NearbyQuery) (*domain.NearbyStores, error) {
	if q.Location == nil {
		return nil, fmt.Errorf("%w: latitude and longitude are required", domain.ErrInvalidRequest)
	}
	origin := *q.Location

	radius := q.RadiusKm
	if radius == 0 {
		radius = defaultNearbyRadiusKm
	}
	radius = min(max(radius, minNearbyRadiusKm), maxNearbyRadiusKm)
	limit := clampInt(q.Limit, defaultNearbyLimit, 1, maxNearbyLimit)

	key := fmt.Sprintf("stores_nearby:%.6f:%.6f:%g:%d", origin.Latitude, origin.Longitude, radius, limit)
	return cacheAside(ctx, s.cache, s.logger, key, nearbyCacheTTL, func() (*domain.NearbyStores, error) {
		stores, err := s.stores.ListStores(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: stores: %w", domain.ErrLookupFailure, err)
		}

		nearby := make([]domain.NearbyStore, 0)
		for _, store := range stores {
			location := store.Location()
			if location == nil {
				continue
			}
			if km := HaversineKm(origin, *location); km <= radius {
				nearby = append(nearby, domain.NearbyStore{Store: store, DistanceKm: km})
			}
		}

		sort.SliceStable(nearby, func(a, b int) bool {
			return nearby[a].DistanceKm < nearby[b].DistanceKm
		})
		if len(nearby) > limit {
			nearby = nearby[:limit]
		}

		s.logger.Info("nearby stores", "latitude", origin.Latitude, "longitude", origin.Longitude, "radius_km", radius, "found", len(nearby))
		return &domain.NearbyStores{
			Stores:   nearby,
			Count:    len(nearby),
			Location: origin,
			RadiusKm: radius,
		}, nil
	})
}
