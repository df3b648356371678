package usecase

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
)

// RankingServiceConfig holds configuration for the ranking service
type RankingServiceConfig struct {
	Ranking  RankingConfig
	CacheTTL time.Duration
}

// RankingService resolves a shopping list for a session and ranks it
type RankingService struct {
	catalogs domain.CatalogProvider
	cache    domain.CacheRepository
	cacheTTL time.Duration
	engine   *RankingEngine
	logger   *log.Logger
}

// NewRankingService creates a new ranking service. cache may be nil to disable
// catalog caching.
func NewRankingService(
	catalogs domain.CatalogProvider,
	cache domain.CacheRepository,
	config RankingServiceConfig,
) *RankingService {
	return &RankingService{
		catalogs: catalogs,
		cache:    cache,
		cacheTTL: config.CacheTTL,
		engine:   NewRankingEngine(config.Ranking),
		logger:   logging.WithPrefix("ranking"),
	}
}

// Rank generates the basic ranking for a list.
// Flow: resolve list (ownership checked) -> rank items -> best combination
func (s *RankingService) Rank(ctx context.Context, request *domain.RankRequest) (*domain.RankingResult, error) {
	list, catalog, location, err := s.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.RankList(ctx, list.ID, list.Items, catalog, catalog, location)
	if err != nil {
		s.logger.Error("ranking failed", "list", list.ID, "err", err)
		return nil, err
	}

	s.logger.Info("ranking generated", "list", list.ID, "items", len(result.Items),
		"recommended", recommendedStoreID(result.BestCombination))
	return result, nil
}

// RankDetailed generates the ranking plus a summary of the whole list
func (s *RankingService) RankDetailed(ctx context.Context, request *domain.RankRequest) (*domain.DetailedRankingResult, error) {
	list, catalog, location, err := s.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.RankListDetailed(ctx, list.ID, list.Items, catalog, catalog, location)
	if err != nil {
		s.logger.Error("detailed ranking failed", "list", list.ID, "err", err)
		return nil, err
	}

	s.logger.Info("detailed ranking generated", "list", list.ID, "items", result.Summary.ItemsCount,
		"total", result.Summary.EstimatedTotal, "savings", result.Summary.TotalSavings)
	return result, nil
}

// prepare validates the request, binds the catalog to the caller's session and
// resolves the list. A list owned by someone else is reported as not found.
func (s *RankingService) prepare(
	ctx context.Context,
	request *domain.RankRequest,
) (*domain.ShoppingList, domain.Catalog, *domain.Location, error) {
	if request == nil || request.ListID == "" {
		return nil, nil, nil, domain.ErrInvalidRequest
	}

	catalog := s.catalogs.ForSession(request.Token)
	if s.cache != nil {
		catalog = NewCachedCatalog(catalog, s.cache, s.cacheTTL)
	}

	list, err := catalog.GetList(ctx, request.ListID)
	if err != nil {
		return nil, nil, nil, err
	}

	if request.UserID != "" && list.UserID != "" && list.UserID != request.UserID {
		s.logger.Warn("list requested by non-owner", "list", list.ID, "user", request.UserID)
		return nil, nil, nil, domain.ErrListNotFound
	}

	location := request.Location
	if location == nil {
		location = list.Location
	}

	return list, catalog, location, nil
}

func recommendedStoreID(combination *domain.BestCombination) string {
	if combination == nil {
		return ""
	}
	return combination.StoreID
}
