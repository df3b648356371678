package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
)

const (
	defaultPerPage      = 20
	maxPerPage          = 50
	defaultPopularLimit = 10
	maxPopularLimit     = 50

	searchCacheTTL     = time.Hour
	categoriesCacheTTL = time.Hour
	popularCacheTTL    = 30 * time.Minute
)

// ProductSearchQuery is a paginated product search
type ProductSearchQuery struct {
	Query    string
	Category string // Optional substring of the category
	Page     int    // 1-based, defaults to 1
	PerPage  int    // Defaults to 20, capped at 50
}

// ProductSearchService serves product search, categories and popular products
type ProductSearchService struct {
	catalog      domain.ProductSearcher
	cache        domain.CacheRepository
	preprocessor *QueryPreprocessor
	logger       *log.Logger
}

// NewProductSearchService creates a new product search service. cache may be nil.
func NewProductSearchService(catalog domain.ProductSearcher, cache domain.CacheRepository, enableDebugLogging bool) *ProductSearchService {
	return &ProductSearchService{
		catalog:      catalog,
		cache:        cache,
		preprocessor: NewQueryPreprocessor(enableDebugLogging),
		logger:       logging.WithPrefix("products"),
	}
}

// Search returns one page of the products whose names contain every search
// term, ordered by name.
func (s *ProductSearchService) Search(ctx context.Context, q ProductSearchQuery) (*domain.ProductPage, error) {
	query := strings.TrimSpace(q.Query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return nil, fmt.Errorf("%w: query must have at least %d characters", domain.ErrInvalidRequest, minQueryLength)
	}

	page := max(q.Page, 1)
	perPage := clampInt(q.PerPage, defaultPerPage, 1, maxPerPage)
	filter := domain.ProductFilter{
		Terms:    s.preprocessor.Terms(query),
		Category: strings.TrimSpace(q.Category),
	}

	key := fmt.Sprintf("products_search:%s:%s:%d:%d",
		strings.Join(filter.Terms, "+"), domain.FoldText(filter.Category), page, perPage)

	return cacheAside(ctx, s.cache, s.logger, key, searchCacheTTL, func() (*domain.ProductPage, error) {
		products, err := s.catalog.SearchProducts(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("%w: product search: %w", domain.ErrLookupFailure, err)
		}

		pagination := domain.NewPagination(page, perPage, len(products))
		start, end := pagination.Window()
		result := &domain.ProductPage{
			Products:   append(make([]domain.Product, 0, end-start), products[start:end]...),
			Pagination: pagination,
		}

		s.logger.Info("product search", "query", query, "terms", filter.Terms, "total", pagination.Total)
		return result, nil
	})
}

// Categories returns every non-empty category with its product count
func (s *ProductSearchService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	return cacheAside(ctx, s.cache, s.logger, "products_categories", categoriesCacheTTL, func() ([]domain.CategoryCount, error) {
		categories, err := s.catalog.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: categories: %w", domain.ErrLookupFailure, err)
		}
		if categories == nil {
			categories = []domain.CategoryCount{}
		}
		return categories, nil
	})
}

// Popular returns the products with the most in-stock offers. limit
// defaults to 10 and is capped at 50.
func (s *ProductSearchService) Popular(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	limit = clampInt(limit, defaultPopularLimit, 1, maxPopularLimit)

	key := fmt.Sprintf("products_popular:%d", limit)
	return cacheAside(ctx, s.cache, s.logger, key, popularCacheTTL, func() ([]domain.PopularProduct, error) {
		popular, err := s.catalog.PopularProducts(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: popular products: %w", domain.ErrLookupFailure, err)
		}
		if popular == nil {
			popular = []domain.PopularProduct{}
		}
		if len(popular) > limit {
			popular = popular[:limit]
		}
		return popular, nil
	})
}
