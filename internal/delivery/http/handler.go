package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ranking  *usecase.RankingService
	offers   *usecase.OfferService
	products *usecase.ProductSearchService
	stores   *usecase.StoreService
}

// NewHandler creates a new HTTP handler. Nil services answer 501.
func NewHandler(
	ranking *usecase.RankingService,
	offers *usecase.OfferService,
	products *usecase.ProductSearchService,
	stores *usecase.StoreService,
) *Handler {
	return &Handler{ranking: ranking, offers: offers, products: products, stores: stores}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mercai-ranking",
		"version": "1.0.0",
	})
}

// GetRanking ranks the list given by the list_id query parameter
func (h *Handler) GetRanking(c *gin.Context) {
	if h.ranking == nil {
		notConfigured(c, "ranking")
		return
	}

	request, err := rankRequest(c, c.Query("list_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.ranking.Rank(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Ranking generated successfully", result)
}

// GetDetailedRanking ranks the list in the path and adds the summary totals
func (h *Handler) GetDetailedRanking(c *gin.Context) {
	if h.ranking == nil {
		notConfigured(c, "ranking")
		return
	}

	request, err := rankRequest(c, c.Param("listId"))
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.ranking.RankDetailed(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Detailed ranking generated successfully", result)
}

// GetProductOffers lists the offers of one product.
// Query: sort=price_asc|price_desc|score, in_stock_only=true|false
func (h *Handler) GetProductOffers(c *gin.Context) {
	if h.offers == nil {
		notConfigured(c, "offers")
		return
	}

	sortOrder, err := usecase.ParseOfferSort(c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}

	inStockOnly := true
	if raw := c.Query("in_stock_only"); raw != "" {
		inStockOnly, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(c, fmt.Errorf("%w: in_stock_only must be true or false", domain.ErrInvalidRequest))
			return
		}
	}

	location, err := parseLocation(c)
	if err != nil {
		respondError(c, err)
		return
	}

	listing, err := h.offers.ProductOffers(c.Request.Context(), sessionToken(c), c.Param("productId"), usecase.ProductOffersOptions{
		Sort:        sortOrder,
		InStockOnly: inStockOnly,
		Location:    location,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Offers retrieved successfully", listing)
}

// SearchProducts searches products by name.
// Query: q (3+ characters), category, page, per_page
func (h *Handler) SearchProducts(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "products")
		return
	}

	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, err)
		return
	}
	perPage, err := queryInt(c, "per_page")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.products.Search(c.Request.Context(), usecase.ProductSearchQuery{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Search completed successfully", result)
}

// GetCategories lists the product categories with their product counts
func (h *Handler) GetCategories(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "products")
		return
	}

	categories, err := h.products.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Categories retrieved successfully", gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetPopularProducts lists the products with the most in-stock offers.
// Query: limit
func (h *Handler) GetPopularProducts(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "products")
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}

	popular, err := h.products.Popular(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Popular products retrieved successfully", gin.H{
		"products": popular,
		"count":    len(popular),
	})
}

// ListStores lists the stores by name. Query: page, per_page
func (h *Handler) ListStores(c *gin.Context) {
	if h.stores == nil {
		notConfigured(c, "stores")
		return
	}

	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, err)
		return
	}
	perPage, err := queryInt(c, "per_page")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.stores.ListStores(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Stores retrieved successfully", result)
}

// GetNearbyStores lists the stores around a point, closest first.
// Query: lat, lon (required), radius in km, limit
func (h *Handler) GetNearbyStores(c *gin.Context) {
	if h.stores == nil {
		notConfigured(c, "stores")
		return
	}

	location, err := parseCoordinates(c, "lat", "lon")
	if err != nil {
		respondError(c, err)
		return
	}
	if location == nil {
		respondError(c, fmt.Errorf("%w: lat and lon are required", domain.ErrInvalidRequest))
		return
	}

	var radius float64
	if raw := strings.TrimSpace(c.Query("radius")); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, fmt.Errorf("%w: radius must be a number", domain.ErrInvalidRequest))
			return
		}
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.stores.Nearby(c.Request.Context(), usecase.NearbyQuery{
		Location: location,
		RadiusKm: radius,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Nearby stores retrieved successfully", result)
}

// queryInt parses an optional integer query parameter; absent means 0
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return n, nil
}

func rankRequest(c *gin.Context, listID string) (*domain.RankRequest, error) {
	if _, err := uuid.Parse(listID); err != nil {
		return nil, fmt.Errorf("%w: list id must be a UUID", domain.ErrInvalidRequest)
	}

	location, err := parseLocation(c)
	if err != nil {
		return nil, err
	}

	return &domain.RankRequest{
		ListID:   listID,
		UserID:   c.GetString(contextUserID),
		Token:    sessionToken(c),
		Location: location,
	}, nil
}

// parseLocation reads the optional latitude/longitude hint. Both must be
// present to form a hint.
func parseLocation(c *gin.Context) (*domain.Location, error) {
	return parseCoordinates(c, "latitude", "longitude")
}

func parseCoordinates(c *gin.Context, latKey, lonKey string) (*domain.Location, error) {
	rawLat, rawLon := c.Query(latKey), c.Query(lonKey)
	if rawLat == "" || rawLon == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: invalid latitude", domain.ErrInvalidRequest)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: invalid longitude", domain.ErrInvalidRequest)
	}

	return &domain.Location{Latitude: lat, Longitude: lon}, nil
}

func notConfigured(c *gin.Context, service string) {
	c.AbortWithStatusJSON(http.StatusNotImplemented, envelope{
		Success: false,
		Message: service + " service not configured",
	})
}
