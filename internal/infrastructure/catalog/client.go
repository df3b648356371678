package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
	"golang.org/x/time/rate"
)

const (
	maxAttempts = 3

	// Listing endpoints cap per_page at 50
	remotePageSize = 50
	maxRemotePages = 20
)

// Client reads lists, products, offers and stores from the MercAI backend API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      *log.Logger
}

// NewClient creates a new backend API client. requestsPerMinute <= 0 disables
// client-side rate limiting.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute/6+1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		backoff:     exponentialBackoff,
		logger:      logging.WithPrefix("catalog-api"),
	}
}

// ForSession returns a client that authenticates with token.
// The copy shares the HTTP client and rate limiter.
func (c *Client) ForSession(token string) domain.Catalog {
	clone := *c
	clone.token = token
	return &clone
}

// exponentialBackoff returns 500ms, 1s, 2s... for attempts 1, 2, 3...
func exponentialBackoff(attempt int) time.Duration {
	return 500 * time.Millisecond * time.Duration(1<<(attempt-1))
}

// GetList retrieves a shopping list with its items
func (c *Client) GetList(ctx context.Context, listID string) (*domain.ShoppingList, error) {
	var data struct {
		List listDTO `json:"list"`
	}
	if err := c.getJSON(ctx, "/lists/"+url.PathEscape(listID), nil, domain.ErrListNotFound, &data); err != nil {
		return nil, err
	}
	return mapList(&data.List)
}

// GetProduct retrieves a product by id
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var data struct {
		Product productDTO `json:"product"`
	}
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(productID), nil, domain.ErrProductNotFound, &data); err != nil {
		return nil, err
	}
	return mapProduct(&data.Product)
}

// OffersForProduct retrieves every offer of a product, out-of-stock ones included
func (c *Client) OffersForProduct(ctx context.Context, productID string) ([]domain.Offer, error) {
	var data struct {
		Offers []offerDTO `json:"offers"`
	}
	params := url.Values{}
	params.Set("in_stock_only", "false")
	path := "/products/" + url.PathEscape(productID) + "/offers"
	if err := c.getJSON(ctx, path, params, domain.ErrProductNotFound, &data); err != nil {
		return nil, err
	}

	offers := make([]domain.Offer, 0, len(data.Offers))
	for i := range data.Offers {
		offers = append(offers, mapOffer(&data.Offers[i], productID))
	}
	return offers, nil
}

// GetStore retrieves a store by id
func (c *Client) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	var data struct {
		Store storeDTO `json:"store"`
	}
	if err := c.getJSON(ctx, "/stores/"+url.PathEscape(storeID), nil, domain.ErrStoreNotFound, &data); err != nil {
		return nil, err
	}
	return mapStore(&data.Store)
}

// SearchProducts walks the backend search results for the joined terms and
// re-applies filter, so matching agrees with the local sources.
func (c *Client) SearchProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	params := url.Values{}
	params.Set("q", strings.Join(filter.Terms, " "))
	if filter.Category != "" {
		params.Set("category", filter.Category)
	}

	dtos, err := getAllPages[productDTO](ctx, c, "/products/search", params, "products")
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	for i := range dtos {
		if dtos[i].ID == "" {
			c.logger.Warn("skipping search result without id", "name", dtos[i].Name)
			continue
		}
		if p := productFromDTO(&dtos[i]); filter.Matches(p) {
			products = append(products, p)
		}
	}
	sortProducts(products)
	return products, nil
}

// Categories retrieves the category counts
func (c *Client) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	var data struct {
		Categories []domain.CategoryCount `json:"categories"`
	}
	if err := c.getJSON(ctx, "/products/categories", nil, domain.ErrCatalogAPIFailure, &data); err != nil {
		return nil, err
	}
	if data.Categories == nil {
		data.Categories = []domain.CategoryCount{}
	}
	return data.Categories, nil
}

// PopularProducts retrieves the products with the most in-stock offers
func (c *Client) PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	var data struct {
		Products []popularDTO `json:"products"`
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if err := c.getJSON(ctx, "/products/popular", params, domain.ErrCatalogAPIFailure, &data); err != nil {
		return nil, err
	}

	popular := make([]domain.PopularProduct, 0, len(data.Products))
	for i := range data.Products {
		dto := &data.Products[i]
		if dto.ID == "" {
			continue
		}
		popular = append(popular, domain.PopularProduct{
			Product:     productFromDTO(&dto.productDTO),
			OffersCount: dto.OffersCount,
		})
	}
	return popular, nil
}

// ListStores walks the paginated store listing
func (c *Client) ListStores(ctx context.Context) ([]domain.Store, error) {
	dtos, err := getAllPages[storeDTO](ctx, c, "/stores", url.Values{}, "stores")
	if err != nil {
		return nil, err
	}

	stores := make([]domain.Store, 0, len(dtos))
	for i := range dtos {
		store, err := mapStore(&dtos[i])
		if err != nil {
			c.logger.Warn("skipping store without id", "name", dtos[i].Name)
			continue
		}
		stores = append(stores, *store)
	}
	return stores, nil
}

// getAllPages fetches every page of a listing whose data holds the items
// under field next to a pagination block.
func getAllPages[T any](ctx context.Context, c *Client, path string, params url.Values, field string) ([]T, error) {
	var all []T
	for page := 1; page <= maxRemotePages; page++ {
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(remotePageSize))

		var data map[string]json.RawMessage
		if err := c.getJSON(ctx, path, params, domain.ErrCatalogAPIFailure, &data); err != nil {
			return nil, err
		}

		var items []T
		if raw, ok := data[field]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("%w: failed to decode %s: %w", domain.ErrCatalogAPIFailure, field, err)
			}
		}
		all = append(all, items...)

		var pagination paginationDTO
		if raw, ok := data["pagination"]; ok {
			if err := json.Unmarshal(raw, &pagination); err != nil {
				return nil, fmt.Errorf("%w: failed to decode pagination: %w", domain.ErrCatalogAPIFailure, err)
			}
		}
		if len(items) == 0 || page >= pagination.Pages {
			break
		}
	}
	return all, nil
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "MercAI-Ranking/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogAPIFailure, err)
	}
	return resp, nil
}

// getJSON fetches path and decodes the envelope's data into out. Transport
// errors, 429 and 5xx responses are retried; notFound is returned on 404.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, notFound error, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			c.logger.Warn("request failed", "path", path, "attempt", attempt, "err", err)
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading body: %w", domain.ErrCatalogAPIFailure, readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return decodeEnvelope(body, out)
		case resp.StatusCode == http.StatusNotFound:
			return notFound
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return domain.ErrUnauthorized
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRateLimited, resp.StatusCode)
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogAPIFailure, resp.StatusCode)
		default:
			return fmt.Errorf("%w: status %d, body: %s", domain.ErrCatalogAPIFailure, resp.StatusCode, truncate(body, 200))
		}
		c.logger.Warn("retryable response", "path", path, "attempt", attempt, "status", resp.StatusCode)
	}

	c.logger.Error("all retries failed", "path", path)
	return lastErr
}

func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", domain.ErrCatalogAPIFailure, err)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", domain.ErrCatalogAPIFailure, env.Message)
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return fmt.Errorf("%w: response has no data", domain.ErrCatalogAPIFailure)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: failed to decode data: %w", domain.ErrCatalogAPIFailure, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
