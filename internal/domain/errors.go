package domain

import "errors"

var (
	// ErrListNotFound is returned when a shopping list does not exist or belongs to another user
	ErrListNotFound = errors.New("shopping list not found")

	// ErrLookupFailure wraps errors raised by offer or store lookups during ranking
	ErrLookupFailure = errors.New("catalog lookup failed")

	// ErrProductNotFound is returned when a product cannot be found in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrStoreNotFound is returned when a store id cannot be resolved
	ErrStoreNotFound = errors.New("store not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnauthorized is returned when the session token is missing or rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCatalogAPIFailure is returned when the remote catalog backend request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")
)
