package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mercai/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Prices and scores go out as JSON numbers
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// envelope is the body shape of every API response
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrListNotFound), errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrLookupFailure), errors.Is(err, domain.ErrCatalogAPIFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
