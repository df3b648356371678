package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mercai/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		ranking := v1.Group("/ranking", AuthMiddleware(cfg.Auth.JWTSecret))
		{
			ranking.GET("", handler.GetRanking)
			ranking.GET("/:listId/detailed", handler.GetDetailedRanking)
		}

		products := v1.Group("/products")
		{
			products.GET("/search", handler.SearchProducts)
			products.GET("/categories", handler.GetCategories)
			products.GET("/popular", handler.GetPopularProducts)
			products.GET("/:productId/offers", handler.GetProductOffers)
		}

		stores := v1.Group("/stores")
		{
			stores.GET("", handler.ListStores)
			stores.GET("/nearby", handler.GetNearbyStores)
		}
	}

	return router
}
