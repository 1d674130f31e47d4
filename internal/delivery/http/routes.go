package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/recipepanel/foodsync/config"
	"github.com/recipepanel/foodsync/internal/infrastructure/ratelimit"
	"github.com/recipepanel/foodsync/pkg/logger"
	"github.com/recipepanel/foodsync/pkg/metrics"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, limiter *ratelimit.Limiter) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware("foodsync"))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limits := cfg.RateLimit

	v1 := router.Group("/api/v1")
	{
		off := v1.Group("/off")
		{
			off.GET("/search", RateLimitMiddleware(limiter, ratelimit.OpSearch, limits.Search), handler.Search)
			off.GET("/product/:barcode", RateLimitMiddleware(limiter, ratelimit.OpProduct, limits.Product), handler.Product)
			off.POST("/seed", RateLimitMiddleware(limiter, ratelimit.OpSeed, limits.Seed), handler.Seed)
			off.GET("/seed/:runId", handler.SeedStatus)
		}
	}

	return router
}
