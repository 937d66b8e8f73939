package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-lens/internal/api/handlers/health"
	recognitionHandler "nutrition-lens/internal/api/handlers/recognition"
	"nutrition-lens/internal/api/middleware"
	"nutrition-lens/internal/core/ai/cache"
	"nutrition-lens/internal/core/ai/queue"
	"nutrition-lens/internal/core/recognition"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

// Dependencies 路由所需的服務；Cache、Products 與 Queue 可為 nil
type Dependencies struct {
	Recognition *recognition.Service
	Cache       *cache.CacheManager
	Products    *cache.Service
	Queue       *queue.Manager
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := health.NewHandler(cfg.App.Version, deps.Recognition.Providers, deps.Cache.GetStats)
	if deps.Products != nil {
		healthHandler.AddCheck("redis", deps.Products.Ping)
	}
	if deps.Queue != nil {
		healthHandler.SetQueueStatus(deps.Queue.GetQueueStatus)
	}
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	handler := recognitionHandler.NewHandler(deps.Recognition, cfg.App.Debug)

	api := router.Group("/api/v1")
	api.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	{
		recognize := api.Group("/recognize")
		recognize.POST("/food", handler.HandleFoodRecognition)
		recognize.GET("/barcode/:code", handler.HandleBarcode)

		api.POST("/nutrition/lookup", handler.HandleNutritionLookup)
	}

	common.LogInfo("Router setup completed",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Strings("providers", deps.Recognition.Providers()),
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Bool("redis_enabled", deps.Products != nil),
		zap.Bool("queue_enabled", deps.Queue != nil),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
