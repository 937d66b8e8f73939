package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nutrition-lens/internal/api"
	"nutrition-lens/internal/core/ai/cache"
	"nutrition-lens/internal/core/ai/cascade"
	"nutrition-lens/internal/core/ai/extract"
	"nutrition-lens/internal/core/ai/gemini"
	"nutrition-lens/internal/core/ai/generation"
	"nutrition-lens/internal/core/ai/labels"
	"nutrition-lens/internal/core/ai/openrouter"
	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/ai/queue"
	"nutrition-lens/internal/core/ai/retry"
	"nutrition-lens/internal/core/barcode"
	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/core/image"
	"nutrition-lens/internal/core/recognition"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	ctx := context.Background()

	cacheManager := cache.NewManager(cfg)
	defer cacheManager.Close()

	products, err := cache.NewService(ctx, cfg)
	if err != nil {
		// redis 不可用時直接查詢 Open Food Facts
		common.LogWarn("Redis 無法連線，停用條碼快取", zap.Error(err))
		products = nil
	}
	defer products.Close()

	queueManager := queue.NewManager(cfg.Queue)

	svc, closers := buildService(ctx, cfg, cacheManager, products, queueManager)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				common.LogWarn("關閉供應者失敗", zap.Error(err))
			}
		}
	}()

	router := api.SetupRouter(cfg, api.Dependencies{
		Recognition: svc,
		Cache:       cacheManager,
		Products:    products,
		Queue:       queueManager,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// buildService 依設定建立供應者層級、營養生成與條碼查詢
func buildService(ctx context.Context, cfg *config.Config, cm *cache.CacheManager, products *cache.Service, qm *queue.Manager) (*recognition.Service, []io.Closer) {
	var closers []io.Closer
	catalog := food.DefaultCatalog()
	extractor := extract.New(catalog)
	isFood := labels.CatalogMatcher(catalog, extractor)

	var primary provider.MultiModelProvider
	var geminiClient *gemini.Client
	if cfg.Gemini.Enabled {
		c, err := gemini.NewClient(ctx, cfg)
		if err != nil {
			common.LogWarn("Gemini 初始化失敗，略過主要供應者", zap.Error(err))
		} else {
			geminiClient = c
			primary = c
			closers = append(closers, c)
		}
	}

	var secondaries []provider.Provider
	var openRouterClient *openrouter.Client
	if cfg.OpenRouter.Enabled && cfg.OpenRouter.APIKey != "" {
		openRouterClient = openrouter.NewClient(cfg)
		secondaries = append(secondaries, openRouterClient)
		closers = append(closers, openRouterClient)
	}
	if cfg.Vision.Enabled {
		p, err := labels.NewVisionProvider(ctx, cfg, isFood)
		if err != nil {
			common.LogWarn("Cloud Vision 初始化失敗", zap.Error(err))
		} else {
			secondaries = append(secondaries, p)
			closers = append(closers, p)
		}
	}
	if cfg.Rekognition.Enabled {
		p, err := labels.NewRekognitionProvider(ctx, cfg, isFood)
		if err != nil {
			common.LogWarn("Rekognition 初始化失敗", zap.Error(err))
		} else {
			secondaries = append(secondaries, p)
			closers = append(closers, p)
		}
	}

	policy := retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay)
	orchestrator := cascade.New(primary, extractor,
		cascade.WithSecondary(secondaries...),
		cascade.WithPolicy(policy),
		cascade.WithModelPause(cfg.Retry.ModelPause),
	)

	var text provider.TextGenerator
	switch {
	case cfg.Generation.Provider == "openrouter" && openRouterClient != nil:
		text = openRouterClient
	case geminiClient != nil:
		text = geminiClient
	case openRouterClient != nil:
		text = openRouterClient
	}
	if text == nil {
		common.LogWarn("沒有可用的文字生成供應者，未知食物改用分類估算")
	}
	generator := generation.NewGenerator(text, cm, cfg.Generation)

	var productCache barcode.ProductCache
	if products != nil {
		productCache = products
	}

	var opts []recognition.Option
	if qm != nil {
		opts = append(opts, recognition.WithAdmission(qm))
	}

	svc := recognition.NewService(
		catalog,
		image.NewService(cfg.Image),
		orchestrator,
		generator,
		barcode.NewClient(cfg, productCache),
		opts...,
	)

	common.LogInfo("辨識服務初始化完成",
		zap.Strings("providers", orchestrator.Providers()),
		zap.Int("catalog_size", catalog.Len()),
		zap.Bool("generation_enabled", text != nil),
	)
	return svc, closers
}
