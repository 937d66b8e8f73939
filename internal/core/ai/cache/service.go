package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const productKeyPrefix = "barcode:product:"

// Service Redis 條碼產品快取
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

// NewService 創建緩存服務；未啟用時回傳 nil
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewServiceWithClient(client, cfg.Barcode.CacheTTL), nil
}

// NewServiceWithClient 以既有連線建立快取服務
func NewServiceWithClient(client *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{client: client, ttl: ttl}
}

// GetProduct 取得快取的產品
func (s *Service) GetProduct(ctx context.Context, code string) (*food.PackagedProduct, error) {
	if s == nil || s.client == nil {
		return nil, common.ErrCacheDisabled
	}

	data, err := s.client.Get(ctx, productKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("barcode")
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var p food.PackagedProduct
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	common.LogCacheHit("barcode")
	return &p, nil
}

// SetProduct 寫入產品快取
func (s *Service) SetProduct(ctx context.Context, p *food.PackagedProduct) error {
	if s == nil || s.client == nil || p == nil {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	if err := s.client.Set(ctx, productKey(p.Code), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 健康檢查
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return common.ErrCacheDisabled
	}
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func productKey(code string) string {
	return productKeyPrefix + code
}
