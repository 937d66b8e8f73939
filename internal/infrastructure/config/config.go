package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	OpenRouter  OpenRouterConfig  `mapstructure:"openrouter"`
	Vision      VisionConfig      `mapstructure:"vision"`
	Rekognition RekognitionConfig `mapstructure:"rekognition"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Barcode     BarcodeConfig     `mapstructure:"barcode"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Image       ImageConfig       `mapstructure:"image"`
	Queue       QueueConfig       `mapstructure:"queue"`
	DedupWindow time.Duration     `mapstructure:"dedup_window"`
	LogLevel    string            `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// GeminiConfig 主要視覺模型設定，Models 依優先順序輪替
type GeminiConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	APIKey          string        `mapstructure:"api_key"`
	Models          []string      `mapstructure:"models"`
	TextModel       string        `mapstructure:"text_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	TextModel string        `mapstructure:"text_model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// VisionConfig Google Cloud Vision 標籤偵測
type VisionConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	MaxLabels       int32         `mapstructure:"max_labels"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RekognitionConfig AWS Rekognition 標籤偵測
type RekognitionConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Region        string        `mapstructure:"region"`
	MaxLabels     int32         `mapstructure:"max_labels"`
	MinConfidence float32       `mapstructure:"min_confidence"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// GenerationConfig 未知食物營養生成設定
type GenerationConfig struct {
	Provider       string        `mapstructure:"provider"` // gemini | openrouter
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// RetryConfig 模型輪替與重試
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	ModelPause  time.Duration `mapstructure:"model_pause"`
}

// BarcodeConfig Open Food Facts 查詢
type BarcodeConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig Redis 連線
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes    int64 `mapstructure:"max_size_bytes"`
	MaxPixels       int64 `mapstructure:"max_pixels"` // 解碼前的寬 x 高上限
	MaxWidth        int   `mapstructure:"max_width"`
	JPEGQuality     int   `mapstructure:"jpeg_quality"`
	AllowRemoteURLs bool  `mapstructure:"allow_remote_urls"`
}

// QueueConfig 同時處理的照片辨識數量
type QueueConfig struct {
	Workers int `mapstructure:"workers"`  // 同時辨識上限，0 代表不限制
	MaxSize int `mapstructure:"max_size"` // 排隊等待上限
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時只依賴環境變數
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.models", "GEMINI_MODELS")
	viper.BindEnv("gemini.text_model", "GEMINI_TEXT_MODEL")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("vision.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("rekognition.region", "AWS_REGION")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"gemini_api_key:", MaskAPIKey(viper.GetString("gemini.api_key")),
		"gemini_models:", viper.GetStringSlice("gemini.models"),
		"openrouter_api_key:", MaskAPIKey(viper.GetString("openrouter.api_key")),
	)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Gemini.Models = normalizeModels(config.Gemini.Models)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// normalizeModels 去除空白與重複的模型名稱，保留順序
func normalizeModels(models []string) []string {
	seen := make(map[string]struct{}, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		// 環境變數可能是單一逗號分隔字串
		for _, part := range strings.Split(m, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "nutrition-lens")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "110s")
	viper.SetDefault("server.max_body_bytes", 12<<20)

	// Gemini 設定
	viper.SetDefault("gemini.enabled", true)
	viper.SetDefault("gemini.models", []string{"gemini-1.5-flash", "gemini-1.5-flash-8b", "gemini-1.5-pro"})
	viper.SetDefault("gemini.text_model", "gemini-1.5-flash")
	viper.SetDefault("gemini.timeout", "25s")
	viper.SetDefault("gemini.temperature", 0.1)
	viper.SetDefault("gemini.max_output_tokens", 1024)

	// OpenRouter 設定
	viper.SetDefault("openrouter.enabled", false)
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "qwen/qwen2.5-vl-72b-instruct:free")
	viper.SetDefault("openrouter.text_model", "meta-llama/llama-3.1-8b-instruct:free")
	viper.SetDefault("openrouter.max_tokens", 1000)
	viper.SetDefault("openrouter.timeout", "30s")

	// 標籤偵測
	viper.SetDefault("vision.enabled", false)
	viper.SetDefault("vision.max_labels", 10)
	viper.SetDefault("vision.timeout", "20s")
	viper.SetDefault("rekognition.enabled", false)
	viper.SetDefault("rekognition.region", "us-east-1")
	viper.SetDefault("rekognition.max_labels", 10)
	viper.SetDefault("rekognition.min_confidence", 70)
	viper.SetDefault("rekognition.timeout", "20s")

	// 營養生成
	viper.SetDefault("generation.provider", "gemini")
	viper.SetDefault("generation.timeout", "20s")
	viper.SetDefault("generation.max_attempts", 3)
	viper.SetDefault("generation.base_delay", "500ms")
	viper.SetDefault("generation.max_concurrency", 4)

	// 重試
	viper.SetDefault("retry.max_attempts", 2)
	viper.SetDefault("retry.base_delay", "500ms")
	viper.SetDefault("retry.model_pause", "1s")

	// 條碼
	viper.SetDefault("barcode.base_url", "https://world.openfoodfacts.org")
	viper.SetDefault("barcode.timeout", "10s")
	viper.SetDefault("barcode.cache_ttl", "168h")

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 60)
	viper.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	viper.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	viper.SetDefault("image.max_pixels", 50_000_000)
	viper.SetDefault("image.max_width", 512)
	viper.SetDefault("image.jpeg_quality", 70)
	viper.SetDefault("image.allow_remote_urls", true)

	// 辨識佇列
	viper.SetDefault("queue.workers", 8)
	viper.SetDefault("queue.max_size", 32)

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Gemini.Enabled && len(config.Gemini.Models) == 0 {
		return fmt.Errorf("gemini enabled but no models configured")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	switch config.Generation.Provider {
	case "gemini", "openrouter":
	default:
		return fmt.Errorf("invalid generation provider: %q", config.Generation.Provider)
	}
	if config.Generation.MaxAttempts <= 0 || config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	if config.Generation.MaxConcurrency <= 0 {
		return fmt.Errorf("invalid generation max concurrency")
	}

	if config.Queue.Workers < 0 || config.Queue.MaxSize < 0 {
		return fmt.Errorf("invalid queue size")
	}

	if config.Image.MaxPixels < 0 {
		return fmt.Errorf("invalid image max pixels")
	}
	if config.Image.MaxWidth <= 0 {
		return fmt.Errorf("invalid image max width")
	}
	if config.Image.JPEGQuality < 1 || config.Image.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality")
	}

	return nil
}
