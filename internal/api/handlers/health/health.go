package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-lens/internal/core/ai/queue"
	"nutrition-lens/internal/pkg/common"
)

// checkTimeout 單一就緒檢查的時間上限
const checkTimeout = 2 * time.Second

// Check 就緒檢查，回傳 nil 代表依賴可用
type Check func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Providers []string               `json:"providers"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// Handler 健康與就緒檢查
type Handler struct {
	version   string
	providers func() []string
	cache     func() map[string]interface{}
	queue     func() *queue.Status
	checks    map[string]Check
}

// NewHandler 創建健康檢查處理器；providers 與 cache 可為 nil
func NewHandler(version string, providers func() []string, cache func() map[string]interface{}) *Handler {
	return &Handler{
		version:   version,
		providers: providers,
		cache:     cache,
		checks:    make(map[string]Check),
	}
}

// AddCheck 註冊就緒檢查
func (h *Handler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

// SetQueueStatus 在健康檢查中回報辨識隊列
func (h *Handler) SetQueueStatus(status func() *queue.Status) {
	h.queue = status
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Providers: []string{},
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.providers != nil {
		response.Providers = h.providers()
	}
	if h.cache != nil {
		response.Cache = h.cache()
	}
	if h.queue != nil {
		response.Queue = h.queue()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，任一依賴失敗時回 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			ready = false
			results[name] = err.Error()
			common.LogWarn("Readiness check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": results,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": results,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
