package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"nutrition-lens/internal/core/ai/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestReadinessCheck(t *testing.T) {
	t.Parallel()

	h := NewHandler("test", nil, nil)
	h.AddCheck("redis", func(ctx context.Context) error { return nil })
	r := gin.New()
	r.GET("/ready", h.ReadinessCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready: want=200 got=%d", w.Code)
	}

	h.AddCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready: want=503 got=%d", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "not_ready" || body.Checks["redis"] != "connection refused" {
		t.Fatalf("body: got=%+v", body)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	h := NewHandler("1.2.3",
		func() []string { return []string{"gemini/gemini-1.5-flash", "local-fallback"} },
		func() map[string]interface{} { return map[string]interface{}{"enabled": true, "size": 3} },
	)
	h.SetQueueStatus(func() *queue.Status { return &queue.Status{InFlight: 1, Workers: 8, MaxQueueSize: 32} })
	r := gin.New()
	r.GET("/health", h.HealthCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" || len(resp.Providers) != 2 {
		t.Fatalf("health: got=%+v", resp)
	}
	if resp.Cache["enabled"] != true {
		t.Fatalf("cache stats: got=%v", resp.Cache)
	}
	if resp.Queue == nil || resp.Queue.Workers != 8 || resp.Queue.InFlight != 1 {
		t.Fatalf("queue status: got=%+v", resp.Queue)
	}
}
