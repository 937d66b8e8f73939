package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

// Status 隊列狀態
type Status struct {
	InFlight       int `json:"in_flight"`
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 限制同時進行的辨識數量，超出的請求排隊等待
type Manager struct {
	slots     chan struct{}
	maxQueue  int64
	waiting   int64
	processed int64
}

// NewManager 創建新的隊列管理器；workers 為 0 時回傳 nil（不限制）
func NewManager(cfg config.QueueConfig) *Manager {
	if cfg.Workers <= 0 {
		return nil
	}
	return &Manager{
		slots:    make(chan struct{}, cfg.Workers),
		maxQueue: int64(cfg.MaxSize),
	}
}

// Acquire 取得處理名額，完成後必須呼叫回傳的 release
// 排隊已滿時回傳 ErrTooManyRequests，等待中 ctx 結束時回傳 ErrRequestTimeout
func (m *Manager) Acquire(ctx context.Context) (func(), error) {
	if m == nil {
		return func() {}, nil
	}

	select {
	case m.slots <- struct{}{}:
		return m.release, nil
	default:
	}

	if n := atomic.AddInt64(&m.waiting, 1); n > m.maxQueue {
		atomic.AddInt64(&m.waiting, -1)
		common.LogWarn("辨識佇列已滿",
			zap.Int64("queue_length", n-1),
			zap.Int64("max_queue_size", m.maxQueue),
		)
		return nil, common.ErrTooManyRequests.Wrap(fmt.Errorf("queue is full"))
	}
	defer atomic.AddInt64(&m.waiting, -1)

	select {
	case m.slots <- struct{}{}:
		return m.release, nil
	case <-ctx.Done():
		return nil, common.ErrRequestTimeout.Wrap(ctx.Err())
	}
}

func (m *Manager) release() {
	<-m.slots
	atomic.AddInt64(&m.processed, 1)
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	if m == nil {
		return nil
	}
	return &Status{
		InFlight:       len(m.slots),
		QueueLength:    int(atomic.LoadInt64(&m.waiting)),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   int(m.maxQueue),
		Workers:        cap(m.slots),
	}
}
