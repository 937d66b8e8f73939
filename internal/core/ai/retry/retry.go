package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nutrition-lens/internal/pkg/common"
)

// HTTPStatusCoder 可回報 HTTP 狀態碼的錯誤（resty 包裝錯誤、AWS ResponseError 等）
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusError 帶有 HTTP 狀態碼的錯誤
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Status, e.Body)
}

// HTTPStatusCode 實作 HTTPStatusCoder
func (e *StatusError) HTTPStatusCode() int {
	return e.Status
}

// IsRetryableHTTPStatus 408、429 與 5xx 可重試
func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

var retryableMessages = []string{
	"overloaded",
	"rate limit",
	"rate-limit",
	"too many requests",
	"resource exhausted",
	"unavailable",
	"try again",
	"timeout",
}

// IsRetryable 判斷錯誤是否屬於暫時性（限流、過載、暫時不可用、逾時）
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
			return true
		case codes.Unknown:
			// 非 gRPC 錯誤，繼續比對訊息
		default:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Policy 有上限的指數退避重試策略
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool

	// sleep 測試時可替換
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy 建立使用 IsRetryable 的策略
func NewPolicy(maxAttempts int, baseDelay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    10 * time.Second,
		Retryable:   IsRetryable,
	}
}

// Backoff 第 attempt 次失敗後的等待時間（從 BaseDelay 起每次加倍）
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// Do 執行 fn，只有可重試的錯誤才會再試，最多 MaxAttempts 次
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := p.Backoff(attempt)
		common.LogWarn("可重試錯誤，稍後重試",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w (retry aborted: %v)", lastErr, err)
		}
	}
	return lastErr
}

// Sleep 可被 context 取消的等待
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
