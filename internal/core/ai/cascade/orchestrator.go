package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nutrition-lens/internal/core/ai/extract"
	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/ai/retry"
	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/pkg/common"
)

const (
	defaultModelTimeout = 25 * time.Second
	defaultModelPause   = time.Second
)

// Tier 產生結果的層級
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierFallback  Tier = "fallback"
)

// Result 供應者辨識結果（已解析）
type Result struct {
	Items      []food.DetectedItem
	Confidence float64
	Provider   string
	Model      string
	Method     food.Method
	Tier       Tier
	IsEstimate bool
}

// methodReporter 可自行回報辨識方法的供應者（例如標籤偵測）
type methodReporter interface {
	Method() food.Method
}

// OutcomeError 供應者回應了非成功的 Outcome
type OutcomeError struct {
	Provider string
	Outcome  provider.Outcome
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Outcome.Kind, e.Outcome.Reason)
}

// Orchestrator 依序驅動主要供應者的模型清單、次要供應者與本地保底
type Orchestrator struct {
	primary     provider.MultiModelProvider
	secondaries []provider.Provider
	fallback    *FallbackProvider
	extractor   *extract.Extractor
	policy      retry.Policy
	modelPause  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option Orchestrator 選項
type Option func(*Orchestrator)

// WithSecondary 追加次要供應者，依加入順序嘗試
func WithSecondary(p ...provider.Provider) Option {
	return func(o *Orchestrator) {
		for _, sp := range p {
			if sp != nil {
				o.secondaries = append(o.secondaries, sp)
			}
		}
	}
}

// WithPolicy 每個模型的重試策略
func WithPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithModelPause 切換模型前的暫停時間
func WithModelPause(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.modelPause = d
	}
}

// WithFallback 替換保底供應者
func WithFallback(f *FallbackProvider) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.fallback = f
		}
	}
}

// New 建立 Orchestrator；primary 可為 nil，此時直接從次要供應者開始
func New(primary provider.MultiModelProvider, extractor *extract.Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		primary:    primary,
		fallback:   NewFallbackProvider(),
		extractor:  extractor,
		policy:     retry.NewPolicy(2, 500*time.Millisecond),
		modelPause: defaultModelPause,
		sleep:      retry.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.policy.Retryable = IsRetryable
	return o
}

// IsRetryable 空輸出視為暫時性，結構性失敗與解析失敗不重試
func IsRetryable(err error) bool {
	var oe *OutcomeError
	if errors.As(err, &oe) {
		return oe.Outcome.Kind == provider.KindEmpty
	}
	if errors.Is(err, common.ErrParse) {
		return false
	}
	return retry.IsRetryable(err)
}

// Providers 目前啟用的供應者名稱（依嘗試順序）
func (o *Orchestrator) Providers() []string {
	var names []string
	if o.primary != nil {
		for _, m := range o.primary.Models() {
			names = append(names, o.primary.Name()+"/"+m)
		}
	}
	for _, p := range o.secondaries {
		names = append(names, p.Name())
	}
	return append(names, o.fallback.Name())
}

// Recognize 依層級嘗試所有供應者，永遠回傳結果
func (o *Orchestrator) Recognize(ctx context.Context, req provider.Request) *Result {
	if o.primary != nil {
		res, err := o.runPrimary(ctx, req)
		if err == nil {
			return res
		}
		common.LogWarn("主要供應者失敗，改用次要供應者",
			zap.String("provider", o.primary.Name()),
			zap.Error(err),
		)
	}

	for _, p := range o.secondaries {
		if ctx.Err() != nil {
			break
		}
		res, err := o.runOnce(ctx, p, req)
		if err == nil {
			return res
		}
		common.LogWarn("次要供應者失敗",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
	}

	common.LogWarn("所有供應者皆失敗，使用本地保底結果",
		zap.Error(common.ErrProviderExhausted),
	)
	return o.fallback.Result()
}

// runPrimary 依序輪替模型；只有暫時性錯誤才換下一個模型
func (o *Orchestrator) runPrimary(ctx context.Context, req provider.Request) (*Result, error) {
	models := o.primary.Models()
	if len(models) == 0 {
		return nil, fmt.Errorf("%s: no models configured", o.primary.Name())
	}

	var lastErr error
	for i, model := range models {
		res, err := o.runModel(ctx, req, model)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
		if i == len(models)-1 {
			break
		}

		common.LogWarn("模型暫時不可用，切換下一個模型",
			zap.String("model", model),
			zap.String("next_model", models[i+1]),
			zap.Error(err),
		)
		if err := o.sleep(ctx, o.modelPause); err != nil {
			return nil, fmt.Errorf("%w (model rotation aborted: %v)", lastErr, err)
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) runModel(ctx context.Context, req provider.Request, model string) (*Result, error) {
	timeout := o.primary.GetTimeout()
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}

	var res *Result
	op := o.primary.Name() + "/" + model
	err := o.policy.Do(ctx, op, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r := req
		r.Model = model
		out, err := o.primary.Recognize(callCtx, r)
		if err != nil {
			return err
		}
		parsed, err := o.parse(o.primary, out)
		if err != nil {
			return err
		}
		parsed.Model = model
		parsed.Tier = TierPrimary
		res = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// runOnce 次要供應者只嘗試一次
func (o *Orchestrator) runOnce(ctx context.Context, p provider.Provider, req provider.Request) (*Result, error) {
	out, err := p.Recognize(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := o.parse(p, out)
	if err != nil {
		return nil, err
	}
	res.Tier = TierSecondary
	return res, nil
}

func (o *Orchestrator) parse(p provider.Provider, out provider.Outcome) (*Result, error) {
	if !out.OK() {
		return nil, &OutcomeError{Provider: p.Name(), Outcome: out}
	}
	extracted, err := o.extractor.Extract(out.Text)
	if err != nil {
		return nil, err
	}

	method := food.MethodVision
	if mr, ok := p.(methodReporter); ok {
		method = mr.Method()
	}
	common.LogDebug("供應者輸出已解析",
		zap.String("provider", p.Name()),
		zap.String("strategy", string(extracted.Strategy)),
		zap.Int("items", len(extracted.Items)),
	)
	return &Result{
		Items:      extracted.Items,
		Confidence: extracted.Confidence,
		Provider:   p.Name(),
		Method:     method,
	}, nil
}
