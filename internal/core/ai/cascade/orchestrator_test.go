package cascade

import (
	"context"
	"sync"
	"testing"
	"time"

	"nutrition-lens/internal/core/ai/extract"
	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/ai/retry"
	"nutrition-lens/internal/core/food"
)

type step struct {
	out provider.Outcome
	err error
}

// fakeMulti 依模型回傳預先排好的結果
type fakeMulti struct {
	mu      sync.Mutex
	models  []string
	script  map[string][]step
	calls   []string
	timeout time.Duration
}

func (f *fakeMulti) Name() string { return "fake-primary" }
func (f *fakeMulti) Models() []string { return f.models }
func (f *fakeMulti) GetTimeout() time.Duration { return f.timeout }
func (f *fakeMulti) Close() error { return nil }

func (f *fakeMulti) Recognize(ctx context.Context, req provider.Request) (provider.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Model)
	steps := f.script[req.Model]
	if len(steps) == 0 {
		return provider.Empty(), nil
	}
	s := steps[0]
	if len(steps) > 1 {
		f.script[req.Model] = steps[1:]
	}
	return s.out, s.err
}

type fakeSecondary struct {
	name  string
	out   provider.Outcome
	err   error
	calls int
}

func (f *fakeSecondary) Name() string { return f.name }
func (f *fakeSecondary) Close() error { return nil }
func (f *fakeSecondary) Recognize(ctx context.Context, req provider.Request) (provider.Outcome, error) {
	f.calls++
	return f.out, f.err
}

type labelSecondary struct{ fakeSecondary }

func (l *labelSecondary) Method() food.Method { return food.MethodLabelDetection }

const chapatiJSON = `{"detectedItems":[{"foodName":"Chapati","visibleCount":2}]}`

func newOrchestrator(primary provider.MultiModelProvider, opts ...Option) *Orchestrator {
	base := []Option{WithPolicy(retry.NewPolicy(2, 0)), WithModelPause(0)}
	return New(primary, extract.New(food.DefaultCatalog()), append(base, opts...)...)
}

func TestPrimarySuccessFirstModel(t *testing.T) {
	t.Parallel()

	p := &fakeMulti{
		models: []string{"m1", "m2"},
		script: map[string][]step{"m1": {{out: provider.Success(chapatiJSON)}}},
	}
	res := newOrchestrator(p).Recognize(context.Background(), provider.Request{ImageBase64: "x"})
	if res.Tier != TierPrimary || res.Model != "m1" || res.Method != food.MethodVision {
		t.Fatalf("result: got=%+v", res)
	}
	if res.IsEstimate {
		t.Fatalf("primary result must not be an estimate")
	}
	if len(p.calls) != 1 {
		t.Fatalf("calls: want=1 got=%v", p.calls)
	}
}

func TestRetryableErrorsRotateModels(t *testing.T) {
	t.Parallel()

	overloaded := &retry.StatusError{Provider: "fake", Status: 503, Body: "overloaded"}
	p := &fakeMulti{
		models: []string{"m1", "m2", "m3"},
		script: map[string][]step{
			"m1": {{err: overloaded}},
			"m2": {{err: overloaded}, {out: provider.Success(chapatiJSON)}},
		},
	}
	res := newOrchestrator(p).Recognize(context.Background(), provider.Request{})
	if res.Model != "m2" || res.Tier != TierPrimary {
		t.Fatalf("result: want m2 primary got=%+v", res)
	}
	// m1 用盡兩次重試後才輪到 m2
	want := []string{"m1", "m1", "m2", "m2"}
	if len(p.calls) != len(want) {
		t.Fatalf("calls: want=%v got=%v", want, p.calls)
	}
	for i := range want {
		if p.calls[i] != want[i] {
			t.Fatalf("calls: want=%v got=%v", want, p.calls)
		}
	}
}

func TestNonRetryableEscalatesToSecondary(t *testing.T) {
	t.Parallel()

	p := &fakeMulti{
		models: []string{"m1", "m2"},
		script: map[string][]step{"m1": {{err: &retry.StatusError{Provider: "fake", Status: 401}}}},
	}
	sec := &labelSecondary{fakeSecondary{name: "labels", out: provider.Success(`{"detectedItems":[{"foodName":"Samosa","visibleCount":1}],"confidence":0.6}`)}}
	res := newOrchestrator(p, WithSecondary(sec)).Recognize(context.Background(), provider.Request{})

	if len(p.calls) != 1 {
		t.Fatalf("primary calls: want=1 got=%v", p.calls)
	}
	if res.Tier != TierSecondary || res.Provider != "labels" || res.Method != food.MethodLabelDetection {
		t.Fatalf("result: got=%+v", res)
	}
	if res.Items[0].FoodName != "Samosa" {
		t.Fatalf("items: got=%+v", res.Items)
	}
}

func TestStructuralFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	p := &fakeMulti{
		models: []string{"m1", "m2"},
		script: map[string][]step{"m1": {{out: provider.StructuralFailure("MAX_TOKENS")}}},
	}
	sec := &fakeSecondary{name: "openrouter", out: provider.Success(chapatiJSON)}
	res := newOrchestrator(p, WithSecondary(sec)).Recognize(context.Background(), provider.Request{})
	if len(p.calls) != 1 || sec.calls != 1 {
		t.Fatalf("calls: primary=%v secondary=%d", p.calls, sec.calls)
	}
	if res.Provider != "openrouter" || res.Method != food.MethodVision {
		t.Fatalf("result: got=%+v", res)
	}
}

func TestUnparseableOutputEscalates(t *testing.T) {
	t.Parallel()

	p := &fakeMulti{
		models: []string{"m1"},
		script: map[string][]step{"m1": {{out: provider.Success("I cannot tell what this is.")}}},
	}
	res := newOrchestrator(p).Recognize(context.Background(), provider.Request{})
	if len(p.calls) != 1 {
		t.Fatalf("calls: want=1 got=%v", p.calls)
	}
	if res.Tier != TierFallback {
		t.Fatalf("tier: want=%s got=%s", TierFallback, res.Tier)
	}
}

func TestAllProvidersFailReturnsFallback(t *testing.T) {
	t.Parallel()

	p := &fakeMulti{
		models: []string{"m1", "m2"},
		script: map[string][]step{
			"m1": {{err: context.DeadlineExceeded}},
			"m2": {{err: context.DeadlineExceeded}},
		},
	}
	sec1 := &fakeSecondary{name: "s1", out: provider.Empty()}
	sec2 := &fakeSecondary{name: "s2", err: &retry.StatusError{Provider: "s2", Status: 500}}
	res := newOrchestrator(p, WithSecondary(sec1, sec2)).Recognize(context.Background(), provider.Request{})

	if res.Method != food.MethodFallback || !res.IsEstimate || res.Tier != TierFallback {
		t.Fatalf("fallback: got=%+v", res)
	}
	if len(res.Items) != 3 || res.Items[0].FoodName != "Chapati" || res.Items[0].VisibleCount != 2 {
		t.Fatalf("fallback items: got=%+v", res.Items)
	}
	if sec1.calls != 1 || sec2.calls != 1 {
		t.Fatalf("secondaries tried once each: got=%d/%d", sec1.calls, sec2.calls)
	}
	if len(p.calls) != 4 {
		t.Fatalf("primary calls: want=4 got=%v", p.calls)
	}
}

func TestNoPrimaryUsesSecondaries(t *testing.T) {
	t.Parallel()

	sec := &fakeSecondary{name: "only", out: provider.Success(chapatiJSON)}
	res := newOrchestrator(nil, WithSecondary(sec)).Recognize(context.Background(), provider.Request{})
	if res.Provider != "only" {
		t.Fatalf("provider: want=only got=%s", res.Provider)
	}
}

func TestFallbackItemsResolveInCatalog(t *testing.T) {
	t.Parallel()

	cat := food.DefaultCatalog()
	for _, it := range NewFallbackProvider().Result().Items {
		if r := cat.Resolve(it.FoodName); r.Match != food.MatchExact {
			t.Fatalf("%s: want exact catalog match got=%s", it.FoodName, r.Match)
		}
	}
}

func TestIsRetryableOutcomes(t *testing.T) {
	t.Parallel()

	if !IsRetryable(&OutcomeError{Provider: "x", Outcome: provider.Empty()}) {
		t.Fatalf("empty outcome should be retryable")
	}
	if IsRetryable(&OutcomeError{Provider: "x", Outcome: provider.StructuralFailure("blocked")}) {
		t.Fatalf("structural failure should not be retryable")
	}
}

func TestProvidersOrder(t *testing.T) {
	t.Parallel()

	p := &fakeMulti{models: []string{"a", "b"}}
	got := newOrchestrator(p, WithSecondary(&fakeSecondary{name: "s"})).Providers()
	want := []string{"fake-primary/a", "fake-primary/b", "s", FallbackProviderName}
	if len(got) != len(want) {
		t.Fatalf("providers: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("providers: want=%v got=%v", want, got)
		}
	}
}
