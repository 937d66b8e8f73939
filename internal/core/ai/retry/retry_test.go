package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "http 429", err: &StatusError{Provider: "x", Status: 429}, want: true},
		{name: "http 503 wrapped", err: fmt.Errorf("wrap: %w", &StatusError{Provider: "x", Status: 503}), want: true},
		{name: "http 401", err: &StatusError{Provider: "x", Status: 401}, want: false},
		{name: "http 400 mentioning overload", err: &StatusError{Provider: "x", Status: 400, Body: "model overloaded"}, want: false},
		{name: "grpc exhausted", err: status.Error(codes.ResourceExhausted, "quota"), want: true},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "down"), want: true},
		{name: "grpc permission", err: status.Error(codes.PermissionDenied, "bad key"), want: false},
		{name: "grpc invalid", err: status.Error(codes.InvalidArgument, "bad request"), want: false},
		{name: "message overloaded", err: errors.New("The model is overloaded. Please try again later."), want: true},
		{name: "message rate limit", err: errors.New("rate limit reached"), want: true},
		{name: "plain", err: errors.New("invalid api key"), want: false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func recordingPolicy(max int, base time.Duration, slept *[]time.Duration) Policy {
	p := NewPolicy(max, base)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return p
}

func TestPolicyRetriesWithDoublingBackoff(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := recordingPolicy(3, 500*time.Millisecond, &slept)

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return &StatusError{Provider: "x", Status: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: want=nil got=%v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
	if len(slept) != 2 || slept[0] != 500*time.Millisecond || slept[1] != time.Second {
		t.Fatalf("backoff: want=[500ms 1s] got=%v", slept)
	}
}

func TestPolicyStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := recordingPolicy(3, time.Millisecond, &slept)

	calls := 0
	authErr := &StatusError{Provider: "x", Status: 401}
	err := p.Do(context.Background(), "test", func(ctx context.Context, attempt int) error {
		calls++
		return authErr
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("Do: want auth error got=%v", err)
	}
	if calls != 1 || len(slept) != 0 {
		t.Fatalf("calls/sleeps: want=1/0 got=%d/%d", calls, len(slept))
	}
}

func TestPolicyHardCeiling(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := recordingPolicy(2, time.Millisecond, &slept)

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context, attempt int) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do: want deadline got=%v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestPolicyAbortsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPolicy(5, time.Hour)
	calls := 0
	err := p.Do(ctx, "test", func(ctx context.Context, attempt int) error {
		calls++
		return &StatusError{Provider: "x", Status: 429}
	})
	if err == nil || calls != 1 {
		t.Fatalf("Do: want error after one call got=%v calls=%d", err, calls)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Do: want wrapped StatusError got=%v", err)
	}
}

func TestBackoffCapped(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	if got := p.Backoff(1); got != time.Second {
		t.Fatalf("Backoff(1): want=1s got=%v", got)
	}
	if got := p.Backoff(2); got != 2*time.Second {
		t.Fatalf("Backoff(2): want=2s got=%v", got)
	}
	if got := p.Backoff(5); got != 3*time.Second {
		t.Fatalf("Backoff(5): want=3s got=%v", got)
	}
}
