package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/brandlens/brandlens-workflows/internal/providers/common"
)

// scriptedInvoker fails with err for the first failures calls, then succeeds.
type scriptedInvoker struct {
	err      error
	failures int
	calls    int
}

func (s *scriptedInvoker) Invoke(ctx context.Context, providerID, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, s.err
	}
	return &common.RawResponse{Response: "ok"}, nil
}

func newTestRetryInvoker(inner Invoker, defaultWait time.Duration, sleeps *[]time.Duration) *RetryInvoker {
	r := NewRetryInvoker(inner, defaultWait)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return r
}

func rateLimitError(header http.Header, message string) *common.ProviderError {
	return &common.ProviderError{
		Provider:   "openai",
		StatusCode: http.StatusTooManyRequests,
		Header:     header,
		Message:    message,
	}
}

func TestRetryUsesRetryAfterHeader(t *testing.T) {
	header := http.Header{}
	header.Set(common.RetryAfterHeader, "5")
	inner := &scriptedInvoker{err: rateLimitError(header, "rate limit exceeded"), failures: 1}

	var sleeps []time.Duration
	r := newTestRetryInvoker(inner, 60*time.Second, &sleeps)

	resp, err := r.Invoke(context.Background(), "openai", "question", common.InvokeOptions{})
	if err != nil {
		t.Fatalf("Expected retried call to succeed, got %v", err)
	}
	if resp.Response != "ok" {
		t.Errorf("Expected retried response, got %q", resp.Response)
	}
	if inner.calls != 2 {
		t.Errorf("Expected exactly 2 calls, got %d", inner.calls)
	}
	if len(sleeps) != 1 || sleeps[0] != 5*time.Second {
		t.Errorf("Expected one 5s wait, got %v", sleeps)
	}
}

func TestRetryWaitsForLargestHint(t *testing.T) {
	header := http.Header{}
	header.Set(common.RetryAfterHeader, "5")
	header.Set(common.RateLimitResetHeader, "120")
	inner := &scriptedInvoker{
		err:      rateLimitError(header, "rate limit exceeded, retry after 30 seconds"),
		failures: 1,
	}

	var sleeps []time.Duration
	r := newTestRetryInvoker(inner, 60*time.Second, &sleeps)

	if _, err := r.Invoke(context.Background(), "openai", "question", common.InvokeOptions{}); err != nil {
		t.Fatalf("Expected retried call to succeed, got %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 120*time.Second {
		t.Errorf("Expected the largest hint (120s) to win, got %v", sleeps)
	}
}

func TestRetryDefaultWaitOnlyWithoutHints(t *testing.T) {
	inner := &scriptedInvoker{err: rateLimitError(nil, "rate limit exceeded"), failures: 1}

	var sleeps []time.Duration
	r := newTestRetryInvoker(inner, 60*time.Second, &sleeps)

	if _, err := r.Invoke(context.Background(), "openai", "question", common.InvokeOptions{}); err != nil {
		t.Fatalf("Expected retried call to succeed, got %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 60*time.Second {
		t.Errorf("Expected default 60s wait, got %v", sleeps)
	}
}

func TestRetryResetHeaderAsUnixTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	header := http.Header{}
	header.Set(common.RateLimitResetHeader, strconv.FormatInt(now.Add(90*time.Second).Unix(), 10))
	inner := &scriptedInvoker{err: rateLimitError(header, "rate limit exceeded"), failures: 1}

	var sleeps []time.Duration
	r := newTestRetryInvoker(inner, 60*time.Second, &sleeps)
	r.now = func() time.Time { return now }

	if _, err := r.Invoke(context.Background(), "openai", "question", common.InvokeOptions{}); err != nil {
		t.Fatalf("Expected retried call to succeed, got %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 90*time.Second {
		t.Errorf("Expected 90s until reset, got %v", sleeps)
	}
}

func TestNoRetryOnNonRateLimitError(t *testing.T) {
	inner := &scriptedInvoker{err: errors.New("connection refused"), failures: 10}

	var sleeps []time.Duration
	r := newTestRetryInvoker(inner, 60*time.Second, &sleeps)

	_, err := r.Invoke(context.Background(), "openai", "question", common.InvokeOptions{})
	if err == nil {
		t.Fatal("Expected error to pass through")
	}
	if inner.calls != 1 {
		t.Errorf("Expected a single call, got %d", inner.calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("Expected no waits, got %v", sleeps)
	}
}

func TestRetryExactlyOnce(t *testing.T) {
	inner := &scriptedInvoker{err: rateLimitError(nil, "rate limit exceeded"), failures: 10}

	var sleeps []time.Duration
	r := newTestRetryInvoker(inner, time.Second, &sleeps)

	_, err := r.Invoke(context.Background(), "openai", "question", common.InvokeOptions{})
	if err == nil {
		t.Fatal("Expected second failure to surface")
	}
	if inner.calls != 2 {
		t.Errorf("Expected exactly 2 calls, got %d", inner.calls)
	}
	if len(sleeps) != 1 {
		t.Errorf("Expected a single wait, got %v", sleeps)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"status 429", rateLimitError(nil, "too many requests"), true},
		{"message mentions rate limit", errors.New("provider rate limit exceeded"), true},
		{"message mentions 429", errors.New("unexpected status 429"), true},
		{"plain failure", errors.New("connection refused"), false},
		{"provider error without 429", &common.ProviderError{Provider: "openai", StatusCode: 500, Message: "server error"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}
