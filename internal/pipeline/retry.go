package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brandlens/brandlens-workflows/internal/providers/common"
)

// Invoker is the single-call provider interface the pipeline drives. The
// workflows layer supplies an implementation backed by the provider factory.
type Invoker interface {
	Invoke(ctx context.Context, providerID string, promptText string, opts common.InvokeOptions) (*common.RawResponse, error)
}

// retryAfterPattern pulls a wait hint out of error message text; several
// providers only report the retry-after value inside the message body.
var retryAfterPattern = regexp.MustCompile(`(?i)retry[- ]after[:\s]+(\d+)`)

// RetryInvoker wraps an Invoker with the rate-limit recovery policy: when a
// call fails with a rate-limit error, wait for the longest hinted duration and
// retry exactly once. Non-rate-limit failures and second failures pass through
// untouched. The wait is scoped to the calling goroutine, so one provider's
// backoff never stalls another provider's concurrent call.
type RetryInvoker struct {
	inner       Invoker
	defaultWait time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// NewRetryInvoker wraps inner with the single-retry rate-limit policy.
// defaultWait is used when a rate-limited provider gives no usable hint.
func NewRetryInvoker(inner Invoker, defaultWait time.Duration) *RetryInvoker {
	return &RetryInvoker{
		inner:       inner,
		defaultWait: defaultWait,
		sleep:       sleepContext,
		now:         time.Now,
	}
}

func (r *RetryInvoker) Invoke(ctx context.Context, providerID string, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	resp, err := r.inner.Invoke(ctx, providerID, promptText, opts)
	if err == nil {
		return resp, nil
	}
	if !IsRateLimited(err) {
		return nil, err
	}

	wait := r.retryWait(err)
	fmt.Printf("[RetryInvoker] ⏳ %s rate limited, waiting %s before single retry\n", providerID, wait)

	if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
		return nil, err
	}

	return r.inner.Invoke(ctx, providerID, promptText, opts)
}

// IsRateLimited classifies a provider failure as a rate-limit error: status
// 429, or a message mentioning a rate limit.
func IsRateLimited(err error) bool {
	var providerErr *common.ProviderError
	if errors.As(err, &providerErr) && providerErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}

// retryWait computes how long to back off as the maximum of every hint the
// provider supplied: the retry-after header, a retry-after value embedded in
// the message text, and the seconds until the rate-limit window resets.
// Providers disagree about which signal they send, and the largest one is the
// only safe choice. With no hint at all, the configured default applies.
func (r *RetryInvoker) retryWait(err error) time.Duration {
	var providerErr *common.ProviderError
	var header http.Header
	message := err.Error()
	if errors.As(err, &providerErr) {
		header = providerErr.Header
		message = providerErr.Message
	}

	var wait time.Duration
	hinted := false

	if seconds, ok := parseRetryAfterHeader(header); ok {
		wait = maxDuration(wait, time.Duration(seconds)*time.Second)
		hinted = true
	}
	if match := retryAfterPattern.FindStringSubmatch(message); match != nil {
		if seconds, parseErr := strconv.Atoi(match[1]); parseErr == nil {
			wait = maxDuration(wait, time.Duration(seconds)*time.Second)
			hinted = true
		}
	}
	if until, ok := r.parseResetHeader(header); ok {
		wait = maxDuration(wait, until)
		hinted = true
	}

	if !hinted {
		return r.defaultWait
	}
	return wait
}

func parseRetryAfterHeader(header http.Header) (int, bool) {
	if header == nil {
		return 0, false
	}
	value := header.Get(common.RetryAfterHeader)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return seconds, true
}

// parseResetHeader reads the rate-limit reset hint. Providers send either a
// unix timestamp or a plain seconds-until-reset count; anything large enough
// to be a date is treated as a timestamp.
func (r *RetryInvoker) parseResetHeader(header http.Header) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	value := header.Get(common.RateLimitResetHeader)
	if value == "" {
		return 0, false
	}
	reset, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || reset < 0 {
		return 0, false
	}

	const unixThreshold = 1_000_000_000
	if reset >= unixThreshold {
		until := time.Unix(reset, 0).Sub(r.now())
		if until < 0 {
			return 0, false
		}
		return until, true
	}
	return time.Duration(reset) * time.Second, true
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
