package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// Client sends one completion request to a hosted model. Implementations
// never retry; they classify failures with the sentinels below.
type Client interface {
	Complete(ctx context.Context, input CompletionInput) (string, error)
}

// CompletionInput is a system instruction plus one user turn and sampling knobs.
// Zero values leave the provider default in place.
type CompletionInput struct {
	SystemPrompt    string
	UserPrompt      string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

var (
	ErrRateLimited   = errors.New("upstream rate limited")
	ErrBadRequest    = errors.New("upstream rejected request")
	ErrQuotaExceeded = errors.New("upstream usage quota exhausted")
	ErrTimeout       = errors.New("upstream timed out")
	ErrNetwork       = errors.New("upstream unreachable")
	ErrUpstream      = errors.New("upstream failure")
	ErrNotConfigured = errors.New("critique provider not configured")
)

// StatusError maps a non-2xx HTTP status onto the error taxonomy. Upstream
// 408 and 504 are upstream failures; ErrTimeout is reserved for our own bound.
func StatusError(status int, detail string) error {
	var base error
	switch {
	case status == 429:
		base = ErrRateLimited
	case status == 400:
		base = ErrBadRequest
	case status == 402:
		base = ErrQuotaExceeded
	default:
		base = ErrUpstream
	}
	if detail == "" {
		return fmt.Errorf("%w: status %d", base, status)
	}
	return fmt.Errorf("%w: status %d: %s", base, status, truncate(detail, 300))
}

// ContextError classifies a transport error, treating deadline and
// cancellation as timeouts.
func ContextError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// WithTimeout applies d (or DefaultTimeout) unless ctx already ends sooner.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
