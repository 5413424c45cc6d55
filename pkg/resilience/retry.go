package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/polygate/polygate/internal/callctx"
	"github.com/polygate/polygate/pkg/providers"
)

// RetryPolicy controls how failed provider calls are retried.
// It is stateless and safe to share across clients and goroutines.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts after the first.
	MaxRetries int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay clamps the exponential schedule.
	MaxDelay time.Duration

	// LogEvents controls whether each retry is logged.
	LogEvents bool
}

// DefaultRetryPolicy returns the standard schedule: 3 retries starting at
// one second, clamped to 30 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		LogEvents:    true,
	}
}

// Delay computes the backoff before the given retry attempt (1-based):
// initial * 2^(attempt-1) plus uniform jitter in [0, 0.2*delay), clamped
// to MaxDelay. A positive retryAfter from the provider overrides the
// schedule.
func (p RetryPolicy) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if p.MaxDelay > 0 && retryAfter > p.MaxDelay {
			return p.MaxDelay
		}
		return retryAfter
	}

	delay := time.Duration(float64(p.InitialDelay) * math.Pow(2, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * 0.2 * float64(delay))
	delay += jitter
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// retryAfterOf extracts the provider-supplied Retry-After hint, if any.
func retryAfterOf(err error) time.Duration {
	var rle *providers.RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}

// Execute runs fn with retry. Attempts that fail with a retryable kind
// (rate limit, timeout, service unavailable, network) are retried up to
// MaxRetries times; each such failure is reported to the tracker with the
// bound call identity and attempt index. Malformed-response failures are
// retried exactly once. Non-retryable failures surface immediately.
func (p RetryPolicy) Execute(ctx context.Context, provider string, tracker ErrorTracker, fn func(ctx context.Context) error) error {
	var lastErr error
	parseRetried := false

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt, retryAfterOf(lastErr))
			if p.LogEvents {
				slog.Debug("retrying provider call",
					"provider", provider,
					"attempt", attempt,
					"max_retries", p.MaxRetries,
					"delay", delay,
				)
			}
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		kind, status := providers.KindOf(err)

		// Malformed provider responses get a single retry.
		var parseErr *providers.ParseError
		if errors.As(err, &parseErr) {
			if parseRetried {
				return err
			}
			parseRetried = true
			continue
		}

		if !providers.IsRetryable(kind) {
			return err
		}

		report(ctx, tracker, provider, kind, status, attempt+1)

		if attempt >= p.MaxRetries {
			if p.LogEvents {
				slog.Warn("retries exhausted",
					"provider", provider,
					"attempts", attempt+1,
					"kind", kind,
					"error", err,
				)
			}
			return err
		}

		if ctx.Err() != nil {
			return err
		}
	}
}

// report sends one error-tracking record for a failed retryable attempt.
func report(ctx context.Context, tracker ErrorTracker, provider string, kind providers.ErrorKind, status, attempt int) {
	if tracker == nil || !providers.IsTracked(kind) {
		return
	}

	rec := ErrorRecord{
		Provider: provider,
		Kind:     kind,
		Status:   status,
		Attempt:  attempt,
	}
	if info, ok := callctx.From(ctx); ok {
		rec.KeyID = info.KeyID
		rec.ProviderID = info.ProviderID
		rec.CorrelationID = info.RequestID
	}
	tracker.Track(ctx, rec)
}
