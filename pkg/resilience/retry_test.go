package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/polygate/polygate/internal/callctx"
	"github.com/polygate/polygate/pkg/providers"
)

// recordingTracker captures every tracked record for assertions.
type recordingTracker struct {
	mu      sync.Mutex
	records []ErrorRecord
}

func (r *recordingTracker) Track(ctx context.Context, rec ErrorRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recordingTracker) snapshot() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorRecord, len(r.records))
	copy(out, r.records)
	return out
}

func TestRetryPolicyDelayBounds(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, time.Second, 1200 * time.Millisecond},
		{2, 2 * time.Second, 2400 * time.Millisecond},
		{3, 4 * time.Second, 4800 * time.Millisecond},
	}

	for _, tt := range tests {
		// Jitter is random; sample repeatedly.
		for i := 0; i < 50; i++ {
			d := policy.Delay(tt.attempt, 0)
			if d < tt.min || d > tt.max {
				t.Fatalf("Delay(attempt=%d) = %s, want within [%s, %s]", tt.attempt, d, tt.min, tt.max)
			}
		}
	}
}

func TestRetryPolicyDelayClamp(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   10,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
	}

	if d := policy.Delay(10, 0); d > 5*time.Second {
		t.Errorf("Delay(10) = %s exceeds max delay", d)
	}
}

func TestRetryPolicyRetryAfterOverride(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}

	if d := policy.Delay(1, 7*time.Second); d != 7*time.Second {
		t.Errorf("Delay with Retry-After = %s, want 7s", d)
	}

	// Retry-After beyond max delay is clamped.
	if d := policy.Delay(1, time.Minute); d != 30*time.Second {
		t.Errorf("Delay with oversized Retry-After = %s, want 30s", d)
	}
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
	}
	tracker := &recordingTracker{}

	// Failure sequence mirrors upstream statuses 429, 503, then success.
	attempts := 0
	failures := []error{
		&providers.RateLimitError{Provider: "openai"},
		&providers.UnavailableError{Provider: "openai", StatusCode: 503},
	}

	ctx := callctx.With(context.Background(), callctx.Info{KeyID: 7, ProviderID: 2, RequestID: "req-1"})
	err := policy.Execute(ctx, "openai", tracker, func(ctx context.Context) error {
		attempts++
		if attempts <= len(failures) {
			return failures[attempts-1]
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Execute() error = %v, want success on third attempt", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	records := tracker.snapshot()
	if len(records) != 2 {
		t.Fatalf("tracked records = %d, want 2", len(records))
	}
	if records[0].Kind != providers.KindRateLimit {
		t.Errorf("first record kind = %q, want rate_limit", records[0].Kind)
	}
	if records[1].Kind != providers.KindServiceUnavailable {
		t.Errorf("second record kind = %q, want service_unavailable", records[1].Kind)
	}
	for i, rec := range records {
		if rec.KeyID != 7 || rec.ProviderID != 2 {
			t.Errorf("record %d identity = (%d, %d), want (7, 2)", i, rec.KeyID, rec.ProviderID)
		}
		if rec.Attempt != i+1 {
			t.Errorf("record %d attempt = %d, want %d", i, rec.Attempt, i+1)
		}
	}
}

func TestExecuteDoesNotRetryFatalKinds(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
	}
	tracker := &recordingTracker{}

	fatal := []error{
		&providers.AuthError{Provider: "openai"},
		&providers.ForbiddenError{Provider: "openai"},
		&providers.QuotaError{Provider: "openai"},
		&providers.ModelNotFoundError{Provider: "openai", Model: "nope"},
		&providers.InvalidRequestError{Provider: "openai", Message: "bad"},
	}

	for _, failure := range fatal {
		attempts := 0
		err := policy.Execute(context.Background(), "openai", tracker, func(ctx context.Context) error {
			attempts++
			return failure
		})
		if !errors.Is(err, failure) {
			t.Errorf("Execute() error = %v, want %v", err, failure)
		}
		if attempts != 1 {
			t.Errorf("%T: attempts = %d, want 1 (no retry)", failure, attempts)
		}
	}

	if len(tracker.snapshot()) != 0 {
		t.Errorf("fatal kinds must not produce retry-attempt records, got %d", len(tracker.snapshot()))
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
	}
	tracker := &recordingTracker{}

	failure := &providers.UnavailableError{Provider: "groq", StatusCode: 500}
	attempts := 0
	err := policy.Execute(context.Background(), "groq", tracker, func(ctx context.Context) error {
		attempts++
		return failure
	})

	if !errors.Is(err, failure) {
		t.Errorf("Execute() error = %v, want last classified error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
	if got := len(tracker.snapshot()); got != 3 {
		t.Errorf("tracked records = %d, want 3 (one per failed attempt)", got)
	}
}

func TestExecuteParseErrorRetriedOnce(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
	}

	attempts := 0
	failure := &providers.ParseError{Provider: "cohere", Cause: errors.New("bad json")}
	err := policy.Execute(context.Background(), "cohere", nil, func(ctx context.Context) error {
		attempts++
		return failure
	})

	if !errors.Is(err, failure) {
		t.Errorf("Execute() error = %v, want parse error", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (parse errors retried exactly once)", attempts)
	}
}

func TestExecuteRespectsCancellation(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   10,
		InitialDelay: time.Hour, // would block forever without cancellation
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, "openai", nil, func(ctx context.Context) error {
			return &providers.UnavailableError{Provider: "openai", StatusCode: 503}
		})
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Execute() should surface the last error on cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Execute() did not return after cancellation")
	}
}
