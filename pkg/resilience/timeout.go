package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// TimeoutPolicy applies a per-call deadline to provider operations.
// Video generation and realtime connections bypass the deadline because
// generations may take minutes; the bypass is a capability-driven policy
// choice, not path inspection.
type TimeoutPolicy struct {
	// Timeout is the per-call deadline. Zero disables the policy.
	Timeout time.Duration

	// LogEvents controls whether applied deadlines are logged.
	LogEvents bool
}

// DefaultTimeoutPolicy returns a 60 second per-call deadline.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{Timeout: 60 * time.Second}
}

// longRunningKinds bypass the per-call deadline.
var longRunningKinds = map[providers.RequestKind]bool{
	providers.KindVideo:    true,
	providers.KindRealtime: true,
}

// Bound returns a context bounded by the policy for the given request
// kind, and a cancel function the caller must invoke when the call ends.
// Long-running kinds return the parent context unchanged.
func (p TimeoutPolicy) Bound(ctx context.Context, kind providers.RequestKind, provider string) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 || longRunningKinds[kind] {
		return ctx, func() {}
	}

	if p.LogEvents {
		slog.Debug("applying call deadline",
			"provider", provider,
			"kind", kind,
			"timeout", p.Timeout,
		)
	}
	return context.WithTimeout(ctx, p.Timeout)
}
