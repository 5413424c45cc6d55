package resilience

import (
	"context"

	"github.com/polygate/polygate/pkg/providers"
)

// ErrorRecord is one classified provider failure written to the
// error-tracking port. The gateway never persists records itself.
type ErrorRecord struct {
	// KeyID is the credential id bound to the failed call.
	KeyID int

	// ProviderID is the provider id bound to the failed call.
	ProviderID int

	// Provider is the adapter name.
	Provider string

	// Kind is the classified error kind.
	Kind providers.ErrorKind

	// Status is the upstream HTTP status, when known.
	Status int

	// Attempt is the 1-based attempt index that failed.
	Attempt int

	// CorrelationID ties records from the same call together.
	CorrelationID string
}

// ErrorTracker is the sink port for classified provider failures.
// Implementations must be safe for concurrent use.
type ErrorTracker interface {
	// Track records one failure. Implementations should not block.
	Track(ctx context.Context, rec ErrorRecord)
}

// NopTracker discards all records.
type NopTracker struct{}

// Track implements ErrorTracker.
func (NopTracker) Track(ctx context.Context, rec ErrorRecord) {}
