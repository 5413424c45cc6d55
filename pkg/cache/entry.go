package cache

import (
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// Entry is one cached response with the bookkeeping the TTL, eviction,
// and size policies read. Entries are owned by the cache; callers only
// ever see response snapshots.
type Entry struct {
	// Key is the request fingerprint.
	Key string

	// Model is the logical model alias the response was produced for.
	Model string

	// Response is the cached response.
	Response *providers.Response

	// Priority orders entries for the priority and tiered policies.
	// Higher values survive eviction longer.
	Priority int

	// Size is the accounting size assigned by the size policy.
	Size int64

	// TTL is the lifetime assigned at insert, before policy adjustment.
	TTL time.Duration

	// CreatedAt is the insert time.
	CreatedAt time.Time

	// LastAccessedAt is the most recent hit time.
	LastAccessedAt time.Time

	// AccessCount is the number of hits.
	AccessCount int64
}

// snapshot returns a shallow copy of the cached response so callers
// cannot mutate the stored entry.
func (e *Entry) snapshot() *providers.Response {
	if e.Response == nil {
		return nil
	}
	resp := *e.Response
	return &resp
}
