package providers

import (
	"context"
	"time"
)

// StreamDeliveryTimeout bounds how long a stream pump waits for the
// consumer to take one chunk. A consumer that stops reading without
// cancelling its context would otherwise pin the pump goroutine and
// the upstream connection forever.
var StreamDeliveryTimeout = 30 * time.Second

// DeliverChunk sends one chunk to the consumer, honoring cancellation
// and the delivery bound. It reports whether the stream should
// continue. When delivery times out, a final unavailable-error chunk
// is offered without blocking so a consumer that resumes sees why the
// stream ended.
func DeliverChunk(ctx context.Context, provider string, ch chan<- *StreamChunk, chunk *StreamChunk) bool {
	timer := time.NewTimer(StreamDeliveryTimeout)
	defer timer.Stop()

	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		stalled := &StreamChunk{Error: &UnavailableError{
			Provider:   provider,
			StatusCode: 503,
			Reason:     "stream delivery timed out, consumer stalled",
		}}
		select {
		case ch <- stalled:
		default:
		}
		return false
	}
}
