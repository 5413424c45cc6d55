package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/polygate/polygate/internal/testutil"
	"github.com/polygate/polygate/pkg/providers"
)

func streamingClient(chunks ...*providers.StreamChunk) *testutil.MockClient {
	return &testutil.MockClient{
		Name: "upstream",
		StreamChatFn: func(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
			ch := make(chan *providers.StreamChunk, len(chunks))
			for _, c := range chunks {
				ch <- c
			}
			close(ch)
			return ch, nil
		},
	}
}

func TestStreamChatTracksMidStreamFailure(t *testing.T) {
	tracker := &recordingTracker{}
	inner := streamingClient(
		&providers.StreamChunk{Delta: "partial"},
		&providers.StreamChunk{Error: &providers.UnavailableError{
			Provider:   "upstream",
			StatusCode: 503,
			Reason:     "connection reset",
		}},
	)
	w := Wrap(inner, TimeoutPolicy{}, RetryPolicy{}, tracker)

	chunks, err := w.StreamChat(context.Background(), &providers.Request{Kind: providers.KindChatStream, Model: "m"})
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	var received int
	for range chunks {
		received++
	}
	if received != 2 {
		t.Errorf("received %d chunks, want 2", received)
	}

	records := tracker.snapshot()
	if len(records) != 1 {
		t.Fatalf("tracked records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Provider != "upstream" {
		t.Errorf("Provider = %q, want upstream", rec.Provider)
	}
	if rec.Kind != providers.KindServiceUnavailable {
		t.Errorf("Kind = %v, want %v", rec.Kind, providers.KindServiceUnavailable)
	}
	if rec.Status != 503 {
		t.Errorf("Status = %d, want 503", rec.Status)
	}
}

func TestStreamChatTracksOncePerStream(t *testing.T) {
	tracker := &recordingTracker{}
	inner := streamingClient(
		&providers.StreamChunk{Error: &providers.UnavailableError{Provider: "upstream", StatusCode: 502}},
		&providers.StreamChunk{Error: &providers.UnavailableError{Provider: "upstream", StatusCode: 503}},
	)
	w := Wrap(inner, TimeoutPolicy{}, RetryPolicy{}, tracker)

	chunks, err := w.StreamChat(context.Background(), &providers.Request{Kind: providers.KindChatStream, Model: "m"})
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}
	for range chunks {
	}

	if got := len(tracker.snapshot()); got != 1 {
		t.Errorf("tracked records = %d, want 1", got)
	}
}

func TestStreamChatStopsOnCancelledConsumer(t *testing.T) {
	upstream := make(chan *providers.StreamChunk)
	inner := &testutil.MockClient{
		Name: "upstream",
		StreamChatFn: func(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
			return upstream, nil
		},
	}
	w := Wrap(inner, TimeoutPolicy{}, RetryPolicy{}, &recordingTracker{})

	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := w.StreamChat(ctx, &providers.Request{Kind: providers.KindChatStream, Model: "m"})
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	// The consumer walks away without draining; the forwarder must not
	// hang on its unread chunk.
	upstream <- &providers.StreamChunk{Delta: "ignored"}
	cancel()

	select {
	case upstream <- &providers.StreamChunk{Delta: "after cancel"}:
		t.Fatal("forwarder still pulling after cancellation")
	case <-time.After(100 * time.Millisecond):
	}
	close(upstream)

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-chunks:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("chunk channel never closed after cancellation")
		}
	}
}
