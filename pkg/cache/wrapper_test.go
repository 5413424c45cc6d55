package cache

import (
	"context"
	"testing"
	"time"

	"github.com/polygate/polygate/internal/testutil"
	"github.com/polygate/polygate/pkg/providers"
)

func chatRequest(model string) *providers.Request {
	return &providers.Request{
		Kind:     providers.KindChat,
		Model:    model,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hello"}},
	}
}

func TestWrapperServesRepeatedChatFromCache(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	mock := &testutil.MockClient{Name: "openai"}
	w := Wrap(mock, c, WrapperConfig{DefaultTTL: time.Minute})

	first, err := w.Chat(context.Background(), chatRequest("gpt-4o"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	second, err := w.Chat(context.Background(), chatRequest("gpt-4o"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if mock.Calls("Chat") != 1 {
		t.Errorf("upstream Chat calls = %d, want 1 (second call served from cache)", mock.Calls("Chat"))
	}
	if first.Content != second.Content {
		t.Errorf("cached content %q differs from original %q", second.Content, first.Content)
	}

	stats := c.Metrics().ModelSnapshot("gpt-4o")
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("metrics = %d hits / %d misses, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestWrapperNeverBehaviorBypassesCache(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	mock := &testutil.MockClient{Name: "openai"}
	w := Wrap(mock, c, WrapperConfig{
		DefaultTTL: time.Minute,
		Overrides:  map[string]ModelOverride{"gpt-4o": {Behavior: BehaviorNever}},
	})

	for i := 0; i < 3; i++ {
		if _, err := w.Chat(context.Background(), chatRequest("gpt-4o")); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
	}
	if mock.Calls("Chat") != 3 {
		t.Errorf("upstream Chat calls = %d, want 3 (never-cached model)", mock.Calls("Chat"))
	}
	if c.Len() != 0 {
		t.Errorf("cache holds %d entries for a never-cached model", c.Len())
	}
}

func TestWrapperEmbeddingCached(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	mock := &testutil.MockClient{Name: "openai"}
	w := Wrap(mock, c, WrapperConfig{DefaultTTL: time.Minute})

	req := &providers.Request{
		Kind:  providers.KindEmbedding,
		Model: "text-embedding-3",
		Input: []string{"hello"},
	}

	if _, err := w.Embedding(context.Background(), req); err != nil {
		t.Fatalf("Embedding() error = %v", err)
	}
	if _, err := w.Embedding(context.Background(), req); err != nil {
		t.Fatalf("Embedding() error = %v", err)
	}
	if mock.Calls("Embedding") != 1 {
		t.Errorf("upstream Embedding calls = %d, want 1", mock.Calls("Embedding"))
	}
}

func TestWrapperStreamNeverCached(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	mock := &testutil.MockClient{Name: "openai"}
	w := Wrap(mock, c, WrapperConfig{DefaultTTL: time.Minute})

	for i := 0; i < 2; i++ {
		chunks, err := w.StreamChat(context.Background(), chatRequest("gpt-4o"))
		if err != nil {
			t.Fatalf("StreamChat() error = %v", err)
		}
		for range chunks {
		}
	}
	if mock.Calls("StreamChat") != 2 {
		t.Errorf("upstream StreamChat calls = %d, want 2 (streams bypass cache)", mock.Calls("StreamChat"))
	}
}

func TestWrapperDoesNotCacheFailures(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	mock := &testutil.MockClient{
		Name: "openai",
		ChatFn: func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
			return nil, &providers.UnavailableError{Provider: "openai", StatusCode: 503}
		},
	}
	w := Wrap(mock, c, WrapperConfig{DefaultTTL: time.Minute})

	if _, err := w.Chat(context.Background(), chatRequest("gpt-4o")); err == nil {
		t.Fatal("Chat() should surface the upstream failure")
	}
	if c.Len() != 0 {
		t.Errorf("failed response was cached, len = %d", c.Len())
	}
}
