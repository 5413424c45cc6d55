// Package testutil provides a scriptable provider client for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/polygate/polygate/pkg/providers"
)

// MockClient implements providers.Client with scriptable behavior.
// Unset function fields return a canned successful response. Call
// counts are tracked per method and safe for concurrent use.
type MockClient struct {
	Name string
	Type string
	Caps providers.CapabilitySet

	ChatFn       func(ctx context.Context, req *providers.Request) (*providers.Response, error)
	StreamChatFn func(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error)
	EmbeddingFn  func(ctx context.Context, req *providers.Request) (*providers.Response, error)
	ImageFn      func(ctx context.Context, req *providers.Request) (*providers.Response, error)
	VideoFn      func(ctx context.Context, req *providers.Request) (*providers.Response, error)
	TTSFn        func(ctx context.Context, req *providers.Request) (*providers.Response, error)
	STTFn        func(ctx context.Context, req *providers.Request) (*providers.Response, error)
	ListModelsFn func(ctx context.Context) ([]string, error)
	VerifyAuthFn func(ctx context.Context) (*providers.AuthCheck, error)

	mu     sync.Mutex
	calls  map[string]int
	closed bool
}

// Calls returns how many times the named method was invoked.
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// canned builds the default successful response for a request kind.
func (m *MockClient) canned(kind providers.RequestKind, req *providers.Request) *providers.Response {
	model := ""
	if req != nil {
		model = req.Model
	}
	return &providers.Response{
		Kind:     kind,
		ID:       "mock-response",
		Model:    model,
		Provider: m.Name,
		Content:  "mock content",
		Usage:    providers.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// Chat implements providers.Client.
func (m *MockClient) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.record("Chat")
	if m.ChatFn != nil {
		return m.ChatFn(ctx, req)
	}
	return m.canned(providers.KindChat, req), nil
}

// StreamChat implements providers.Client.
func (m *MockClient) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	m.record("StreamChat")
	if m.StreamChatFn != nil {
		return m.StreamChatFn(ctx, req)
	}
	ch := make(chan *providers.StreamChunk, 1)
	ch <- &providers.StreamChunk{ID: "mock-response", Delta: "mock chunk", FinishReason: providers.FinishReasonStop}
	close(ch)
	return ch, nil
}

// Embedding implements providers.Client.
func (m *MockClient) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.record("Embedding")
	if m.EmbeddingFn != nil {
		return m.EmbeddingFn(ctx, req)
	}
	resp := m.canned(providers.KindEmbedding, req)
	resp.Embeddings = [][]float64{{0.1, 0.2, 0.3}}
	return resp, nil
}

// Image implements providers.Client.
func (m *MockClient) Image(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.record("Image")
	if m.ImageFn != nil {
		return m.ImageFn(ctx, req)
	}
	return m.canned(providers.KindImage, req), nil
}

// Video implements providers.Client.
func (m *MockClient) Video(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.record("Video")
	if m.VideoFn != nil {
		return m.VideoFn(ctx, req)
	}
	return m.canned(providers.KindVideo, req), nil
}

// TTS implements providers.Client.
func (m *MockClient) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.record("TTS")
	if m.TTSFn != nil {
		return m.TTSFn(ctx, req)
	}
	return m.canned(providers.KindTTS, req), nil
}

// STT implements providers.Client.
func (m *MockClient) STT(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.record("STT")
	if m.STTFn != nil {
		return m.STTFn(ctx, req)
	}
	return m.canned(providers.KindSTT, req), nil
}

// ListModels implements providers.Client.
func (m *MockClient) ListModels(ctx context.Context) ([]string, error) {
	m.record("ListModels")
	if m.ListModelsFn != nil {
		return m.ListModelsFn(ctx)
	}
	return []string{"mock-model"}, nil
}

// VerifyAuth implements providers.Client.
func (m *MockClient) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	m.record("VerifyAuth")
	if m.VerifyAuthFn != nil {
		return m.VerifyAuthFn(ctx)
	}
	return &providers.AuthCheck{OK: true}, nil
}

// Capabilities implements providers.Client.
func (m *MockClient) Capabilities() providers.CapabilitySet {
	if m.Caps != nil {
		return m.Caps
	}
	return providers.CapabilitySet{providers.CapChat, providers.CapEmbeddings}
}

// GetName implements providers.Client.
func (m *MockClient) GetName() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

// GetType implements providers.Client.
func (m *MockClient) GetType() string {
	if m.Type == "" {
		return "mock"
	}
	return m.Type
}

// Close implements providers.Client.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
