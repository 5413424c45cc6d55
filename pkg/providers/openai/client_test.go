package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polygate/polygate/pkg/providers"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(providers.ClientConfig{
		Name:       "openai",
		BaseURL:    server.URL,
		Credential: providers.Credential{APIKey: "sk-test"},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, server
}

func chatRequest() *providers.Request {
	return &providers.Request{
		Kind:  providers.KindChat,
		Model: "gpt-4o",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "Hello!"},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(providers.ClientConfig{Name: "openai"})
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewClient() error = %v, want ConfigError", err)
	}
	if cfgErr.Field != "api_key" {
		t.Errorf("ConfigError field = %q, want api_key", cfgErr.Field)
	}
}

func TestChatTransformsResponse(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{
			"id": "chatcmpl-1", "model": "gpt-4o", "created": 1700000000,
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12,
			          "prompt_tokens_details": {"cached_tokens": 4}}
		}`))
	}))

	resp, err := client.Chat(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "Hi there" || resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("response = %q/%q", resp.Content, resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 12 || resp.Usage.CachedInputTokens != 4 {
		t.Errorf("usage = %+v, want reported tokens with cached reads", resp.Usage)
	}
	if resp.Usage.Estimated {
		t.Error("reported usage must not be marked estimated")
	}
	if resp.Provider != "openai" {
		t.Errorf("provider = %q, want openai", resp.Provider)
	}
}

func TestChatEstimatesMissingUsage(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chatcmpl-2", "model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "four char groups here"}, "finish_reason": "stop"}]
		}`))
	}))

	resp, err := client.Chat(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !resp.Usage.Estimated {
		t.Error("missing upstream usage must be synthesized and marked estimated")
	}
	if resp.Usage.TotalTokens != resp.Usage.PromptTokens+resp.Usage.CompletionTokens {
		t.Errorf("estimated usage does not add up: %+v", resp.Usage)
	}
	if resp.Usage.CompletionTokens == 0 {
		t.Error("completion tokens should be estimated from text length")
	}
}

func TestChatMapsUnauthorized(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "bad key"}}`, http.StatusUnauthorized)
	}))

	_, err := client.Chat(context.Background(), chatRequest())
	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Chat() error = %v, want AuthError", err)
	}
}

func TestStreamChatDeliversChunksInOrder(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"id\":\"chatcmpl-3\",\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		w.Write([]byte("data: {\"id\":\"chatcmpl-3\",\"choices\":[{\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":2,\"total_tokens\":11}}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))

	req := chatRequest()
	req.Kind = providers.KindChatStream
	ch, err := client.StreamChat(context.Background(), req)
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	var deltas []string
	var finalUsage *providers.Usage
	for chunk := range ch {
		if chunk.Error != nil {
			t.Fatalf("stream error: %v", chunk.Error)
		}
		deltas = append(deltas, chunk.Delta)
		if chunk.Usage != nil {
			finalUsage = chunk.Usage
		}
	}

	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Errorf("deltas = %v, want [Hel lo]", deltas)
	}
	if finalUsage == nil || finalUsage.TotalTokens != 11 {
		t.Errorf("final usage = %+v, want reported totals", finalUsage)
	}
}

func TestEmbeddingOrdersVectorsByIndex(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q, want /v1/embeddings", r.URL.Path)
		}
		w.Write([]byte(`{
			"model": "text-embedding-3-small",
			"data": [{"index": 1, "embedding": [0.3]}, {"index": 0, "embedding": [0.1, 0.2]}],
			"usage": {"prompt_tokens": 5, "total_tokens": 5}
		}`))
	}))

	resp, err := client.Embedding(context.Background(), &providers.Request{
		Kind:  providers.KindEmbedding,
		Model: "text-embedding-3-small",
		Input: []string{"first", "second"},
	})
	if err != nil {
		t.Fatalf("Embedding() error = %v", err)
	}
	if len(resp.Embeddings) != 2 || len(resp.Embeddings[0]) != 2 || len(resp.Embeddings[1]) != 1 {
		t.Errorf("embeddings not ordered by upstream index: %v", resp.Embeddings)
	}
}

func TestVerifyAuth(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ok     bool
	}{
		{"accepted", http.StatusOK, true},
		{"rejected", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != http.StatusOK {
					http.Error(w, "denied", tt.status)
					return
				}
				w.Write([]byte(`{"data": [{"id": "gpt-4o"}]}`))
			}))

			check, err := client.VerifyAuth(context.Background())
			if err != nil {
				t.Fatalf("VerifyAuth() error = %v", err)
			}
			if check.OK != tt.ok {
				t.Errorf("check.OK = %v, want %v (reason %q)", check.OK, tt.ok, check.Reason)
			}
		})
	}
}

func TestTransformRequestCarriesTools(t *testing.T) {
	req := chatRequest()
	req.Tools = []providers.Tool{{
		Type: providers.ToolTypeFunction,
		Function: providers.FunctionDefinition{
			Name:        "get_weather",
			Description: "Look up current weather",
			Parameters:  map[string]interface{}{"type": "object"},
		},
	}}
	req.ToolChoice = "auto"

	wire := transformRequest(req)
	if len(wire.Tools) != 1 || wire.Tools[0].Function.Name != "get_weather" {
		t.Errorf("tools = %+v, want get_weather carried through", wire.Tools)
	}
	if wire.ToolChoice != "auto" {
		t.Errorf("tool choice = %v, want auto", wire.ToolChoice)
	}
}
