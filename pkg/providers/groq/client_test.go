package groq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polygate/polygate/pkg/providers"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(providers.ClientConfig{Name: "groq"})
	if err == nil {
		t.Fatal("NewClient() accepted empty credential")
	}
	var configErr *providers.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("NewClient() error = %v, want ConfigError", err)
	}
}

func TestChatUsesGroqEndpoint(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"message": {"role": "assistant", "content": "fast"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 1, "total_tokens": 5}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(providers.ClientConfig{
		Name:       "groq",
		BaseURL:    server.URL,
		Credential: providers.Credential{APIKey: "gsk-test"},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	resp, err := client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "llama-3.3-70b-versatile",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "fast" {
		t.Errorf("Content = %q, want fast", resp.Content)
	}
	if path != "/v1/chat/completions" {
		t.Errorf("path = %q, want /v1/chat/completions", path)
	}
	if client.GetType() != "groq" {
		t.Errorf("GetType() = %q, want groq", client.GetType())
	}
}
