package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polygate/polygate/pkg/providers"
)

func TestChatSendsAttributionHeaders(t *testing.T) {
	var gotReferer, gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		w.Write([]byte(`{
			"id": "gen-1", "model": "anthropic/claude-sonnet-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 2, "completion_tokens": 1, "total_tokens": 3}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(providers.ClientConfig{
		Name:       "openrouter",
		BaseURL:    server.URL,
		Credential: providers.Credential{APIKey: "or-test"},
	}, Options{Referer: "https://example.com", Title: "Example"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "anthropic/claude-sonnet-4",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if gotReferer != "https://example.com" || gotTitle != "Example" {
		t.Errorf("attribution headers = %q/%q", gotReferer, gotTitle)
	}
}

func TestNewClientDefaultsAttribution(t *testing.T) {
	client, err := NewClient(providers.ClientConfig{
		Name:       "openrouter",
		Credential: providers.Credential{APIKey: "or-test"},
	}, Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.GetType() != "openrouter" {
		t.Errorf("type = %q, want openrouter", client.GetType())
	}
	if client.Config().BaseURL != DefaultBaseURL {
		t.Errorf("base URL = %q, want default", client.Config().BaseURL)
	}
}
