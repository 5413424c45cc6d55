package cohere

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polygate/polygate/pkg/providers"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(providers.ClientConfig{
		Name:       "cohere",
		BaseURL:    server.URL,
		Credential: providers.Credential{APIKey: "co-test"},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestChatCarriesSearchUnits(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/chat" {
			t.Errorf("path = %q, want /v2/chat", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "chat_1",
			"message": {"role": "assistant", "content": [{"type": "text", "text": "Grounded answer"}]},
			"finish_reason": "COMPLETE",
			"usage": {"billed_units": {"input_tokens": 20, "output_tokens": 4, "search_units": 2}}
		}`))
	}))

	resp, err := client.Chat(context.Background(), &providers.Request{
		Kind:  providers.KindChat,
		Model: "command-r-plus",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "What happened today?"},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "Grounded answer" || resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("response = %q/%q", resp.Content, resp.FinishReason)
	}
	if resp.Usage.SearchUnits != 2 {
		t.Errorf("search units = %d, want 2 from billed_units", resp.Usage.SearchUnits)
	}
	if resp.Usage.TotalTokens != 24 {
		t.Errorf("total tokens = %d, want 24", resp.Usage.TotalTokens)
	}
}

func TestChatFallsBackToRawTokens(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chat_2",
			"message": {"role": "assistant", "content": [{"type": "text", "text": "ok"}]},
			"finish_reason": "COMPLETE",
			"usage": {"tokens": {"input_tokens": 7, "output_tokens": 1}}
		}`))
	}))

	resp, err := client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "command-r",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Usage.PromptTokens != 7 || resp.Usage.TotalTokens != 8 {
		t.Errorf("usage = %+v, want raw token fallback", resp.Usage)
	}
}

func TestStreamChatAssemblesDeltas(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"id":"chat_3","type":"message-start"}`,
			`{"type":"content-delta","delta":{"message":{"content":{"text":"Hel"}}}}`,
			`{"type":"content-delta","delta":{"message":{"content":{"text":"lo"}}}}`,
			`{"type":"message-end","delta":{"finish_reason":"COMPLETE","usage":{"billed_units":{"input_tokens":5,"output_tokens":2}}}}`,
		}
		for _, event := range events {
			w.Write([]byte("data: " + event + "\n\n"))
		}
	}))

	ch, err := client.StreamChat(context.Background(), &providers.Request{
		Kind:     providers.KindChatStream,
		Model:    "command-r",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	var text string
	var last *providers.StreamChunk
	for chunk := range ch {
		if chunk.Error != nil {
			t.Fatalf("stream error: %v", chunk.Error)
		}
		text += chunk.Delta
		last = chunk
	}

	if text != "Hello" {
		t.Errorf("assembled text = %q, want Hello", text)
	}
	if last == nil || last.FinishReason != providers.FinishReasonStop || last.Usage == nil || last.Usage.TotalTokens != 7 {
		t.Errorf("final chunk = %+v", last)
	}
	if last.ID != "chat_3" {
		t.Errorf("chunk id = %q, want carried from message-start", last.ID)
	}
}

func TestEmbedding(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/embed" {
			t.Errorf("path = %q, want /v2/embed", r.URL.Path)
		}
		w.Write([]byte(`{
			"embeddings": {"float": [[0.1, 0.2], [0.3, 0.4]]},
			"meta": {"billed_units": {"input_tokens": 6}}
		}`))
	}))

	resp, err := client.Embedding(context.Background(), &providers.Request{
		Kind:  providers.KindEmbedding,
		Model: "embed-v4.0",
		Input: []string{"first", "second"},
	})
	if err != nil {
		t.Fatalf("Embedding() error = %v", err)
	}
	if len(resp.Embeddings) != 2 || resp.Usage.PromptTokens != 6 {
		t.Errorf("response = %+v", resp)
	}
}
