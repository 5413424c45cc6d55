package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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
		Name:       "anthropic",
		BaseURL:    server.URL,
		Credential: providers.Credential{APIKey: "sk-ant-test"},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestTransformRequestLiftsSystemMessages(t *testing.T) {
	wire, err := transformRequest(&providers.Request{
		Kind:  providers.KindChat,
		Model: "claude-sonnet-4",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "Be terse."},
			{Role: providers.RoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("transformRequest() error = %v", err)
	}
	if wire.System != "Be terse." {
		t.Errorf("system = %q, want lifted system prompt", wire.System)
	}
	if len(wire.Messages) != 1 {
		t.Fatalf("messages = %d, want 1 (system removed)", len(wire.Messages))
	}
	if wire.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want mandatory default 4096", wire.MaxTokens)
	}
}

func TestTransformRequestMapsToolResults(t *testing.T) {
	wire, err := transformRequest(&providers.Request{
		Kind:  providers.KindChat,
		Model: "claude-sonnet-4",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "weather?"},
			{Role: providers.RoleAssistant, ToolCalls: []providers.ToolCall{{
				ID:   "toolu_1",
				Type: providers.ToolTypeFunction,
				Function: providers.FunctionCall{
					Name:      "get_weather",
					Arguments: `{"city":"Oslo"}`,
				},
			}}},
			{Role: providers.RoleTool, ToolCallID: "toolu_1", Content: `{"temp":4}`},
		},
	})
	if err != nil {
		t.Fatalf("transformRequest() error = %v", err)
	}
	if len(wire.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(wire.Messages))
	}

	blocks, ok := wire.Messages[1].Content.([]AnthropicContentBlock)
	if !ok || len(blocks) != 1 || blocks[0].Type != "tool_use" {
		t.Fatalf("assistant content = %#v, want one tool_use block", wire.Messages[1].Content)
	}
	if blocks[0].Input["city"] != "Oslo" {
		t.Errorf("tool input = %v, want decoded arguments", blocks[0].Input)
	}

	results, ok := wire.Messages[2].Content.([]AnthropicContentBlock)
	if !ok || results[0].Type != "tool_result" || results[0].ToolUseID != "toolu_1" {
		t.Fatalf("tool message = %#v, want tool_result block", wire.Messages[2].Content)
	}
	if wire.Messages[2].Role != "user" {
		t.Errorf("tool result role = %q, want user", wire.Messages[2].Role)
	}
}

func TestChatTransformsResponse(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != DefaultAnthropicVersion {
			t.Errorf("anthropic-version = %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var wire AnthropicRequest
		if err := json.Unmarshal(body, &wire); err != nil {
			t.Fatalf("request body is not JSON: %v", err)
		}
		if wire.MaxTokens == 0 {
			t.Error("max_tokens missing from upstream request")
		}

		w.Write([]byte(`{
			"id": "msg_1", "model": "claude-sonnet-4", "role": "assistant",
			"content": [
				{"type": "text", "text": "Using the tool."},
				{"type": "tool_use", "id": "toolu_2", "name": "get_weather", "input": {"city": "Oslo"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5,
			          "cache_read_input_tokens": 6, "cache_creation_input_tokens": 2}
		}`))
	}))

	resp, err := client.Chat(context.Background(), &providers.Request{
		Kind:  providers.KindChat,
		Model: "claude-sonnet-4",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "weather?"},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.FinishReason != providers.FinishReasonToolCalls {
		t.Errorf("finish reason = %q, want tool_calls", resp.FinishReason)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "get_weather" {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(resp.ToolCalls[0].Function.Arguments), &args); err != nil || args["city"] != "Oslo" {
		t.Errorf("tool arguments = %q", resp.ToolCalls[0].Function.Arguments)
	}

	// Prompt tokens include the cached reads and writes.
	if resp.Usage.PromptTokens != 18 || resp.Usage.TotalTokens != 23 {
		t.Errorf("usage = %+v, want prompt 18 total 23", resp.Usage)
	}
	if resp.Usage.CachedInputTokens != 6 || resp.Usage.CacheWriteTokens != 2 {
		t.Errorf("cache usage = %+v", resp.Usage)
	}
}

func TestStreamChatAssemblesEvents(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"message_start","message":{"id":"msg_2","model":"claude-sonnet-4","usage":{"input_tokens":12}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
			`{"type":"message_stop"}`,
		}
		for _, event := range events {
			w.Write([]byte("data: " + event + "\n\n"))
		}
	}))

	ch, err := client.StreamChat(context.Background(), &providers.Request{
		Kind:  providers.KindChatStream,
		Model: "claude-sonnet-4",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "Hello"},
		},
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
	if last == nil || last.FinishReason != providers.FinishReasonStop {
		t.Fatalf("final chunk = %+v, want stop finish reason", last)
	}
	if last.Usage == nil || last.Usage.TotalTokens != 14 {
		t.Errorf("final usage = %+v, want prompt 12 + output 2", last.Usage)
	}
	if last.ID != "msg_2" {
		t.Errorf("chunk id = %q, want carried from message_start", last.ID)
	}
}

func TestEmbeddingUnsupported(t *testing.T) {
	client := testClient(t, http.NotFoundHandler())

	_, err := client.Embedding(context.Background(), &providers.Request{
		Kind:  providers.KindEmbedding,
		Model: "claude-sonnet-4",
		Input: []string{"text"},
	})
	var unsupported *providers.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Embedding() error = %v, want UnsupportedError", err)
	}
}
