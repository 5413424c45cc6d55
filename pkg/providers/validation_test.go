package providers

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{
		{
			name:    "nil request",
			req:     nil,
			wantErr: true,
		},
		{
			name:    "missing model",
			req:     &Request{Kind: KindChat, Messages: []Message{{Role: RoleUser, Content: "hi"}}},
			wantErr: true,
		},
		{
			name:    "chat without messages",
			req:     &Request{Kind: KindChat, Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name: "valid chat",
			req: &Request{
				Kind:     KindChat,
				Model:    "gpt-4o",
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			},
			wantErr: false,
		},
		{
			name:    "embedding without input",
			req:     &Request{Kind: KindEmbedding, Model: "text-embedding-3-small"},
			wantErr: true,
		},
		{
			name:    "valid embedding",
			req:     &Request{Kind: KindEmbedding, Model: "text-embedding-3-small", Input: []string{"hello"}},
			wantErr: false,
		},
		{
			name:    "image without prompt",
			req:     &Request{Kind: KindImage, Model: "dall-e-3"},
			wantErr: true,
		},
		{
			name:    "stt without audio",
			req:     &Request{Kind: KindSTT, Model: "whisper-1"},
			wantErr: true,
		},
		{
			name:    "valid stt",
			req:     &Request{Kind: KindSTT, Model: "whisper-1", Audio: []byte{1, 2, 3}},
			wantErr: false,
		},
		{
			name: "unknown role",
			req: &Request{
				Kind:     KindChat,
				Model:    "gpt-4o",
				Messages: []Message{{Role: "narrator", Content: "hi"}},
			},
			wantErr: true,
		},
		{
			name: "non-function tool type",
			req: &Request{
				Kind:     KindChat,
				Model:    "gpt-4o",
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
				Tools:    []Tool{{Type: "retrieval", Function: FunctionDefinition{Name: "f"}}},
			},
			wantErr: true,
		},
		{
			name: "invalid json tool call arguments",
			req: &Request{
				Kind:  KindChat,
				Model: "gpt-4o",
				Messages: []Message{{
					Role: RoleAssistant,
					ToolCalls: []ToolCall{{
						ID:       "call_1",
						Type:     ToolTypeFunction,
						Function: FunctionCall{Name: "lookup", Arguments: "{not json"},
					}},
				}},
			},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			req:     &Request{Kind: "telepathy", Model: "gpt-4o"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRequestCleansExtensions(t *testing.T) {
	req := &Request{
		Kind:     KindChat,
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Extensions: map[string]interface{}{
			"top_k":      40,
			"logit_bias": nil,
		},
	}
	if err := ValidateRequest(req); err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if _, ok := req.Extensions["logit_bias"]; ok {
		t.Error("null extension survived validation")
	}
	if req.Extensions["top_k"] != 40 {
		t.Errorf("top_k = %v, want 40", req.Extensions["top_k"])
	}

	req.Extensions = map[string]interface{}{"max_tokens": -5}
	err := ValidateRequest(req)
	var invalidErr *InvalidRequestError
	if !errors.As(err, &invalidErr) || invalidErr.Field != "max_tokens" {
		t.Fatalf("ValidateRequest() error = %v, want invalid max_tokens", err)
	}
}

func TestValidateFunctionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "get_weather", false},
		{"with dash", "get-weather", false},
		{"alphanumeric", "tool42", false},
		{"exactly 64 chars", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"65 chars", strings.Repeat("a", 65), true},
		{"space", "get weather", true},
		{"dot", "get.weather", true},
		{"unicode", "gét_weather", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFunctionName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFunctionName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestCleanExtensions(t *testing.T) {
	tests := []struct {
		name     string
		ext      map[string]interface{}
		wantErr  bool
		wantKeys int
	}{
		{
			name:     "nil map",
			ext:      nil,
			wantErr:  false,
			wantKeys: 0,
		},
		{
			name:     "strips nulls",
			ext:      map[string]interface{}{"a": nil, "b": "keep"},
			wantErr:  false,
			wantKeys: 1,
		},
		{
			name:    "negative token count rejected",
			ext:     map[string]interface{}{"max_tokens": float64(-1)},
			wantErr: true,
		},
		{
			name:    "negative steps rejected",
			ext:     map[string]interface{}{"num_steps": -5},
			wantErr: true,
		},
		{
			name:    "negative seed rejected",
			ext:     map[string]interface{}{"seed": float64(-7)},
			wantErr: true,
		},
		{
			name:     "negative non-count value allowed",
			ext:      map[string]interface{}{"presence_penalty": float64(-1.5)},
			wantErr:  false,
			wantKeys: 1,
		},
		{
			name:     "positive counts allowed",
			ext:      map[string]interface{}{"width": float64(512), "height": float64(512)},
			wantErr:  false,
			wantKeys: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, err := CleanExtensions(tt.ext)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CleanExtensions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(cleaned) != tt.wantKeys {
				t.Errorf("CleanExtensions() kept %d keys, want %d", len(cleaned), tt.wantKeys)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}
