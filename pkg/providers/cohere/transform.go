package cohere

import (
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// Cohere v2 API request/response types

// CohereRequest represents a Cohere v2 chat request.
type CohereRequest struct {
	Model         string          `json:"model"`
	Messages      []CohereMessage `json:"messages"`
	Temperature   float64         `json:"temperature,omitempty"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	P             float64         `json:"p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []CohereTool    `json:"tools,omitempty"`
}

// CohereMessage represents a message in Cohere format.
type CohereMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []CohereToolCall `json:"tool_calls,omitempty"`
}

// CohereTool represents a tool definition in Cohere format.
type CohereTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description,omitempty"`
		Parameters  map[string]interface{} `json:"parameters,omitempty"`
	} `json:"function"`
}

// CohereToolCall represents a tool call in Cohere format.
type CohereToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// CohereResponse represents a Cohere v2 chat response.
type CohereResponse struct {
	ID      string `json:"id"`
	Message struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		ToolCalls []CohereToolCall `json:"tool_calls,omitempty"`
	} `json:"message"`
	FinishReason string      `json:"finish_reason"`
	Usage        CohereUsage `json:"usage"`
}

// CohereUsage represents usage in Cohere format. BilledUnits is the
// billable view and includes search units for grounded calls.
type CohereUsage struct {
	BilledUnits struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		SearchUnits  int `json:"search_units"`
	} `json:"billed_units"`
	Tokens struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"tokens"`
}

// CohereEmbedRequest represents a v2 embed request.
type CohereEmbedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

// CohereEmbedResponse represents a v2 embed response.
type CohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float64 `json:"float"`
	} `json:"embeddings"`
	Meta struct {
		BilledUnits struct {
			InputTokens int `json:"input_tokens"`
		} `json:"billed_units"`
	} `json:"meta"`
}

// CohereModelList represents a GET /v1/models response.
type CohereModelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CohereStreamEvent represents one v2 chat SSE event.
type CohereStreamEvent struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Delta struct {
		Message struct {
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
		FinishReason string       `json:"finish_reason"`
		Usage        *CohereUsage `json:"usage"`
	} `json:"delta"`
}

// Transformation functions

// transformRequest transforms a canonical chat request to Cohere format.
func transformRequest(req *providers.Request) *CohereRequest {
	cohereReq := &CohereRequest{
		Model:         req.Model,
		Messages:      make([]CohereMessage, len(req.Messages)),
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		P:             req.TopP,
		StopSequences: req.Stop,
	}

	for i, msg := range req.Messages {
		out := CohereMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			wire := CohereToolCall{ID: call.ID, Type: call.Type}
			wire.Function.Name = call.Function.Name
			wire.Function.Arguments = call.Function.Arguments
			out.ToolCalls = append(out.ToolCalls, wire)
		}
		cohereReq.Messages[i] = out
	}

	for _, tool := range req.Tools {
		wire := CohereTool{Type: tool.Type}
		wire.Function.Name = tool.Function.Name
		wire.Function.Description = tool.Function.Description
		wire.Function.Parameters = tool.Function.Parameters
		cohereReq.Tools = append(cohereReq.Tools, wire)
	}

	return cohereReq
}

// transformResponse transforms a Cohere response to the canonical shape.
func transformResponse(cohereResp *CohereResponse) *providers.Response {
	resp := &providers.Response{
		Kind:         providers.KindChat,
		ID:           cohereResp.ID,
		FinishReason: transformFinishReason(cohereResp.FinishReason),
		Created:      time.Now().Unix(),
		Usage:        transformUsage(&cohereResp.Usage),
	}

	for _, block := range cohereResp.Message.Content {
		if block.Type == "text" {
			resp.Content += block.Text
		}
	}
	for _, call := range cohereResp.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, providers.ToolCall{
			ID:   call.ID,
			Type: providers.ToolTypeFunction,
			Function: providers.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}

	return resp
}

// transformUsage converts Cohere usage to the canonical shape, preferring
// the billed view over the raw token counts.
func transformUsage(u *CohereUsage) providers.Usage {
	prompt := u.BilledUnits.InputTokens
	done := u.BilledUnits.OutputTokens
	if prompt == 0 && done == 0 {
		prompt = u.Tokens.InputTokens
		done = u.Tokens.OutputTokens
	}
	return providers.Usage{
		PromptTokens:     prompt,
		CompletionTokens: done,
		TotalTokens:      prompt + done,
		SearchUnits:      u.BilledUnits.SearchUnits,
	}
}

// transformFinishReason maps Cohere finish reasons to canonical ones.
func transformFinishReason(reason string) string {
	switch reason {
	case "COMPLETE", "STOP_SEQUENCE":
		return providers.FinishReasonStop
	case "MAX_TOKENS":
		return providers.FinishReasonLength
	case "TOOL_CALL":
		return providers.FinishReasonToolCalls
	default:
		return reason
	}
}
