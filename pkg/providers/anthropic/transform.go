package anthropic

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// Anthropic Messages API request/response types

// AnthropicRequest represents an Anthropic Messages API request.
type AnthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	Messages      []AnthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	Temperature   float64            `json:"temperature,omitempty"`
	TopP          float64            `json:"top_p,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Tools         []AnthropicTool    `json:"tools,omitempty"`
	Metadata      *AnthropicMetadata `json:"metadata,omitempty"`
}

// AnthropicMetadata carries the optional end-user identifier.
type AnthropicMetadata struct {
	UserID string `json:"user_id,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format. Content is
// either a plain string or a list of content blocks.
type AnthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// AnthropicContentBlock represents a single content block.
type AnthropicContentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
}

// AnthropicTool represents a tool definition in Anthropic format.
type AnthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// AnthropicResponse represents an Anthropic Messages API response.
type AnthropicResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      AnthropicUsage          `json:"usage"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// AnthropicModelList represents a GET /v1/models response.
type AnthropicModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Transformation functions

// transformRequest transforms a canonical chat request to Anthropic
// format. System messages are lifted into the top-level system field.
func transformRequest(req *providers.Request) (*AnthropicRequest, error) {
	anthropicReq := &AnthropicRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
	}
	// max_tokens is mandatory upstream.
	if anthropicReq.MaxTokens == 0 {
		anthropicReq.MaxTokens = 4096
	}
	if req.User != "" {
		anthropicReq.Metadata = &AnthropicMetadata{UserID: req.User}
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			if anthropicReq.System != "" {
				anthropicReq.System += "\n"
			}
			anthropicReq.System += msg.Content

		case providers.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
					Role: "assistant", Content: msg.Content,
				})
				continue
			}
			var blocks []AnthropicContentBlock
			if msg.Content != "" {
				blocks = append(blocks, AnthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := map[string]interface{}{}
				if call.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
						return nil, fmt.Errorf("tool call %q arguments: %w", call.ID, err)
					}
				}
				blocks = append(blocks, AnthropicContentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Function.Name,
					Input: input,
				})
			}
			anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
				Role: "assistant", Content: blocks,
			})

		case providers.RoleTool:
			anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
				Role: "user",
				Content: []AnthropicContentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})

		default:
			anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
				Role: "user", Content: msg.Content,
			})
		}
	}

	for _, tool := range req.Tools {
		anthropicReq.Tools = append(anthropicReq.Tools, AnthropicTool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}

	return anthropicReq, nil
}

// transformResponse transforms an Anthropic response to the canonical
// shape.
func transformResponse(anthropicResp *AnthropicResponse) (*providers.Response, error) {
	resp := &providers.Response{
		Kind:         providers.KindChat,
		ID:           anthropicResp.ID,
		Model:        anthropicResp.Model,
		FinishReason: transformStopReason(anthropicResp.StopReason),
		Created:      time.Now().Unix(),
		Usage:        transformUsage(anthropicResp.Usage),
	}

	for _, block := range anthropicResp.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("tool use %q input: %w", block.ID, err)
			}
			resp.ToolCalls = append(resp.ToolCalls, providers.ToolCall{
				ID:   block.ID,
				Type: providers.ToolTypeFunction,
				Function: providers.FunctionCall{
					Name:      block.Name,
					Arguments: string(args),
				},
			})
		}
	}

	return resp, nil
}

// transformUsage converts Anthropic usage to the canonical shape.
// Anthropic's input_tokens excludes cached reads and writes; the
// canonical prompt count includes them.
func transformUsage(u AnthropicUsage) providers.Usage {
	prompt := u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
	return providers.Usage{
		PromptTokens:      prompt,
		CompletionTokens:  u.OutputTokens,
		TotalTokens:       prompt + u.OutputTokens,
		CachedInputTokens: u.CacheReadInputTokens,
		CacheWriteTokens:  u.CacheCreationInputTokens,
	}
}

// transformStopReason maps Anthropic stop reasons to canonical finish
// reasons.
func transformStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonToolCalls
	default:
		return reason
	}
}
