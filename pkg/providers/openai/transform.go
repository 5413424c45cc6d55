package openai

import (
	"fmt"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// OpenAI API request/response types

// OpenAIRequest represents an OpenAI chat completion request.
type OpenAIRequest struct {
	Model          string                 `json:"model"`
	Messages       []OpenAIMessage        `json:"messages"`
	Temperature    float64                `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	TopP           float64                `json:"top_p,omitempty"`
	N              int                    `json:"n,omitempty"`
	Stream         bool                   `json:"stream,omitempty"`
	StreamOptions  *OpenAIStreamOptions   `json:"stream_options,omitempty"`
	Tools          []OpenAITool           `json:"tools,omitempty"`
	ToolChoice     interface{}            `json:"tool_choice,omitempty"`
	Stop           []string               `json:"stop,omitempty"`
	User           string                 `json:"user,omitempty"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

// OpenAIStreamOptions tunes streaming behavior.
type OpenAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// OpenAIMessage represents a message in OpenAI format.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	Name       string           `json:"name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// OpenAIToolCall represents a tool call in OpenAI format.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

// OpenAIFunctionCall represents a function call in OpenAI format.
type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAITool represents a tool definition in OpenAI format.
type OpenAITool struct {
	Type     string                   `json:"type"`
	Function OpenAIFunctionDefinition `json:"function"`
}

// OpenAIFunctionDefinition represents a function definition in OpenAI format.
type OpenAIFunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// OpenAIResponse represents an OpenAI chat completion response.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAIChoice represents a completion choice in OpenAI format.
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// OpenAIUsage represents token usage in OpenAI format.
type OpenAIUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
}

// OpenAIEmbeddingRequest represents an embeddings request.
type OpenAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	User  string   `json:"user,omitempty"`
}

// OpenAIEmbeddingResponse represents an embeddings response.
type OpenAIEmbeddingResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage OpenAIUsage `json:"usage"`
}

// OpenAIImageRequest represents an image generation request.
type OpenAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

// OpenAIImageResponse represents an image generation response.
type OpenAIImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// OpenAISpeechRequest represents a text-to-speech request.
type OpenAISpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// OpenAITranscription represents a transcription response.
type OpenAITranscription struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration,omitempty"`
}

// OpenAIModelList represents a GET /v1/models response.
type OpenAIModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// OpenAI streaming response types

// OpenAIStreamResponse represents a chunk in OpenAI's SSE stream.
type OpenAIStreamResponse struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []OpenAIStreamChoice `json:"choices"`
	Usage   *OpenAIUsage         `json:"usage,omitempty"`
}

// OpenAIStreamChoice represents a choice in a stream chunk.
type OpenAIStreamChoice struct {
	Index        int               `json:"index"`
	Delta        OpenAIStreamDelta `json:"delta"`
	FinishReason string            `json:"finish_reason,omitempty"`
}

// OpenAIStreamDelta represents the incremental content in a stream chunk.
type OpenAIStreamDelta struct {
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// Transformation functions

// transformRequest transforms a canonical chat request to OpenAI format.
func transformRequest(req *providers.Request) *OpenAIRequest {
	openaiReq := &OpenAIRequest{
		Model:       req.Model,
		Messages:    make([]OpenAIMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		N:           req.N,
		Stop:        req.Stop,
		User:        req.User,
		ToolChoice:  req.ToolChoice,
	}

	for i, msg := range req.Messages {
		openaiReq.Messages[i] = OpenAIMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
			ToolCalls:  transformToolCallsOut(msg.ToolCalls),
		}
	}

	for _, tool := range req.Tools {
		openaiReq.Tools = append(openaiReq.Tools, OpenAITool{
			Type: tool.Type,
			Function: OpenAIFunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	if format, ok := req.Extensions["response_format"].(map[string]interface{}); ok {
		openaiReq.ResponseFormat = format
	}

	return openaiReq
}

// transformToolCallsOut converts canonical tool calls to OpenAI format.
func transformToolCallsOut(calls []providers.ToolCall) []OpenAIToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]OpenAIToolCall, len(calls))
	for i, call := range calls {
		out[i] = OpenAIToolCall{
			ID:   call.ID,
			Type: call.Type,
			Function: OpenAIFunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		}
	}
	return out
}

// transformToolCallsIn converts OpenAI tool calls to canonical format.
func transformToolCallsIn(calls []OpenAIToolCall) []providers.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]providers.ToolCall, len(calls))
	for i, call := range calls {
		out[i] = providers.ToolCall{
			ID:   call.ID,
			Type: call.Type,
			Function: providers.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		}
	}
	return out
}

// transformResponse transforms an OpenAI response to the canonical shape.
// When the upstream response carries no usage, token counts are estimated
// from text length and marked as such.
func transformResponse(req *providers.Request, openaiResp *OpenAIResponse) (*providers.Response, error) {
	if len(openaiResp.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}

	choice := openaiResp.Choices[0]
	resp := &providers.Response{
		Kind:         providers.KindChat,
		ID:           openaiResp.ID,
		Model:        openaiResp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		ToolCalls:    transformToolCallsIn(choice.Message.ToolCalls),
		Created:      openaiResp.Created,
		Usage:        transformUsage(openaiResp.Usage),
	}

	if resp.Usage.TotalTokens == 0 {
		resp.Usage = estimateChatUsage(req, choice.Message.Content)
	}
	return resp, nil
}

// transformUsage converts OpenAI usage to the canonical shape.
func transformUsage(u OpenAIUsage) providers.Usage {
	usage := providers.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.PromptTokensDetails != nil {
		usage.CachedInputTokens = u.PromptTokensDetails.CachedTokens
	}
	return usage
}

// estimateChatUsage synthesizes usage from text length (~4 chars/token).
func estimateChatUsage(req *providers.Request, completion string) providers.Usage {
	prompt := providers.EstimateMessageTokens(req.Messages)
	done := providers.EstimateTokens(completion)
	return providers.Usage{
		PromptTokens:     prompt,
		CompletionTokens: done,
		TotalTokens:      prompt + done,
		Estimated:        true,
	}
}

// transformStreamChunk transforms a stream chunk to the canonical shape.
func transformStreamChunk(openaiChunk *OpenAIStreamResponse) (*providers.StreamChunk, error) {
	chunk := &providers.StreamChunk{
		ID:      openaiChunk.ID,
		Model:   openaiChunk.Model,
		Created: openaiChunk.Created,
	}

	if len(openaiChunk.Choices) > 0 {
		choice := openaiChunk.Choices[0]
		chunk.Delta = choice.Delta.Content
		chunk.FinishReason = choice.FinishReason
		chunk.ToolCalls = transformToolCallsIn(choice.Delta.ToolCalls)
	}

	if openaiChunk.Usage != nil {
		usage := transformUsage(*openaiChunk.Usage)
		chunk.Usage = &usage
	}

	if chunk.Created == 0 {
		chunk.Created = time.Now().Unix()
	}
	return chunk, nil
}
