package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// anthropicStreamEvent is the envelope of every Messages API SSE event.
type anthropicStreamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		ID    string         `json:"id"`
		Model string         `json:"model"`
		Usage AnthropicUsage `json:"usage"`
	} `json:"message,omitempty"`
	Index        int                    `json:"index,omitempty"`
	ContentBlock *AnthropicContentBlock `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *AnthropicUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// streamReader reads Server-Sent Events from the Messages API and
// assembles canonical chunks. Anthropic splits identity, deltas, and
// usage across event types, so the reader carries the message id and
// input token count between events.
type streamReader struct {
	client  *providers.HTTPClient
	resp    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool

	messageID    string
	model        string
	promptTokens int

	// Current tool_use block, when one is streaming.
	toolID   string
	toolName string
}

// newStreamReader opens an SSE stream for the given request.
func newStreamReader(ctx context.Context, client *providers.HTTPClient, url string, req *AnthropicRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Do(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	return &streamReader{
		client:  client,
		resp:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF when the stream ends normally.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &providers.StreamError{
					Provider: s.client.GetName(),
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.client.GetName(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}

		chunk, done, err := s.handleEvent(&event)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, io.EOF
		}
		if chunk != nil {
			return chunk, nil
		}
	}
}

// handleEvent converts one SSE event to at most one chunk.
func (s *streamReader) handleEvent(event *anthropicStreamEvent) (*providers.StreamChunk, bool, error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.messageID = event.Message.ID
			s.model = event.Message.Model
			s.promptTokens = event.Message.Usage.InputTokens +
				event.Message.Usage.CacheReadInputTokens +
				event.Message.Usage.CacheCreationInputTokens
		}
		return nil, false, nil

	case "content_block_start":
		if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
			s.toolID = event.ContentBlock.ID
			s.toolName = event.ContentBlock.Name
		}
		return nil, false, nil

	case "content_block_delta":
		if event.Delta == nil {
			return nil, false, nil
		}
		chunk := s.newChunk()
		switch event.Delta.Type {
		case "text_delta":
			chunk.Delta = event.Delta.Text
		case "input_json_delta":
			chunk.ToolCalls = []providers.ToolCall{{
				ID:   s.toolID,
				Type: providers.ToolTypeFunction,
				Function: providers.FunctionCall{
					Name:      s.toolName,
					Arguments: event.Delta.PartialJSON,
				},
			}}
		default:
			return nil, false, nil
		}
		return chunk, false, nil

	case "content_block_stop":
		s.toolID, s.toolName = "", ""
		return nil, false, nil

	case "message_delta":
		chunk := s.newChunk()
		if event.Delta != nil {
			chunk.FinishReason = transformStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			chunk.Usage = &providers.Usage{
				PromptTokens:     s.promptTokens,
				CompletionTokens: event.Usage.OutputTokens,
				TotalTokens:      s.promptTokens + event.Usage.OutputTokens,
			}
		}
		return chunk, false, nil

	case "message_stop":
		return nil, true, nil

	case "error":
		msg := "upstream stream error"
		if event.Error != nil {
			msg = event.Error.Message
		}
		return nil, false, &providers.StreamError{
			Provider: s.client.GetName(),
			Message:  msg,
		}

	default:
		// ping and future event types are skipped.
		return nil, false, nil
	}
}

// newChunk returns a chunk stamped with the stream identity.
func (s *streamReader) newChunk() *providers.StreamChunk {
	return &providers.StreamChunk{
		ID:      s.messageID,
		Model:   s.model,
		Created: time.Now().Unix(),
	}
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Close()
}
