package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/polygate/polygate/pkg/providers"
)

// streamReader reads Server-Sent Events (SSE) from OpenAI's streaming API.
type streamReader struct {
	client  *providers.HTTPClient
	resp    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// newStreamReader opens an SSE stream for the given request.
func newStreamReader(ctx context.Context, client *providers.HTTPClient, url string, req *OpenAIRequest, headers map[string]string) (*streamReader, error) {
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
		if line == "" {
			continue
		}

		// Skip non-data lines (comments, event types, etc.)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil, io.EOF
		}

		var openaiChunk OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &openaiChunk); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.client.GetName(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		chunk, err := transformStreamChunk(&openaiChunk)
		if err != nil {
			return nil, &providers.ParseError{
				Provider: s.client.GetName(),
				Cause:    err,
			}
		}
		return chunk, nil
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

// pump drains a stream reader into a channel, delivering a mid-stream
// failure as a final chunk with Error set. Delivery is bounded so an
// abandoned consumer does not pin the goroutine.
func pump(ctx context.Context, provider string, stream providers.StreamReader, ch chan<- *providers.StreamChunk) {
	defer close(ch)
	defer stream.Close()

	for {
		chunk, err := stream.Read(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			providers.DeliverChunk(ctx, provider, ch, &providers.StreamChunk{Error: err})
			return
		}
		if !providers.DeliverChunk(ctx, provider, ch, chunk) {
			return
		}
	}
}
