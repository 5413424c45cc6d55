package cohere

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// DefaultBaseURL is the Cohere API endpoint.
const DefaultBaseURL = "https://api.cohere.com"

// Client is the Cohere provider adapter.
// It implements the providers.Client interface against Cohere's v2 API.
type Client struct {
	*providers.HTTPClient
	providers.Unimplemented
}

// NewClient creates a new Cohere adapter.
func NewClient(config providers.ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "cohere",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Cohere",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Type == "" {
		config.Type = "cohere"
	}

	c := &Client{
		HTTPClient:    providers.NewHTTPClient(config),
		Unimplemented: providers.Unimplemented{Provider: config.Name},
	}

	slog.Info("Cohere provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return c, nil
}

// headers returns the authorization headers for every call.
func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.Config().Credential.APIKey,
	}
}

// Chat sends a non-streaming v2 chat request.
func (c *Client) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v2/chat", c.Config().BaseURL)
	var cohereResp CohereResponse
	if err := c.DoJSON(ctx, "POST", url, transformRequest(req), &cohereResp, c.headers()); err != nil {
		return nil, err
	}

	resp := transformResponse(&cohereResp)
	resp.Model = req.Model
	resp.Provider = c.GetName()

	slog.Debug("chat request succeeded",
		"provider", c.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// StreamChat sends a streaming v2 chat request.
func (c *Client) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	cohereReq := transformRequest(req)
	cohereReq.Stream = true

	body, err := json.Marshal(cohereReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/chat", c.Config().BaseURL)
	headers := c.headers()
	headers["Accept"] = "text/event-stream"

	resp, err := c.Do(ctx, "POST", url, body, headers)
	if err != nil {
		return nil, err
	}

	ch := make(chan *providers.StreamChunk)
	go c.readStream(ctx, resp.Body, req.Model, ch)
	return ch, nil
}

// readStream pumps Cohere SSE events into canonical chunks.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, model string, ch chan<- *providers.StreamChunk) {
	defer close(ch)
	defer body.Close()

	emit := func(chunk *providers.StreamChunk) bool {
		return providers.DeliverChunk(ctx, c.GetName(), ch, chunk)
	}

	var streamID string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event CohereStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			emit(&providers.StreamChunk{Error: &providers.ParseError{
				Provider:    c.GetName(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}})
			return
		}
		if event.ID != "" {
			streamID = event.ID
		}

		switch event.Type {
		case "content-delta":
			if !emit(&providers.StreamChunk{
				ID:      streamID,
				Model:   model,
				Delta:   event.Delta.Message.Content.Text,
				Created: time.Now().Unix(),
			}) {
				return
			}

		case "message-end":
			chunk := &providers.StreamChunk{
				ID:           streamID,
				Model:        model,
				FinishReason: transformFinishReason(event.Delta.FinishReason),
				Created:      time.Now().Unix(),
			}
			if event.Delta.Usage != nil {
				usage := transformUsage(event.Delta.Usage)
				chunk.Usage = &usage
			}
			emit(chunk)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(&providers.StreamChunk{Error: &providers.StreamError{
			Provider: c.GetName(),
			Message:  "failed to read stream",
			Cause:    err,
		}})
	}
}

// Embedding computes embedding vectors for the request inputs.
func (c *Client) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v2/embed", c.Config().BaseURL)
	cohereReq := &CohereEmbedRequest{
		Model:          req.Model,
		Texts:          req.Input,
		InputType:      "search_document",
		EmbeddingTypes: []string{"float"},
	}

	var cohereResp CohereEmbedResponse
	if err := c.DoJSON(ctx, "POST", url, cohereReq, &cohereResp, c.headers()); err != nil {
		return nil, err
	}

	prompt := cohereResp.Meta.BilledUnits.InputTokens
	return &providers.Response{
		Kind:       providers.KindEmbedding,
		Model:      req.Model,
		Provider:   c.GetName(),
		Embeddings: cohereResp.Embeddings.Float,
		Created:    time.Now().Unix(),
		Usage: providers.Usage{
			PromptTokens: prompt,
			TotalTokens:  prompt,
		},
	}, nil
}

// ListModels returns the model ids the provider exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v1/models", c.Config().BaseURL)
	var list CohereModelList
	if err := c.DoJSON(ctx, "GET", url, nil, &list, c.headers()); err != nil {
		return nil, err
	}

	models := make([]string, len(list.Models))
	for i, m := range list.Models {
		models[i] = m.Name
	}
	return models, nil
}

// VerifyAuth probes GET /v1/models to check the configured credential.
func (c *Client) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	check := &providers.AuthCheck{CheckedAt: time.Now()}
	if _, err := c.ListModels(ctx); err != nil {
		kind, _ := providers.KindOf(err)
		check.Reason = string(kind)
		check.Detail = err.Error()
		return check, nil
	}
	check.OK = true
	return check, nil
}

// Capabilities returns the capability set this adapter offers.
func (c *Client) Capabilities() providers.CapabilitySet {
	return providers.CapabilitySet{
		providers.CapChat,
		providers.CapTextGeneration,
		providers.CapEmbeddings,
		providers.CapFunctionCalling,
		providers.CapToolUsage,
	}
}
