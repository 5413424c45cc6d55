package anthropic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

const (
	// DefaultBaseURL is the Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is the API version to use.
	DefaultAnthropicVersion = "2023-06-01"
)

// Client is the Anthropic provider adapter.
// It implements the providers.Client interface for the Messages API.
type Client struct {
	*providers.HTTPClient
	providers.Unimplemented
}

// NewClient creates a new Anthropic adapter.
func NewClient(config providers.ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Type == "" {
		config.Type = "anthropic"
	}

	c := &Client{
		HTTPClient:    providers.NewHTTPClient(config),
		Unimplemented: providers.Unimplemented{Provider: config.Name},
	}

	slog.Info("Anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return c, nil
}

// headers returns the authentication headers for every call.
func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.Config().Credential.APIKey,
		"anthropic-version": DefaultAnthropicVersion,
	}
}

// Chat sends a non-streaming Messages API request.
func (c *Client) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	anthropicReq, err := transformRequest(req)
	if err != nil {
		return nil, &providers.InvalidRequestError{Provider: c.GetName(), Message: err.Error()}
	}

	url := fmt.Sprintf("%s/v1/messages", c.Config().BaseURL)
	var anthropicResp AnthropicResponse
	if err := c.DoJSON(ctx, "POST", url, anthropicReq, &anthropicResp, c.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&anthropicResp)
	if err != nil {
		return nil, &providers.ParseError{Provider: c.GetName(), Cause: err}
	}
	resp.Provider = c.GetName()

	slog.Debug("chat request succeeded",
		"provider", c.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// StreamChat sends a streaming Messages API request.
func (c *Client) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	anthropicReq, err := transformRequest(req)
	if err != nil {
		return nil, &providers.InvalidRequestError{Provider: c.GetName(), Message: err.Error()}
	}
	anthropicReq.Stream = true

	url := fmt.Sprintf("%s/v1/messages", c.Config().BaseURL)
	headers := c.headers()
	headers["Accept"] = "text/event-stream"

	stream, err := newStreamReader(ctx, c.HTTPClient, url, anthropicReq, headers)
	if err != nil {
		return nil, err
	}

	ch := make(chan *providers.StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			chunk, err := stream.Read(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				providers.DeliverChunk(ctx, c.GetName(), ch, &providers.StreamChunk{Error: err})
				return
			}
			if !providers.DeliverChunk(ctx, c.GetName(), ch, chunk) {
				return
			}
		}
	}()
	return ch, nil
}

// ListModels returns the model ids the provider exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v1/models", c.Config().BaseURL)
	var list AnthropicModelList
	if err := c.DoJSON(ctx, "GET", url, nil, &list, c.headers()); err != nil {
		return nil, err
	}

	models := make([]string, len(list.Data))
	for i, m := range list.Data {
		models[i] = m.ID
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
		providers.CapVision,
		providers.CapFunctionCalling,
		providers.CapToolUsage,
	}
}
