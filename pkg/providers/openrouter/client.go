package openrouter

import (
	"log/slog"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/providers/openai"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api"

// Attribution defaults sent when the deployment configures none.
const (
	DefaultReferer = "https://github.com/polygate/polygate"
	DefaultTitle   = "Polygate"
)

// Options carries the OpenRouter attribution headers.
type Options struct {
	// Referer is sent as HTTP-Referer to identify the calling app.
	Referer string

	// Title is sent as X-Title, the app name shown in OpenRouter
	// rankings.
	Title string
}

// Client is the OpenRouter provider adapter. OpenRouter serves the
// OpenAI API format, so the adapter reuses the OpenAI transforms.
type Client struct {
	*openai.Client
}

// NewClient creates a new OpenRouter adapter.
func NewClient(config providers.ClientConfig, opts Options) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openrouter",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenRouter",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Type == "" {
		config.Type = "openrouter"
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	openaiClient, err := openai.NewClientWithHeaders(config, map[string]string{
		"HTTP-Referer": opts.Referer,
		"X-Title":      opts.Title,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{Client: openaiClient}

	slog.Info("OpenRouter provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return c, nil
}

// Capabilities returns the capability set this adapter offers.
func (c *Client) Capabilities() providers.CapabilitySet {
	return providers.CapabilitySet{
		providers.CapChat,
		providers.CapTextGeneration,
		providers.CapVision,
		providers.CapFunctionCalling,
		providers.CapToolUsage,
		providers.CapJSONMode,
	}
}
