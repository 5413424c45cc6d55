package groq

import (
	"log/slog"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/providers/openai"
)

// DefaultBaseURL is the Groq OpenAI-compatible API endpoint.
const DefaultBaseURL = "https://api.groq.com/openai"

// Client is the Groq provider adapter. Groq serves the OpenAI API
// format, so the adapter reuses the OpenAI transforms with Groq's
// endpoint and capability set.
type Client struct {
	*openai.Client
}

// NewClient creates a new Groq adapter.
func NewClient(config providers.ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "groq",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Groq",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Type == "" {
		config.Type = "groq"
	}

	openaiClient, err := openai.NewClient(config)
	if err != nil {
		return nil, err
	}

	c := &Client{Client: openaiClient}

	slog.Info("Groq provider initialized",
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
		providers.CapFunctionCalling,
		providers.CapToolUsage,
		providers.CapJSONMode,
		providers.CapTranscription,
	}
}
