package generic

import (
	"log/slog"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/providers/openai"
)

// Client is a generic OpenAI-compatible provider adapter.
type Client struct {
	*openai.Client
}

// NewClient creates a new generic OpenAI-compatible adapter.
func NewClient(config providers.ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "generic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "base URL is required for generic provider",
		}
	}

	// Local servers typically run without authentication; a placeholder
	// key keeps the OpenAI adapter's validation satisfied.
	if config.Credential.APIKey == "" {
		config.Credential.APIKey = "not-required"
	}
	if config.Type == "" {
		config.Type = "generic"
	}

	openaiClient, err := openai.NewClient(config)
	if err != nil {
		return nil, err
	}

	c := &Client{Client: openaiClient}

	slog.Info("Generic OpenAI-compatible provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return c, nil
}

// Capabilities returns the capability set this adapter offers.
// OpenAI-compatible servers reliably offer the text surface; media
// endpoints vary per deployment and are not advertised.
func (c *Client) Capabilities() providers.CapabilitySet {
	return providers.CapabilitySet{
		providers.CapChat,
		providers.CapTextGeneration,
		providers.CapEmbeddings,
		providers.CapFunctionCalling,
		providers.CapToolUsage,
		providers.CapJSONMode,
	}
}
