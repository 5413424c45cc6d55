package config

import (
	"fmt"
	"os"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true,
}

var validStrategies = map[string]bool{
	"latency": true, "cost": true, "quality": true, "language": true,
}

var validProviderTypes = map[string]bool{
	"openai":     true,
	"anthropic":  true,
	"cohere":     true,
	"groq":       true,
	"elevenlabs": true,
	"sagemaker":  true,
	"openrouter": true,
	"generic":    true,
}

var validPricingModels = map[string]bool{
	"standard":                true,
	"per_video":               true,
	"per_second_video":        true,
	"inference_steps":         true,
	"tiered_tokens":           true,
	"per_image":               true,
	"per_minute_audio":        true,
	"per_thousand_characters": true,
}

var validCacheBehaviors = map[string]bool{
	"": true, "default": true, "always": true, "never": true,
}

// Validate checks the configuration for internal consistency. It
// returns the first problem found.
func (c *Config) Validate() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}

	if !validStrategies[c.Routing.Strategy] {
		return fmt.Errorf("routing: unknown strategy %q", c.Routing.Strategy)
	}
	if c.Routing.MinQuality < 0 || c.Routing.MinQuality > 100 {
		return fmt.Errorf("routing: min_quality %v outside [0, 100]", c.Routing.MinQuality)
	}

	credentials := map[int]CredentialConfig{}
	for _, cred := range c.Credentials {
		if cred.ID == 0 {
			return fmt.Errorf("credentials: id is required")
		}
		if _, dup := credentials[cred.ID]; dup {
			return fmt.Errorf("credentials: duplicate id %d", cred.ID)
		}
		if cred.APIKeyEnv == "" {
			return fmt.Errorf("credential %d: api_key_env is required", cred.ID)
		}
		credentials[cred.ID] = cred
	}

	providerNames := map[string]string{}
	for _, provider := range c.Providers {
		if provider.Name == "" {
			return fmt.Errorf("providers: name is required")
		}
		if _, dup := providerNames[provider.Name]; dup {
			return fmt.Errorf("providers: duplicate name %q", provider.Name)
		}
		if !validProviderTypes[provider.Type] {
			return fmt.Errorf("provider %q: unknown type %q", provider.Name, provider.Type)
		}
		providerNames[provider.Name] = provider.Type

		cred, ok := credentials[provider.CredentialID]
		if provider.CredentialID != 0 && !ok {
			return fmt.Errorf("provider %q: credential %d not found", provider.Name, provider.CredentialID)
		}
		switch provider.Type {
		case "generic":
			if provider.BaseURL == "" {
				return fmt.Errorf("provider %q: base_url is required for generic providers", provider.Name)
			}
		case "sagemaker":
			if provider.CredentialID == 0 {
				return fmt.Errorf("provider %q: credential_id is required", provider.Name)
			}
			if cred.SecretKeyEnv == "" {
				return fmt.Errorf("provider %q: credential %d needs secret_key_env", provider.Name, provider.CredentialID)
			}
			if cred.Region == "" {
				return fmt.Errorf("provider %q: credential %d needs region", provider.Name, provider.CredentialID)
			}
		default:
			if provider.CredentialID == 0 {
				return fmt.Errorf("provider %q: credential_id is required", provider.Name)
			}
		}
	}

	for _, deployment := range c.Deployments {
		if deployment.Model == "" {
			return fmt.Errorf("deployments: model is required")
		}
		if _, ok := providerNames[deployment.Provider]; !ok {
			return fmt.Errorf("deployment %q: provider %q not found", deployment.Model, deployment.Provider)
		}
		if deployment.Quality < 0 || deployment.Quality > 100 {
			return fmt.Errorf("deployment %q: quality %v outside [0, 100]", deployment.Model, deployment.Quality)
		}
	}

	for model, override := range c.Cache.Overrides {
		if !validCacheBehaviors[override.Behavior] {
			return fmt.Errorf("cache override %q: unknown behavior %q", model, override.Behavior)
		}
		if override.TTLMinutes < 0 {
			return fmt.Errorf("cache override %q: negative ttl_minutes", model)
		}
	}

	for model, entry := range c.Pricing {
		if !validPricingModels[entry.Pricing] {
			return fmt.Errorf("pricing %q: unknown pricing model %q", model, entry.Pricing)
		}
		if _, err := entry.toCostInfo(model); err != nil {
			return fmt.Errorf("pricing %q: %w", model, err)
		}
	}

	return nil
}

// ResolveSecrets checks that every referenced environment variable is
// set. Split from Validate so a file can be validated on a machine
// without production secrets.
func (c *Config) ResolveSecrets() error {
	for _, cred := range c.Credentials {
		if os.Getenv(cred.APIKeyEnv) == "" {
			return fmt.Errorf("credential %d: environment variable %s is not set", cred.ID, cred.APIKeyEnv)
		}
		if cred.SecretKeyEnv != "" && os.Getenv(cred.SecretKeyEnv) == "" {
			return fmt.Errorf("credential %d: environment variable %s is not set", cred.ID, cred.SecretKeyEnv)
		}
	}
	return nil
}
