package config

import "time"

// Config is the root configuration for the gateway.
type Config struct {
	// Logging configures the process-wide logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `yaml:"metrics"`

	// Resilience configures retry and timeout policy.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Pool configures per-provider connection pooling.
	Pool PoolConfig `yaml:"pool"`

	// Cache configures the response cache.
	Cache CacheConfig `yaml:"cache"`

	// Routing configures deployment selection.
	Routing RoutingConfig `yaml:"routing"`

	// Providers lists the upstream provider adapters.
	Providers []ProviderConfig `yaml:"providers"`

	// Credentials lists the upstream credentials. Secrets are resolved
	// from the environment at load time and never written back.
	Credentials []CredentialConfig `yaml:"credentials"`

	// Deployments maps logical model aliases onto providers.
	Deployments []DeploymentConfig `yaml:"deployments"`

	// Pricing is the per-model cost table.
	Pricing map[string]PricingEntry `yaml:"pricing"`
}

// LoggingConfig tunes the logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig tunes the Prometheus collectors.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name segment.
	Subsystem string `yaml:"subsystem"`

	// ListenAddress serves /metrics when non-empty.
	ListenAddress string `yaml:"listen_address"`
}

// ResilienceConfig tunes retry and timeout behavior.
type ResilienceConfig struct {
	// MaxRetries is the number of retry attempts after the first call.
	MaxRetries int `yaml:"max_retries"`

	// InitialDelay is the base backoff before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay clamps the exponential backoff schedule.
	MaxDelay time.Duration `yaml:"max_delay"`

	// RequestTimeout is the per-call deadline. Video and realtime calls
	// bypass it.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PoolConfig tunes per-provider connection pooling.
type PoolConfig struct {
	// MaxConnections bounds concurrently checked-out connections.
	MaxConnections int `yaml:"max_connections"`

	// MaxIdle retires connections idle longer than this.
	MaxIdle time.Duration `yaml:"max_idle"`

	// MaxAge retires connections older than this, across checkouts.
	MaxAge time.Duration `yaml:"max_age"`

	// ConnectTimeout bounds a single dial.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// CleanupInterval is the idle-sweep period.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Warmup pre-dials this many connections at startup.
	Warmup int `yaml:"warmup"`
}

// CacheConfig tunes the response cache.
type CacheConfig struct {
	// Enabled turns response caching on.
	Enabled bool `yaml:"enabled"`

	// DefaultTTL is the entry lifetime when no override applies.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// MaxItems bounds the entry count (item-count capacity policy).
	MaxItems int `yaml:"max_items"`

	// MaintenanceSchedule is a cron expression for background expiry
	// sweeps.
	MaintenanceSchedule string `yaml:"maintenance_schedule"`

	// StatsPath persists per-model cache statistics to a sqlite file
	// when non-empty.
	StatsPath string `yaml:"stats_path"`

	// Overrides tunes caching per provider model id.
	Overrides map[string]CacheOverride `yaml:"overrides"`
}

// CacheOverride tunes caching for one model.
type CacheOverride struct {
	// Behavior is one of default, always, never.
	Behavior string `yaml:"behavior"`

	// TTLMinutes overrides the entry lifetime (0 = cache default).
	TTLMinutes int `yaml:"ttl_minutes"`
}

// RoutingConfig tunes deployment selection.
type RoutingConfig struct {
	// Strategy selects the routing strategy: latency, cost, quality, or
	// language.
	Strategy string `yaml:"strategy"`

	// MinQuality is the quality floor for the cost strategy.
	MinQuality float64 `yaml:"min_quality"`
}

// ProviderConfig describes one upstream provider adapter.
type ProviderConfig struct {
	// Name is the adapter identifier, unique in the file.
	Name string `yaml:"name"`

	// Type is the adapter type: openai, anthropic, cohere, groq,
	// elevenlabs, sagemaker, openrouter, or generic.
	Type string `yaml:"type"`

	// BaseURL overrides the adapter's default endpoint.
	BaseURL string `yaml:"base_url"`

	// CredentialID references an entry in the credentials list.
	CredentialID int `yaml:"credential_id"`

	// Referer is the OpenRouter HTTP-Referer attribution header.
	Referer string `yaml:"referer"`

	// Title is the OpenRouter X-Title attribution header.
	Title string `yaml:"title"`
}

// CredentialConfig references an upstream credential. Secret values
// name environment variables, keeping the file free of key material.
type CredentialConfig struct {
	// ID is the credential identifier referenced by providers.
	ID int `yaml:"id"`

	// APIKeyEnv names the environment variable holding the primary
	// secret.
	APIKeyEnv string `yaml:"api_key_env"`

	// SecretKeyEnv names the environment variable holding the secondary
	// secret (AWS secret key).
	SecretKeyEnv string `yaml:"secret_key_env"`

	// Region is the provider region (AWS).
	Region string `yaml:"region"`
}

// DeploymentConfig maps one logical model alias onto a provider.
type DeploymentConfig struct {
	// Model is the logical model alias callers use.
	Model string `yaml:"model"`

	// Provider references a providers entry by name.
	Provider string `yaml:"provider"`

	// ProviderModel is the provider's own model id. Defaults to Model.
	ProviderModel string `yaml:"provider_model"`

	// Capabilities the deployment advertises to the router.
	Capabilities []string `yaml:"capabilities"`

	// Quality is the deployment's base quality score (0-100).
	Quality float64 `yaml:"quality"`
}

// PricingEntry is the YAML shape of one model's pricing. Rates are
// decimal strings to keep the table exact.
type PricingEntry struct {
	// Pricing selects the pricing model. Defaults to standard.
	Pricing string `yaml:"pricing"`

	// InputRate is the prompt-token rate per 1M tokens.
	InputRate string `yaml:"input_rate"`

	// OutputRate is the completion-token rate per 1M tokens.
	OutputRate string `yaml:"output_rate"`

	// EmbeddingRate is the embedding-token rate per 1M tokens.
	EmbeddingRate string `yaml:"embedding_rate"`

	// CachedReadRate is the cached-input rate per 1M tokens.
	CachedReadRate string `yaml:"cached_read_rate"`

	// CacheWriteRate is the cache-write rate per 1M tokens.
	CacheWriteRate string `yaml:"cache_write_rate"`

	// ImageRate is the per-image base cost.
	ImageRate string `yaml:"image_rate"`

	// ImageQualityMultipliers scales ImageRate by quality tier.
	ImageQualityMultipliers map[string]string `yaml:"image_quality_multipliers"`

	// ImageResolutionMultipliers scales ImageRate by resolution.
	ImageResolutionMultipliers map[string]string `yaml:"image_resolution_multipliers"`

	// VideoSecondRate is the per-second video cost.
	VideoSecondRate string `yaml:"video_second_rate"`

	// VideoResolutionMultipliers scales VideoSecondRate by resolution.
	VideoResolutionMultipliers map[string]string `yaml:"video_resolution_multipliers"`

	// VideoRates is the whole-video rate table keyed
	// "{resolution}_{duration-seconds}".
	VideoRates map[string]string `yaml:"video_rates"`

	// SearchUnitRate is the cost per 1000 search units.
	SearchUnitRate string `yaml:"search_unit_rate"`

	// StepRate is the cost per inference step.
	StepRate string `yaml:"step_rate"`

	// DefaultSteps is the assumed step count when usage reports none.
	DefaultSteps int `yaml:"default_steps"`

	// AudioMinuteRate is the cost per minute of audio.
	AudioMinuteRate string `yaml:"audio_minute_rate"`

	// CharacterRate is the cost per 1000 characters.
	CharacterRate string `yaml:"character_rate"`

	// Tiers is the context-size tier table, ascending.
	Tiers []PricingTier `yaml:"tiers"`

	// BatchSupported reports whether the model offers batch pricing.
	BatchSupported bool `yaml:"batch_supported"`

	// BatchMultiplier scales the total for batch usage.
	BatchMultiplier string `yaml:"batch_multiplier"`
}

// PricingTier is one context-size pricing tier.
type PricingTier struct {
	// MaxContextTokens is the largest prompt+completion size covered.
	MaxContextTokens int `yaml:"max_context_tokens"`

	// InputRate is the tier's prompt-token rate per 1M tokens.
	InputRate string `yaml:"input_rate"`

	// OutputRate is the tier's completion-token rate per 1M tokens.
	OutputRate string `yaml:"output_rate"`
}
