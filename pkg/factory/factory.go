// Package factory assembles the configured gateway: it constructs one
// provider adapter per configured provider, layers retry, timeout,
// caching, and instrumentation around it, and routes requests to
// deployments through the configured strategy.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/polygate/polygate/pkg/cache"
	"github.com/polygate/polygate/pkg/config"
	"github.com/polygate/polygate/pkg/costs"
	"github.com/polygate/polygate/pkg/pool"
	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/providers/anthropic"
	"github.com/polygate/polygate/pkg/providers/cohere"
	"github.com/polygate/polygate/pkg/providers/elevenlabs"
	"github.com/polygate/polygate/pkg/providers/generic"
	"github.com/polygate/polygate/pkg/providers/groq"
	"github.com/polygate/polygate/pkg/providers/openai"
	"github.com/polygate/polygate/pkg/providers/openrouter"
	"github.com/polygate/polygate/pkg/providers/sagemaker"
	"github.com/polygate/polygate/pkg/realtime"
	"github.com/polygate/polygate/pkg/resilience"
	"github.com/polygate/polygate/pkg/routing"
	"github.com/polygate/polygate/pkg/routing/strategies"
	"github.com/polygate/polygate/pkg/telemetry/metrics"
)

// Factory builds and caches fully composed provider clients and owns
// the shared infrastructure they hang off: the response cache, the
// pricing store, the cost engine, and the router.
type Factory struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector

	retry   resilience.RetryPolicy
	timeout resilience.TimeoutPolicy
	tracker resilience.ErrorTracker

	responses *cache.Cache
	stats     *cache.StatsStore

	pricing  *config.PricingStore
	engine   *costs.Engine
	router   *routing.Router
	strategy routing.Strategy

	// byModel maps a logical model alias to its deployment names.
	byModel map[string][]string
	// deployProvider maps a deployment name to its provider name.
	deployProvider map[string]string
	// deployModel maps a deployment name back to its logical alias.
	deployModel map[string]string

	// dialer opens realtime transports; swapped in tests.
	dialer realtime.Dialer

	mu           sync.Mutex
	clients      map[string]providers.Client
	sessionPools map[string]*pool.Pool
	lastStats    cache.Stats
}

// New builds a factory from validated configuration. The collector is
// optional; a nil collector disables instrumentation.
func New(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pricing, err := config.NewPricingStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("building pricing store: %w", err)
	}

	strategy, err := buildStrategy(cfg.Routing)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		retry: resilience.RetryPolicy{
			MaxRetries:   cfg.Resilience.MaxRetries,
			InitialDelay: cfg.Resilience.InitialDelay,
			MaxDelay:     cfg.Resilience.MaxDelay,
			LogEvents:    true,
		},
		timeout: resilience.TimeoutPolicy{
			Timeout:   cfg.Resilience.RequestTimeout,
			LogEvents: true,
		},
		tracker:        resilience.NopTracker{},
		pricing:        pricing,
		engine:         costs.NewEngine(),
		router:         routing.NewRouter(strategy, logger),
		strategy:       strategy,
		byModel:        make(map[string][]string),
		deployProvider: make(map[string]string),
		deployModel:    make(map[string]string),
		dialer:         &realtime.WebSocketDialer{},
		clients:        make(map[string]providers.Client),
		sessionPools:   make(map[string]*pool.Pool),
	}
	if collector != nil {
		f.tracker = &metricsTracker{collector: collector}
	}

	if cfg.Cache.Enabled {
		f.responses = cache.New(cache.Options{
			TTL:                 cache.FixedTTL{TTL: cfg.Cache.DefaultTTL},
			Eviction:            cache.LRUPolicy{},
			Size:                cache.ItemCountPolicy{MaxItems: cfg.Cache.MaxItems},
			MaintenanceSchedule: cfg.Cache.MaintenanceSchedule,
			Logger:              logger,
		})
		if cfg.Cache.StatsPath != "" {
			stats, err := cache.OpenStatsStore(cfg.Cache.StatsPath)
			if err != nil {
				return nil, fmt.Errorf("opening cache stats store: %w", err)
			}
			f.stats = stats
			if saved, err := stats.Load(context.Background()); err != nil {
				logger.Warn("cache stats unavailable, starting fresh", "error", err)
			} else if !f.responses.Metrics().Import(saved) {
				logger.Warn("cache stats import skipped, counters already populated")
			} else {
				f.lastStats = saved
			}
		}
	}

	f.registerDeployments()
	return f, nil
}

func buildStrategy(cfg config.RoutingConfig) (routing.Strategy, error) {
	switch cfg.Strategy {
	case "latency":
		return strategies.NewLatencyStrategy(), nil
	case "cost":
		return strategies.NewCostStrategy(cfg.MinQuality), nil
	case "quality":
		return strategies.NewQualityStrategy(nil), nil
	case "language":
		return strategies.NewLanguageStrategy(nil), nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", cfg.Strategy)
	}
}

// defaultCapabilities covers deployments that configure none.
var defaultCapabilities = providers.CapabilitySet{
	providers.CapChat,
	providers.CapTextGeneration,
}

func (f *Factory) registerDeployments() {
	providerTypes := make(map[string]string, len(f.cfg.Providers))
	for _, p := range f.cfg.Providers {
		providerTypes[p.Name] = p.Type
	}

	for _, d := range f.cfg.Deployments {
		caps := defaultCapabilities
		if len(d.Capabilities) > 0 {
			caps = make(providers.CapabilitySet, 0, len(d.Capabilities))
			for _, c := range d.Capabilities {
				caps = append(caps, providers.Capability(c))
			}
		}

		name := d.Model + "@" + d.Provider
		f.router.Register(&routing.Deployment{
			Name:         name,
			ProviderType: providerTypes[d.Provider],
			ModelID:      d.ProviderModel,
			Capabilities: caps,
			BaseQuality:  d.Quality,
			Available:    true,
		})
		f.byModel[d.Model] = append(f.byModel[d.Model], name)
		f.deployProvider[name] = d.Provider
		f.deployModel[name] = d.Model
	}
}

// Router returns the deployment router.
func (f *Factory) Router() *routing.Router { return f.router }

// Pricing returns the live pricing store. Config reloads feed it
// through PricingStore.Update.
func (f *Factory) Pricing() *config.PricingStore { return f.pricing }

// Client returns the fully composed client for a configured provider,
// building it on first use.
func (f *Factory) Client(name string) (providers.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[name]; ok {
		return client, nil
	}

	for i, p := range f.cfg.Providers {
		if p.Name != name {
			continue
		}
		client, err := f.compose(p, i+1)
		if err != nil {
			return nil, err
		}
		f.clients[name] = client
		return client, nil
	}
	return nil, fmt.Errorf("provider %q not configured", name)
}

// VerificationClient returns a composed client without the caching
// layer, for credential probes and connectivity checks where a cached
// response would mask the upstream. The client is not retained.
func (f *Factory) VerificationClient(name string) (providers.Client, error) {
	for i, p := range f.cfg.Providers {
		if p.Name == name {
			return f.composeBare(p, i+1)
		}
	}
	return nil, fmt.Errorf("provider %q not configured", name)
}

// compose layers the client stack around a bare adapter. Outermost
// first: context binding, instrumentation, caching, retry and timeout,
// adapter.
func (f *Factory) compose(p config.ProviderConfig, providerID int) (providers.Client, error) {
	adapter, err := f.buildAdapter(p)
	if err != nil {
		return nil, err
	}

	var client providers.Client = resilience.Wrap(adapter, f.timeout, f.retry, f.tracker)

	if f.responses != nil {
		client = cache.Wrap(client, f.responses, cache.WrapperConfig{
			DefaultTTL: f.cfg.Cache.DefaultTTL,
			Overrides:  cacheOverrides(f.cfg.Cache.Overrides),
			Logger:     f.logger,
		})
	}
	if f.collector != nil {
		client = &instrumented{inner: client, collector: f.collector}
	}
	return &bound{inner: client, keyID: p.CredentialID, providerID: providerID}, nil
}

// composeBare is compose without the cache layer.
func (f *Factory) composeBare(p config.ProviderConfig, providerID int) (providers.Client, error) {
	adapter, err := f.buildAdapter(p)
	if err != nil {
		return nil, err
	}

	var client providers.Client = resilience.Wrap(adapter, f.timeout, f.retry, f.tracker)
	if f.collector != nil {
		client = &instrumented{inner: client, collector: f.collector}
	}
	return &bound{inner: client, keyID: p.CredentialID, providerID: providerID}, nil
}

func cacheOverrides(overrides map[string]config.CacheOverride) map[string]cache.ModelOverride {
	if len(overrides) == 0 {
		return nil
	}
	out := make(map[string]cache.ModelOverride, len(overrides))
	for model, o := range overrides {
		out[model] = cache.ModelOverride{Behavior: o.Behavior, TTLMinutes: o.TTLMinutes}
	}
	return out
}

func (f *Factory) buildAdapter(p config.ProviderConfig) (providers.Client, error) {
	clientConfig := providers.ClientConfig{
		Name:    p.Name,
		Type:    p.Type,
		BaseURL: p.BaseURL,
	}
	if p.CredentialID != 0 {
		cred, err := f.cfg.GetCredential(p.CredentialID)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		clientConfig.Credential = *cred
	}

	switch p.Type {
	case "openai":
		return openai.NewClient(clientConfig)
	case "anthropic":
		return anthropic.NewClient(clientConfig)
	case "cohere":
		return cohere.NewClient(clientConfig)
	case "groq":
		return groq.NewClient(clientConfig)
	case "elevenlabs":
		return elevenlabs.NewClient(clientConfig)
	case "sagemaker":
		return sagemaker.NewClient(clientConfig)
	case "openrouter":
		return openrouter.NewClient(clientConfig, openrouter.Options{
			Referer: p.Referer,
			Title:   p.Title,
		})
	case "generic":
		return generic.NewClient(clientConfig)
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
	}
}

// PublishCacheMetrics folds the response cache's counters into the
// Prometheus collector. Called periodically; deltas since the previous
// publish are applied so counters stay monotonic.
func (f *Factory) PublishCacheMetrics() {
	if f.responses == nil || f.collector == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.responses.Metrics().Snapshot()
	for model, stats := range snapshot.PerModel {
		previous := f.lastStats.PerModel[model]
		if delta := stats.Hits - previous.Hits; delta > 0 {
			for i := int64(0); i < delta; i++ {
				f.collector.RecordCacheHit(model)
			}
		}
		if delta := stats.Misses - previous.Misses; delta > 0 {
			for i := int64(0); i < delta; i++ {
				f.collector.RecordCacheMiss(model)
			}
		}
	}
	f.lastStats = snapshot
	f.collector.SetCacheSize(f.responses.Len(), 0)
}

// Close shuts down every built client, persists cache statistics, and
// releases the cache and stats store.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for name, client := range f.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing client %q: %w", name, err)
		}
	}
	f.clients = make(map[string]providers.Client)

	for _, p := range f.sessionPools {
		p.Close()
	}
	f.sessionPools = make(map[string]*pool.Pool)

	if f.responses != nil {
		if f.stats != nil {
			if err := f.stats.Save(context.Background(), f.responses.Metrics().Snapshot()); err != nil {
				f.logger.Warn("persisting cache stats failed", "error", err)
			}
			if err := f.stats.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		f.responses.Close()
	}
	return firstErr
}
