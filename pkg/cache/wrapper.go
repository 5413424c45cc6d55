package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// Cache behavior overrides per logical model.
const (
	// BehaviorDefault caches the model under the cache-wide settings.
	BehaviorDefault = "default"

	// BehaviorAlways caches the model even when it has no override TTL.
	BehaviorAlways = "always"

	// BehaviorNever bypasses the cache for the model.
	BehaviorNever = "never"
)

// ModelOverride tunes caching for one logical model.
type ModelOverride struct {
	// Behavior is one of default, always, never.
	Behavior string

	// TTLMinutes overrides the entry lifetime (0 = cache default).
	TTLMinutes int
}

// WrapperConfig configures the caching client wrapper.
type WrapperConfig struct {
	// DefaultTTL is the entry lifetime when no override applies
	// (0 = the cache policy's own default).
	DefaultTTL time.Duration

	// Overrides maps logical models to caching overrides.
	Overrides map[string]ModelOverride

	// Logger receives cache wrapper events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Wrapper decorates a provider client with response caching for chat
// and embedding calls. Streaming and media calls pass through
// untouched. The wrapper does not coalesce concurrent misses; two
// simultaneous lookups of the same fingerprint may both reach the
// upstream, with the later insert overwriting the earlier.
type Wrapper struct {
	inner  providers.Client
	cache  *Cache
	cfg    WrapperConfig
	logger *slog.Logger
}

// Wrap builds the caching layer around a provider client.
func Wrap(inner providers.Client, cache *Cache, cfg WrapperConfig) *Wrapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Wrapper{inner: inner, cache: cache, cfg: cfg, logger: logger}
}

// cacheable reports whether the model participates in caching and the
// TTL to use.
func (w *Wrapper) cacheable(model string) (time.Duration, bool) {
	ttl := w.cfg.DefaultTTL
	if override, ok := w.cfg.Overrides[model]; ok {
		if override.Behavior == BehaviorNever {
			return 0, false
		}
		if override.TTLMinutes > 0 {
			ttl = time.Duration(override.TTLMinutes) * time.Minute
		}
	}
	return ttl, true
}

// through runs a cacheable unary call: lookup, fall through to the
// upstream on miss, insert on success.
func (w *Wrapper) through(ctx context.Context, req *providers.Request, call func(context.Context, *providers.Request) (*providers.Response, error)) (*providers.Response, error) {
	ttl, ok := w.cacheable(req.Model)
	if !ok {
		return call(ctx, req)
	}

	key, err := Fingerprint(req)
	if err != nil {
		w.logger.Warn("request fingerprint failed, bypassing cache",
			"model", req.Model,
			"error", err)
		return call(ctx, req)
	}

	if resp, hit := w.cache.Get(key, req.Model); hit {
		return resp, nil
	}

	resp, err := call(ctx, req)
	if err != nil {
		return nil, err
	}
	w.cache.Set(key, req.Model, resp, SetOptions{TTL: ttl})
	return resp, nil
}

// Chat implements providers.Client with response caching.
func (w *Wrapper) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.through(ctx, req, w.inner.Chat)
}

// StreamChat implements providers.Client. Streams are never cached.
func (w *Wrapper) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	return w.inner.StreamChat(ctx, req)
}

// Embedding implements providers.Client with response caching.
func (w *Wrapper) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.through(ctx, req, w.inner.Embedding)
}

// Image implements providers.Client.
func (w *Wrapper) Image(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.inner.Image(ctx, req)
}

// Video implements providers.Client.
func (w *Wrapper) Video(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.inner.Video(ctx, req)
}

// TTS implements providers.Client.
func (w *Wrapper) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.inner.TTS(ctx, req)
}

// STT implements providers.Client.
func (w *Wrapper) STT(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.inner.STT(ctx, req)
}

// ListModels implements providers.Client.
func (w *Wrapper) ListModels(ctx context.Context) ([]string, error) {
	return w.inner.ListModels(ctx)
}

// VerifyAuth implements providers.Client.
func (w *Wrapper) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	return w.inner.VerifyAuth(ctx)
}

// Capabilities implements providers.Client.
func (w *Wrapper) Capabilities() providers.CapabilitySet {
	return w.inner.Capabilities()
}

// GetName implements providers.Client.
func (w *Wrapper) GetName() string { return w.inner.GetName() }

// GetType implements providers.Client.
func (w *Wrapper) GetType() string { return w.inner.GetType() }

// Close implements providers.Client.
func (w *Wrapper) Close() error { return w.inner.Close() }
