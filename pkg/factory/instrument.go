package factory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/polygate/polygate/internal/callctx"
	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/resilience"
	"github.com/polygate/polygate/pkg/telemetry/metrics"
)

// metricsTracker feeds classified provider failures from the retry
// layer into the Prometheus collector.
type metricsTracker struct {
	collector *metrics.Collector
}

func (t *metricsTracker) Track(ctx context.Context, rec resilience.ErrorRecord) {
	t.collector.RecordError(rec.Provider, string(rec.Kind))
}

// instrumented records request counts and latency for every call that
// reaches the client stack, cache hits included.
type instrumented struct {
	inner     providers.Client
	collector *metrics.Collector
}

func (c *instrumented) observe(kind providers.RequestKind, model string, start time.Time) {
	c.collector.RecordRequest(c.inner.GetName(), model, string(kind), time.Since(start))
}

func (c *instrumented) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	defer c.observe(providers.KindChat, req.Model, time.Now())
	return c.inner.Chat(ctx, req)
}

func (c *instrumented) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	defer c.observe(providers.KindChatStream, req.Model, time.Now())
	return c.inner.StreamChat(ctx, req)
}

func (c *instrumented) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	defer c.observe(providers.KindEmbedding, req.Model, time.Now())
	return c.inner.Embedding(ctx, req)
}

func (c *instrumented) Image(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	defer c.observe(providers.KindImage, req.Model, time.Now())
	return c.inner.Image(ctx, req)
}

func (c *instrumented) Video(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	defer c.observe(providers.KindVideo, req.Model, time.Now())
	return c.inner.Video(ctx, req)
}

func (c *instrumented) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	defer c.observe(providers.KindTTS, req.Model, time.Now())
	return c.inner.TTS(ctx, req)
}

func (c *instrumented) STT(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	defer c.observe(providers.KindSTT, req.Model, time.Now())
	return c.inner.STT(ctx, req)
}

func (c *instrumented) ListModels(ctx context.Context) ([]string, error) {
	return c.inner.ListModels(ctx)
}

func (c *instrumented) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	return c.inner.VerifyAuth(ctx)
}

func (c *instrumented) Capabilities() providers.CapabilitySet { return c.inner.Capabilities() }

func (c *instrumented) GetName() string { return c.inner.GetName() }

func (c *instrumented) GetType() string { return c.inner.GetType() }

func (c *instrumented) Close() error { return c.inner.Close() }

// bound stamps each call's context with the credential, provider, and a
// fresh request id so the retry layer and error sinks can correlate
// records to the originating call.
type bound struct {
	inner      providers.Client
	keyID      int
	providerID int
}

func (b *bound) bind(ctx context.Context) context.Context {
	return callctx.With(ctx, callctx.Info{
		KeyID:      b.keyID,
		ProviderID: b.providerID,
		RequestID:  uuid.NewString(),
	})
}

func (b *bound) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return b.inner.Chat(b.bind(ctx), req)
}

func (b *bound) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	return b.inner.StreamChat(b.bind(ctx), req)
}

func (b *bound) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return b.inner.Embedding(b.bind(ctx), req)
}

func (b *bound) Image(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return b.inner.Image(b.bind(ctx), req)
}

func (b *bound) Video(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return b.inner.Video(b.bind(ctx), req)
}

func (b *bound) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return b.inner.TTS(b.bind(ctx), req)
}

func (b *bound) STT(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return b.inner.STT(b.bind(ctx), req)
}

func (b *bound) ListModels(ctx context.Context) ([]string, error) {
	return b.inner.ListModels(b.bind(ctx))
}

func (b *bound) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	return b.inner.VerifyAuth(b.bind(ctx))
}

func (b *bound) Capabilities() providers.CapabilitySet { return b.inner.Capabilities() }

func (b *bound) GetName() string { return b.inner.GetName() }

func (b *bound) GetType() string { return b.inner.GetType() }

func (b *bound) Close() error { return b.inner.Close() }
