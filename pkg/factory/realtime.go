package factory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polygate/polygate/pkg/config"
	"github.com/polygate/polygate/pkg/pool"
	"github.com/polygate/polygate/pkg/realtime"
)

// RealtimeSession opens a realtime session against a configured
// provider. Transports come from a bounded per-target pool, so
// concurrent sessions per provider and model are capped at the pool's
// connection limit and warmed transports are handed out first.
//
// Realtime sessions are stateful: a transport that has carried a
// session is disposed on close, never reused. Only warmed, never-used
// transports are reused.
func (f *Factory) RealtimeSession(ctx context.Context, providerName string, cfg realtime.SessionConfig) (*realtime.Session, error) {
	var providerCfg *config.ProviderConfig
	for i := range f.cfg.Providers {
		if f.cfg.Providers[i].Name == providerName {
			providerCfg = &f.cfg.Providers[i]
			break
		}
	}
	if providerCfg == nil {
		return nil, fmt.Errorf("provider %q not configured", providerName)
	}

	translator, err := translatorFor(providerCfg.Type)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", providerName, err)
	}

	if cfg.APIKey == "" && providerCfg.CredentialID != 0 {
		cred, err := f.cfg.GetCredential(providerCfg.CredentialID)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", providerName, err)
		}
		cfg.APIKey = cred.APIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = providerCfg.BaseURL
	}

	p := f.sessionPool(providerName, translator.Target(cfg))
	return realtime.Connect(ctx, translator, &pooledDialer{pool: p}, cfg, realtime.SessionOptions{
		Logger: f.logger,
	})
}

// translatorFor maps a provider type to its realtime translator.
func translatorFor(providerType string) (realtime.Translator, error) {
	switch providerType {
	case "openai":
		return &realtime.OpenAITranslator{}, nil
	default:
		return nil, fmt.Errorf("type %q does not support realtime sessions", providerType)
	}
}

// sessionPool returns the transport pool for one dial target, creating
// and warming it on first use. Targets differ per model, so pools are
// keyed by provider and target URL.
func (f *Factory) sessionPool(providerName string, target realtime.DialTarget) *pool.Pool {
	key := providerName + " " + target.URL

	f.mu.Lock()
	if p, ok := f.sessionPools[key]; ok {
		f.mu.Unlock()
		return p
	}

	dialer := f.dialer
	p := pool.New(providerName, func(ctx context.Context) (pool.Conn, error) {
		transport, err := dialer.Dial(ctx, target)
		if err != nil {
			return nil, err
		}
		return &wsConn{transport: transport}, nil
	}, pool.Config{
		MaxConnections:  f.cfg.Pool.MaxConnections,
		MaxAge:          f.cfg.Pool.MaxAge,
		MaxIdle:         f.cfg.Pool.MaxIdle,
		ConnectTimeout:  f.cfg.Pool.ConnectTimeout,
		CleanupInterval: f.cfg.Pool.CleanupInterval,
		Logger:          f.logger,
	})
	f.sessionPools[key] = p
	f.mu.Unlock()

	if n := f.cfg.Pool.Warmup; n > 0 {
		warmupCtx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
		defer cancel()
		if err := p.Warmup(warmupCtx, n); err != nil {
			f.logger.Warn("realtime transport warmup failed",
				"provider", providerName,
				"error", err)
		}
	}
	return p
}

const warmupTimeout = 30 * time.Second

// wsConn is the pooled unit: one realtime transport plus the closed
// flag the pool reads through Healthy.
type wsConn struct {
	transport realtime.Transport
	closed    atomic.Bool
}

// Healthy implements pool.Conn.
func (c *wsConn) Healthy() bool { return !c.closed.Load() }

// Close implements pool.Conn. Idempotent so the pool's disposal after
// a session close does not double-close the transport.
func (c *wsConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// pooledDialer adapts a transport pool to the realtime dialer
// interface. The target was fixed when the pool was built, so the one
// passed at dial time is ignored.
type pooledDialer struct {
	pool *pool.Pool
}

// Dial implements realtime.Dialer.
func (d *pooledDialer) Dial(ctx context.Context, _ realtime.DialTarget) (realtime.Transport, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &sessionTransport{conn: conn.(*wsConn), pool: d.pool}, nil
}

// sessionTransport is the session-facing view of a pooled transport.
// Closing it retires the underlying connection and returns it to the
// pool for disposal, freeing the concurrency slot.
type sessionTransport struct {
	conn *wsConn
	pool *pool.Pool

	releaseOnce sync.Once
}

// ReadMessage implements realtime.Transport.
func (t *sessionTransport) ReadMessage() ([]byte, error) {
	return t.conn.transport.ReadMessage()
}

// WriteMessage implements realtime.Transport.
func (t *sessionTransport) WriteMessage(data []byte) error {
	return t.conn.transport.WriteMessage(data)
}

// CloseGraceful implements realtime.Transport.
func (t *sessionTransport) CloseGraceful(deadline time.Time) error {
	err := t.conn.transport.CloseGraceful(deadline)
	t.conn.closed.Store(true)
	t.release()
	return err
}

// Close implements realtime.Transport.
func (t *sessionTransport) Close() error {
	err := t.conn.Close()
	t.release()
	return err
}

func (t *sessionTransport) release() {
	t.releaseOnce.Do(func() {
		t.pool.Release(t.conn)
	})
}
