package factory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polygate/polygate/pkg/config"
	"github.com/polygate/polygate/pkg/realtime"
)

// fakeTransport is a realtime transport whose reads block until the
// transport closes.
type fakeTransport struct {
	mu     sync.Mutex
	writes [][]byte

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{closed: make(chan struct{})}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	<-t.closed
	return nil, errors.New("transport closed")
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, data)
	return nil
}

func (t *fakeTransport) CloseGraceful(_ time.Time) error {
	return t.Close()
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// fakeDialer counts dials and hands out fresh fake transports.
type fakeDialer struct {
	dials atomic.Int64
}

func (d *fakeDialer) Dial(_ context.Context, _ realtime.DialTarget) (realtime.Transport, error) {
	d.dials.Add(1)
	return newFakeTransport(), nil
}

func realtimeConfig() *config.Config {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{
			{Name: "voice", Type: "openai"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func sessionConfig() realtime.SessionConfig {
	return realtime.SessionConfig{
		Model:  "gpt-4o-realtime-preview",
		APIKey: "sk-test",
	}
}

func TestRealtimeSessionDialsThroughPool(t *testing.T) {
	f, err := New(realtimeConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	dialer := &fakeDialer{}
	f.dialer = dialer

	sess, err := f.RealtimeSession(context.Background(), "voice", sessionConfig())
	if err != nil {
		t.Fatalf("RealtimeSession() error = %v", err)
	}
	if got := sess.State(); got != realtime.StateConnected {
		t.Fatalf("State() = %v, want %v", got, realtime.StateConnected)
	}
	if got := dialer.dials.Load(); got != 1 {
		t.Errorf("dials = %d, want 1", got)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A session consumes its transport; the next session dials anew.
	next, err := f.RealtimeSession(context.Background(), "voice", sessionConfig())
	if err != nil {
		t.Fatalf("second RealtimeSession() error = %v", err)
	}
	defer next.Close()
	if got := dialer.dials.Load(); got != 2 {
		t.Errorf("dials after reopen = %d, want 2", got)
	}
}

func TestRealtimeSessionBoundsConcurrency(t *testing.T) {
	cfg := realtimeConfig()
	cfg.Pool.MaxConnections = 1

	f, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()
	f.dialer = &fakeDialer{}

	first, err := f.RealtimeSession(context.Background(), "voice", sessionConfig())
	if err != nil {
		t.Fatalf("RealtimeSession() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.RealtimeSession(ctx, "voice", sessionConfig()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RealtimeSession() at bound error = %v, want deadline exceeded", err)
	}

	// Closing the first session frees its slot.
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	second, err := f.RealtimeSession(context.Background(), "voice", sessionConfig())
	if err != nil {
		t.Fatalf("RealtimeSession() after close error = %v", err)
	}
	second.Close()
}

func TestRealtimeSessionUsesWarmedTransports(t *testing.T) {
	cfg := realtimeConfig()
	cfg.Pool.Warmup = 2

	f, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	dialer := &fakeDialer{}
	f.dialer = dialer

	sess, err := f.RealtimeSession(context.Background(), "voice", sessionConfig())
	if err != nil {
		t.Fatalf("RealtimeSession() error = %v", err)
	}
	defer sess.Close()

	// The warmed transports cover the session; no extra dial happens.
	if got := dialer.dials.Load(); got != 2 {
		t.Errorf("dials = %d, want 2 warmup dials", got)
	}
}

func TestRealtimeSessionProviderChecks(t *testing.T) {
	cfg := realtimeConfig()
	cfg.Providers = append(cfg.Providers, config.ProviderConfig{Name: "local", Type: "generic", BaseURL: "http://localhost"})

	f, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()
	f.dialer = &fakeDialer{}

	tests := []struct {
		name     string
		provider string
		cfg      realtime.SessionConfig
		wantErr  string
	}{
		{
			name:     "unknown provider",
			provider: "missing",
			cfg:      sessionConfig(),
			wantErr:  "not configured",
		},
		{
			name:     "unsupported type",
			provider: "local",
			cfg:      sessionConfig(),
			wantErr:  "does not support realtime",
		},
		{
			name:     "invalid model",
			provider: "voice",
			cfg:      realtime.SessionConfig{Model: "gpt-4o", APIKey: "sk-test"},
			wantErr:  "not a realtime model",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.RealtimeSession(context.Background(), tt.provider, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("RealtimeSession() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
