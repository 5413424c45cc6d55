// Package pool provides a bounded per-provider pool of reusable
// transport connections with age and idle-time lifecycle management.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is one pooled transport connection.
type Conn interface {
	// Healthy reports whether the connection can be reused.
	Healthy() bool

	// Close releases the connection's resources.
	Close() error
}

// Factory creates a new connection for the pool's provider.
type Factory func(ctx context.Context) (Conn, error)

// Config sizes and paces one provider's pool.
type Config struct {
	// MaxConnections bounds concurrently checked-out connections.
	MaxConnections int

	// MaxAge is the lifetime after which a connection is not reused
	// (0 = unlimited).
	MaxAge time.Duration

	// MaxIdle is how long an idle connection survives between uses
	// (0 = unlimited).
	MaxIdle time.Duration

	// ConnectTimeout bounds connection creation.
	ConnectTimeout time.Duration

	// CleanupInterval is how often idle connections are swept.
	// Defaults to one minute.
	CleanupInterval time.Duration

	// Logger receives pool events. Defaults to slog.Default.
	Logger *slog.Logger
}

// pooledConn wraps a connection with its lifecycle timestamps.
type pooledConn struct {
	conn       Conn
	createdAt  time.Time
	lastUsedAt time.Time
}

// Pool is a bounded set of reusable connections for one provider.
// Acquire blocks while the bound is reached; Release returns a healthy
// connection for reuse or disposes it.
type Pool struct {
	provider string
	factory  Factory
	cfg      Config
	logger   *slog.Logger

	// sem holds one token per checked-out connection.
	sem chan struct{}

	mu   sync.Mutex
	idle []*pooledConn

	// birth maps live connections to their creation times so reuse
	// can enforce MaxAge across checkouts.
	birth map[Conn]time.Time

	created   atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a pool for the provider.
func New(provider string, factory Factory, cfg Config) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Pool{
		provider: provider,
		factory:  factory,
		cfg:      cfg,
		logger:   cfg.Logger,
		sem:      make(chan struct{}, cfg.MaxConnections),
		birth:    make(map[Conn]time.Time),
		done:     make(chan struct{}),
	}
	go p.cleanupLoop()
	return p
}

// Acquire returns a healthy connection, reusing an idle one when
// possible. It blocks while the pool's bound is reached, honoring ctx.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, fmt.Errorf("pool for provider %s is closed", p.provider)
	}

	if conn := p.takeIdle(); conn != nil {
		return conn, nil
	}

	conn, err := p.dial(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	return conn, nil
}

// Release returns a connection to the pool. Unhealthy or over-age
// connections are disposed instead of reused.
func (p *Pool) Release(conn Conn) {
	defer func() { <-p.sem }()

	if conn == nil {
		return
	}

	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	if !conn.Healthy() || len(p.idle) >= p.cfg.MaxConnections {
		p.disposeLocked(conn)
		return
	}
	p.idle = append(p.idle, &pooledConn{
		conn:       conn,
		createdAt:  p.createdAtOf(conn, now),
		lastUsedAt: now,
	})
}

// createdAtOf finds the original creation time for a connection being
// returned, falling back to now for connections the pool never saw.
// Callers must hold the lock.
func (p *Pool) createdAtOf(conn Conn, now time.Time) time.Time {
	if tracked, ok := p.birth[conn]; ok {
		return tracked
	}
	return now
}

// trackBirth records a new connection's creation time.
func (p *Pool) trackBirth(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.birth[conn] = time.Now()
}

// disposeLocked closes a connection and forgets its creation time.
// Callers must hold the lock.
func (p *Pool) disposeLocked(conn Conn) {
	conn.Close()
	delete(p.birth, conn)
}

// Warmup pre-creates n idle connections, stopping at the pool bound or
// the first creation failure.
func (p *Pool) Warmup(ctx context.Context, n int) error {
	if n > p.cfg.MaxConnections {
		n = p.cfg.MaxConnections
	}
	for i := 0; i < n; i++ {
		conn, err := p.dial(ctx)
		if err != nil {
			return fmt.Errorf("warmup connection %d for provider %s: %w", i+1, p.provider, err)
		}
		now := time.Now()
		p.mu.Lock()
		p.idle = append(p.idle, &pooledConn{conn: conn, createdAt: now, lastUsedAt: now})
		p.mu.Unlock()
	}
	return nil
}

// Created returns how many connections the pool has ever created.
func (p *Pool) Created() int64 { return p.created.Load() }

// IdleCount returns the number of idle pooled connections.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close stops the cleanup loop and disposes all idle connections.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, pc := range p.idle {
			p.disposeLocked(pc.conn)
		}
		p.idle = nil
	})
}

// dial creates a new connection under the configured timeout.
func (p *Pool) dial(ctx context.Context) (Conn, error) {
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}
	conn, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	p.created.Add(1)
	p.trackBirth(conn)
	return conn, nil
}

// takeIdle pops the freshest reusable idle connection, disposing any
// that are over-age, idle too long, or unhealthy.
func (p *Pool) takeIdle() Conn {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.idle) > 0 {
		pc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if !p.reusable(pc, now) {
			p.disposeLocked(pc.conn)
			continue
		}
		pc.lastUsedAt = now
		return pc.conn
	}
	return nil
}

// reusable reports whether an idle connection may be handed out.
func (p *Pool) reusable(pc *pooledConn, now time.Time) bool {
	if p.cfg.MaxAge > 0 && now.Sub(pc.createdAt) > p.cfg.MaxAge {
		return false
	}
	if p.cfg.MaxIdle > 0 && now.Sub(pc.lastUsedAt) > p.cfg.MaxIdle {
		return false
	}
	return pc.conn.Healthy()
}

// cleanupLoop periodically evicts idle connections past their idle or
// age bounds.
func (p *Pool) cleanupLoop() {
	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.done:
			return
		}
	}
}

// sweep disposes idle connections that are no longer reusable.
func (p *Pool) sweep() {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.idle[:0]
	evicted := 0
	for _, pc := range p.idle {
		if p.reusable(pc, now) {
			kept = append(kept, pc)
		} else {
			p.disposeLocked(pc.conn)
			evicted++
		}
	}
	p.idle = kept
	if evicted > 0 {
		p.logger.Debug("pool evicted idle connections",
			"provider", p.provider,
			"evicted", evicted,
			"idle", len(p.idle))
	}
}
