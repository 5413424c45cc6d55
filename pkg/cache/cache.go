package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/polygate/polygate/pkg/providers"
)

// Options configures a response cache. Zero-value fields get defaults:
// fixed one-hour TTL, LRU eviction, 10000-item capacity.
type Options struct {
	// TTL is the expiry policy.
	TTL TTLPolicy

	// Eviction is the victim-selection policy.
	Eviction EvictionPolicy

	// Size is the capacity policy.
	Size SizePolicy

	// MaintenanceSchedule is a cron expression for background expiry
	// sweeps (empty disables background maintenance).
	MaintenanceSchedule string

	// Logger receives cache events. Defaults to slog.Default.
	Logger *slog.Logger
}

// SetOptions carries per-insert overrides.
type SetOptions struct {
	// TTL overrides the policy's base lifetime for this entry
	// (0 = use policy).
	TTL time.Duration

	// Priority is the entry's eviction priority.
	Priority int
}

// Cache is an in-memory response cache keyed by request fingerprint.
// Expiry, eviction, and capacity are pluggable policies; per-model hit
// and latency metrics are tracked on every lookup. Safe for concurrent
// use.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	usedBytes int64

	ttl      TTLPolicy
	eviction EvictionPolicy
	size     SizePolicy
	metrics  *Metrics
	logger   *slog.Logger
	sched    *cron.Cron
}

// New creates a response cache.
func New(opts Options) *Cache {
	if opts.TTL == nil {
		opts.TTL = FixedTTL{TTL: time.Hour}
	}
	if opts.Eviction == nil {
		opts.Eviction = LRUPolicy{}
	}
	if opts.Size == nil {
		opts.Size = ItemCountPolicy{MaxItems: 10000}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Cache{
		entries:  make(map[string]*Entry),
		ttl:      opts.TTL,
		eviction: opts.Eviction,
		size:     opts.Size,
		metrics:  NewMetrics(),
		logger:   opts.Logger,
	}

	if opts.MaintenanceSchedule != "" {
		c.sched = cron.New()
		if _, err := c.sched.AddFunc(opts.MaintenanceSchedule, func() { c.Sweep() }); err != nil {
			c.logger.Error("invalid cache maintenance schedule",
				"schedule", opts.MaintenanceSchedule,
				"error", err)
			c.sched = nil
		} else {
			c.sched.Start()
		}
	}
	return c
}

// Get looks up a cached response by fingerprint. A hit records the
// retrieval latency against the model and returns a snapshot; expired
// entries are removed and count as misses.
func (c *Cache) Get(key, model string) (*providers.Response, bool) {
	start := time.Now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.metrics.RecordMiss(model)
		return nil, false
	}

	now := time.Now()
	if expiry := c.ttl.ExpiresAt(entry); !expiry.IsZero() && now.After(expiry) {
		c.removeLocked(entry)
		c.mu.Unlock()
		c.metrics.RecordMiss(model)
		return nil, false
	}

	entry.LastAccessedAt = now
	entry.AccessCount++
	resp := entry.snapshot()
	c.mu.Unlock()

	c.metrics.RecordHit(model, time.Since(start))
	return resp, true
}

// Set inserts a response under the fingerprint, evicting as directed by
// the size and eviction policies. Replacing an existing key never
// triggers eviction.
func (c *Cache) Set(key, model string, resp *providers.Response, opts SetOptions) {
	now := time.Now()
	entry := &Entry{
		Key:            key,
		Model:          model,
		Response:       resp,
		Priority:       opts.Priority,
		TTL:            opts.TTL,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	entry.Size = c.size.EntrySize(entry)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.removeLocked(existing)
	} else if needed := c.size.SpaceNeeded(c.snapshotLocked(), entry); needed > 0 {
		c.evictLocked(entry, needed, now)
	}

	c.entries[key] = entry
	c.usedBytes += entry.Size
}

// Delete removes a fingerprint from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		c.removeLocked(entry)
	}
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, entry := range c.entries {
		if expiry := c.ttl.ExpiresAt(entry); !expiry.IsZero() && now.After(expiry) {
			c.removeLocked(entry)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("cache sweep removed expired entries", "removed", removed, "remaining", len(c.entries))
	}
	return removed
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Metrics returns the cache's metrics tracker.
func (c *Cache) Metrics() *Metrics { return c.metrics }

// Close stops background maintenance.
func (c *Cache) Close() {
	if c.sched != nil {
		c.sched.Stop()
	}
}

// snapshotLocked builds the occupancy snapshot the size policy reads.
// Callers must hold the lock.
func (c *Cache) snapshotLocked() SizeSnapshot {
	snap := SizeSnapshot{
		UsedBytes:       c.usedBytes,
		ItemCount:       len(c.entries),
		ItemsByPriority: make(map[int]int),
	}
	for _, e := range c.entries {
		snap.ItemsByPriority[e.Priority]++
	}
	return snap
}

// evictLocked frees at least needed accounting units for the incoming
// entry. Callers must hold the lock.
func (c *Cache) evictLocked(incoming *Entry, needed int64, now time.Time) {
	candidates := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		candidates = append(candidates, e)
	}
	if filter, ok := c.size.(bandFilter); ok {
		candidates = filter.Candidates(candidates, incoming)
	}

	victims := SelectVictims(c.eviction, candidates, needed, now)
	for _, v := range victims {
		c.removeLocked(v)
	}
	if len(victims) > 0 {
		c.logger.Debug("cache evicted entries", "evicted", len(victims), "space_needed", needed)
	}
}

// removeLocked deletes an entry and releases its accounted size.
// Callers must hold the lock.
func (c *Cache) removeLocked(entry *Entry) {
	delete(c.entries, entry.Key)
	c.usedBytes -= entry.Size
	if c.usedBytes < 0 {
		c.usedBytes = 0
	}
}
