package cache

import (
	"sync"
	"time"
)

// ModelStats is an immutable per-model metrics snapshot.
type ModelStats struct {
	// Hits is the number of cache hits for the model.
	Hits int64

	// Misses is the number of cache misses for the model.
	Misses int64

	// TotalRetrievalTime is the cumulative hit retrieval latency.
	TotalRetrievalTime time.Duration
}

// HitRate returns hits / (hits + misses), or 0 when no lookups have
// happened.
func (s ModelStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// AverageRetrievalTime returns the mean hit retrieval latency.
func (s ModelStats) AverageRetrievalTime() time.Duration {
	if s.Hits == 0 {
		return 0
	}
	return s.TotalRetrievalTime / time.Duration(s.Hits)
}

// Stats is an immutable aggregate metrics snapshot.
type Stats struct {
	// Hits is the total hit count across models.
	Hits int64

	// Misses is the total miss count across models.
	Misses int64

	// TotalRetrievalTime is the cumulative hit retrieval latency.
	TotalRetrievalTime time.Duration

	// PerModel breaks the counters down by logical model.
	PerModel map[string]ModelStats
}

// HitRate returns the aggregate hit rate, 0 when no lookups happened.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// AverageRetrievalTime returns the aggregate mean hit latency.
func (s Stats) AverageRetrievalTime() time.Duration {
	if s.Hits == 0 {
		return 0
	}
	return s.TotalRetrievalTime / time.Duration(s.Hits)
}

// Metrics tracks hits, misses, and retrieval latency per logical
// model. All methods are safe for concurrent use; snapshots are copies
// and never alias internal state.
type Metrics struct {
	mu       sync.RWMutex
	perModel map[string]*ModelStats
}

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{perModel: make(map[string]*ModelStats)}
}

// RecordHit records a hit for the model with its retrieval latency.
func (m *Metrics) RecordHit(model string, retrieval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.counters(model)
	s.Hits++
	s.TotalRetrievalTime += retrieval
}

// RecordMiss records a miss for the model.
func (m *Metrics) RecordMiss(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters(model).Misses++
}

// counters returns the mutable per-model record, creating it on first
// use. Callers must hold the write lock.
func (m *Metrics) counters(model string) *ModelStats {
	s, ok := m.perModel[model]
	if !ok {
		s = &ModelStats{}
		m.perModel[model] = s
	}
	return s
}

// Snapshot returns an immutable copy of all counters.
func (m *Metrics) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := Stats{PerModel: make(map[string]ModelStats, len(m.perModel))}
	for model, s := range m.perModel {
		out.PerModel[model] = *s
		out.Hits += s.Hits
		out.Misses += s.Misses
		out.TotalRetrievalTime += s.TotalRetrievalTime
	}
	return out
}

// ModelSnapshot returns an immutable copy of one model's counters.
func (m *Metrics) ModelSnapshot(model string) ModelStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.perModel[model]; ok {
		return *s
	}
	return ModelStats{}
}

// Import seeds the tracker from persisted stats. The import only
// applies when every current counter is zero; otherwise it is a no-op,
// which makes repeated imports idempotent.
func (m *Metrics) Import(stats Stats) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.perModel {
		if s.Hits != 0 || s.Misses != 0 || s.TotalRetrievalTime != 0 {
			return false
		}
	}

	m.perModel = make(map[string]*ModelStats, len(stats.PerModel))
	for model, s := range stats.PerModel {
		copied := s
		m.perModel[model] = &copied
	}
	return true
}
