package cache

import (
	"encoding/json"
	"fmt"
	"sync"
)

// SizeSnapshot is the cache occupancy a size policy decides against.
type SizeSnapshot struct {
	// UsedBytes is the sum of entry sizes.
	UsedBytes int64

	// ItemCount is the number of entries.
	ItemCount int

	// ItemsByPriority counts entries per priority value.
	ItemsByPriority map[int]int
}

// SizePolicy assigns accounting sizes to entries and decides how much
// space must be evicted before an entry can be admitted.
type SizePolicy interface {
	// EntrySize returns the accounting size of the entry.
	EntrySize(e *Entry) int64

	// SpaceNeeded returns how much accounting size must be freed to
	// admit the incoming entry. Zero or negative means no eviction.
	SpaceNeeded(snap SizeSnapshot, incoming *Entry) int64
}

// bandFilter is implemented by size policies that restrict eviction
// candidates for an incoming entry, such as the tiered policy which
// only evicts within the incoming entry's priority band.
type bandFilter interface {
	Candidates(entries []*Entry, incoming *Entry) []*Entry
}

// ItemCountPolicy bounds the cache by number of entries.
type ItemCountPolicy struct {
	// MaxItems is the entry capacity (0 = unlimited).
	MaxItems int
}

// EntrySize implements SizePolicy. Every entry counts as one unit.
func (ItemCountPolicy) EntrySize(*Entry) int64 { return 1 }

// SpaceNeeded implements SizePolicy.
func (p ItemCountPolicy) SpaceNeeded(snap SizeSnapshot, _ *Entry) int64 {
	if p.MaxItems <= 0 {
		return 0
	}
	return int64(snap.ItemCount + 1 - p.MaxItems)
}

// MemoryPolicy bounds the cache by estimated response bytes.
type MemoryPolicy struct {
	// MaxBytes is the memory budget.
	MaxBytes int64
}

// EntrySize implements SizePolicy using the serialized-length
// estimator.
func (MemoryPolicy) EntrySize(e *Entry) int64 { return EstimateSize(e) }

// SpaceNeeded implements SizePolicy.
func (p MemoryPolicy) SpaceNeeded(snap SizeSnapshot, incoming *Entry) int64 {
	if p.MaxBytes <= 0 {
		return 0
	}
	return snap.UsedBytes + incoming.Size - p.MaxBytes
}

// EstimateSize estimates an entry's memory footprint from its
// JSON-serialized length, falling back to primitive field sizes when
// the response does not serialize.
func EstimateSize(e *Entry) int64 {
	if e.Response == nil {
		return int64(len(e.Key))
	}
	if data, err := json.Marshal(e.Response); err == nil {
		return int64(len(data) + len(e.Key))
	}

	// Fallback: count the primitive payload fields directly.
	size := int64(len(e.Key) + len(e.Response.ID) + len(e.Response.Model) + len(e.Response.Content) + len(e.Response.Text))
	size += int64(len(e.Response.AudioData))
	for _, emb := range e.Response.Embeddings {
		size += int64(len(emb) * 8)
	}
	return size
}

// DynamicMemoryPolicy is a memory policy whose budget is recalculated
// periodically as a percentage of a total budget. Recalculation is
// driven externally (the cache's maintenance schedule).
type DynamicMemoryPolicy struct {
	mu sync.RWMutex

	// targetPercent is the share of the total budget the cache may use.
	targetPercent float64

	// maxBytes is the current computed budget.
	maxBytes int64
}

// NewDynamicMemoryPolicy creates a dynamic policy using targetPercent
// (0..100) of totalBudget bytes.
func NewDynamicMemoryPolicy(targetPercent float64, totalBudget int64) *DynamicMemoryPolicy {
	p := &DynamicMemoryPolicy{targetPercent: targetPercent}
	p.Recalculate(totalBudget)
	return p
}

// Recalculate recomputes the byte budget against the current total.
func (p *DynamicMemoryPolicy) Recalculate(totalBudget int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxBytes = int64(float64(totalBudget) * p.targetPercent / 100)
}

// EntrySize implements SizePolicy.
func (p *DynamicMemoryPolicy) EntrySize(e *Entry) int64 { return EstimateSize(e) }

// SpaceNeeded implements SizePolicy.
func (p *DynamicMemoryPolicy) SpaceNeeded(snap SizeSnapshot, incoming *Entry) int64 {
	p.mu.RLock()
	max := p.maxBytes
	p.mu.RUnlock()
	if max <= 0 {
		return 0
	}
	return snap.UsedBytes + incoming.Size - max
}

// PriorityTier is one priority band of a tiered policy.
type PriorityTier struct {
	// MinPriority is the lowest priority the band covers (inclusive).
	MinPriority int

	// MaxPriority is the highest priority the band covers (inclusive).
	MaxPriority int

	// MaxItems is the band's entry capacity.
	MaxItems int
}

// covers reports whether the band contains the priority.
func (t PriorityTier) covers(priority int) bool {
	return priority >= t.MinPriority && priority <= t.MaxPriority
}

// TieredPolicy bounds entries per priority band. Eviction for an
// incoming entry only considers entries in the same band.
type TieredPolicy struct {
	tiers []PriorityTier
}

// NewTieredPolicy validates that bands do not overlap and builds the
// policy.
func NewTieredPolicy(tiers []PriorityTier) (*TieredPolicy, error) {
	for i, a := range tiers {
		if a.MinPriority > a.MaxPriority {
			return nil, fmt.Errorf("tier %d: min priority %d exceeds max %d", i, a.MinPriority, a.MaxPriority)
		}
		for j, b := range tiers[i+1:] {
			if a.MinPriority <= b.MaxPriority && b.MinPriority <= a.MaxPriority {
				return nil, fmt.Errorf("tiers %d and %d overlap", i, i+1+j)
			}
		}
	}
	return &TieredPolicy{tiers: tiers}, nil
}

// tierFor returns the band covering the priority, if any.
func (p *TieredPolicy) tierFor(priority int) (PriorityTier, bool) {
	for _, t := range p.tiers {
		if t.covers(priority) {
			return t, true
		}
	}
	return PriorityTier{}, false
}

// EntrySize implements SizePolicy. Bands count items.
func (p *TieredPolicy) EntrySize(*Entry) int64 { return 1 }

// SpaceNeeded implements SizePolicy.
func (p *TieredPolicy) SpaceNeeded(snap SizeSnapshot, incoming *Entry) int64 {
	tier, ok := p.tierFor(incoming.Priority)
	if !ok || tier.MaxItems <= 0 {
		return 0
	}
	var inBand int
	for priority, count := range snap.ItemsByPriority {
		if tier.covers(priority) {
			inBand += count
		}
	}
	return int64(inBand + 1 - tier.MaxItems)
}

// Candidates implements bandFilter: only entries in the incoming
// entry's band may be evicted for it.
func (p *TieredPolicy) Candidates(entries []*Entry, incoming *Entry) []*Entry {
	tier, ok := p.tierFor(incoming.Priority)
	if !ok {
		return entries
	}
	var out []*Entry
	for _, e := range entries {
		if tier.covers(e.Priority) {
			out = append(out, e)
		}
	}
	return out
}
