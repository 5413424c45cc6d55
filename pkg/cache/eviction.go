package cache

import (
	"math"
	"sort"
	"time"
)

// EvictionPolicy scores entries for eviction. Lower scores are evicted
// first.
type EvictionPolicy interface {
	// Score ranks an entry; the lowest-scoring entries are the first
	// victims.
	Score(e *Entry, now time.Time) float64
}

// setScorer ranks a whole candidate set at once. Policies whose
// sub-scores live on different scales implement it so ranking can
// normalize over the set.
type setScorer interface {
	Scores(entries []*Entry, now time.Time) []float64
}

// SelectVictims returns the minimal set of lowest-scoring entries whose
// combined size covers spaceNeeded. Entries with size 0 count as one
// unit so item-count policies still make progress.
func SelectVictims(policy EvictionPolicy, entries []*Entry, spaceNeeded int64, now time.Time) []*Entry {
	if spaceNeeded <= 0 || len(entries) == 0 {
		return nil
	}

	var scores []float64
	if ss, ok := policy.(setScorer); ok {
		scores = ss.Scores(entries, now)
	} else {
		scores = make([]float64, len(entries))
		for i, e := range entries {
			scores[i] = policy.Score(e, now)
		}
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] < scores[order[j]]
	})
	candidates := make([]*Entry, len(entries))
	for i, idx := range order {
		candidates[i] = entries[idx]
	}

	var victims []*Entry
	var freed int64
	for _, e := range candidates {
		if freed >= spaceNeeded {
			break
		}
		size := e.Size
		if size <= 0 {
			size = 1
		}
		victims = append(victims, e)
		freed += size
	}
	return victims
}

// LRUPolicy evicts the least recently accessed entries first.
type LRUPolicy struct{}

// Score implements EvictionPolicy.
func (LRUPolicy) Score(e *Entry, _ time.Time) float64 {
	last := e.LastAccessedAt
	if last.IsZero() {
		last = e.CreatedAt
	}
	return float64(last.UnixNano())
}

// LFUPolicy evicts the least frequently accessed entries first. With a
// window configured, accesses older than the window do not count.
type LFUPolicy struct {
	// Window restricts counted accesses to recent activity (0 = all).
	Window time.Duration
}

// Score implements EvictionPolicy.
func (p LFUPolicy) Score(e *Entry, now time.Time) float64 {
	if p.Window > 0 && now.Sub(e.LastAccessedAt) > p.Window {
		return 0
	}
	return float64(e.AccessCount)
}

// PriorityPolicy evicts lower-priority entries first. With AgeWeight
// set, older entries within a priority band are evicted before newer
// ones.
type PriorityPolicy struct {
	// AgeWeight subtracts age-in-seconds times this weight from the
	// priority score (0 disables age weighting).
	AgeWeight float64
}

// Score implements EvictionPolicy.
func (p PriorityPolicy) Score(e *Entry, now time.Time) float64 {
	score := float64(e.Priority)
	if p.AgeWeight > 0 {
		score -= now.Sub(e.CreatedAt).Seconds() * p.AgeWeight
	}
	return score
}

// WeightedPolicy pairs a sub-policy with its weight in a composite
// score.
type WeightedPolicy struct {
	// Policy is the scored sub-policy.
	Policy EvictionPolicy

	// Weight scales the sub-policy's score.
	Weight float64
}

// CompositePolicy scores entries as the weighted sum of its
// sub-policies' scores. Sub-policies score on unrelated scales
// (recency in nanoseconds, access counts, priority bands), so each
// sub-policy's scores are min-max normalized to [0, 1] over the
// candidate set before weighting; the weights compare policies, not
// units. Ranking therefore happens set-wise through Scores.
type CompositePolicy struct {
	// Policies are the weighted sub-policies.
	Policies []WeightedPolicy
}

// Scores implements setScorer.
func (p CompositePolicy) Scores(entries []*Entry, now time.Time) []float64 {
	totals := make([]float64, len(entries))
	raw := make([]float64, len(entries))
	for _, wp := range p.Policies {
		lo := math.Inf(1)
		hi := math.Inf(-1)
		for i, e := range entries {
			raw[i] = wp.Policy.Score(e, now)
			if raw[i] < lo {
				lo = raw[i]
			}
			if raw[i] > hi {
				hi = raw[i]
			}
		}
		span := hi - lo
		if span == 0 {
			// The sub-policy cannot tell the candidates apart.
			continue
		}
		for i := range entries {
			totals[i] += wp.Weight * (raw[i] - lo) / span
		}
	}
	return totals
}

// Score implements EvictionPolicy for a single entry. One entry gives
// the normalization no spread, so every sub-policy contributes zero;
// eviction ranks composites through Scores instead.
func (p CompositePolicy) Score(e *Entry, now time.Time) float64 {
	return p.Scores([]*Entry{e}, now)[0]
}
