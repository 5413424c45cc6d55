package strategies

import (
	"sync"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/routing"
)

// zeroSuccessPenalty caps the reliability multiplier applied when a
// provider has no recorded successes.
const zeroSuccessPenalty = 10.0

// CostStrategy routes to the cheapest deployment after adjusting cost
// for reliability and quality. The effective cost multiplies the base
// cost by 1/success-rate (capped for dead providers); the final score
// multiplies by 2 - quality/100, so a quality-100 deployment keeps its
// effective cost and a quality-0 deployment doubles it. Deployments
// below the minimum quality threshold are skipped.
type CostStrategy struct {
	mu    sync.RWMutex
	state map[string]*costState

	// minQuality excludes deployments below this quality (0..100).
	minQuality float64
}

// costState tracks learned reliability per provider.
type costState struct {
	total     int64
	succeeded int64
}

// successRate returns the learned success fraction, 1 when unobserved.
func (s *costState) successRate() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.succeeded) / float64(s.total)
}

// NewCostStrategy creates a cost-based strategy with the given quality
// floor.
func NewCostStrategy(minQuality float64) *CostStrategy {
	return &CostStrategy{
		state:      make(map[string]*costState),
		minQuality: minQuality,
	}
}

// Name implements routing.Strategy.
func (s *CostStrategy) Name() string { return "cost" }

// Select implements routing.Strategy.
func (s *CostStrategy) Select(_ *providers.Request, candidates []*routing.Deployment) *routing.Deployment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *routing.Deployment
	var bestScore float64
	for _, d := range candidates {
		if d.BaseQuality < s.minQuality {
			continue
		}
		score := s.adjustedCost(d)
		if best == nil || score < bestScore {
			best = d
			bestScore = score
		}
	}
	return best
}

// adjustedCost computes the quality-adjusted effective cost. Callers
// must hold at least the read lock.
func (s *CostStrategy) adjustedCost(d *routing.Deployment) float64 {
	base := d.Metrics().CostPerUnit

	rate := 1.0
	if st, ok := s.state[d.Name]; ok {
		rate = st.successRate()
	}

	reliability := zeroSuccessPenalty
	if rate > 1.0/zeroSuccessPenalty {
		reliability = 1 / rate
	}

	effective := base * reliability
	return effective * (2 - d.BaseQuality/100)
}

// UpdateMetrics implements routing.Strategy.
func (s *CostStrategy) UpdateMetrics(provider string, result routing.DispatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[provider]
	if !ok {
		st = &costState{}
		s.state[provider] = st
	}
	st.total++
	if result.Success {
		st.succeeded++
	}
}
