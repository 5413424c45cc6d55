package strategies

import (
	"sync"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/routing"
)

// Component weights of the quality score.
const (
	weightBaseQuality       = 0.3
	weightSuccessRate       = 0.2
	weightHistoricalQuality = 0.2
	weightRequestType       = 0.2
	weightFeatureBonus      = 0.1
)

// QualityStrategy routes to the highest-scoring deployment. The score
// blends the configured base quality, the measured success rate, a
// learned historical quality, a per-request-kind multiplier, and a
// feature-richness bonus from the capability mask. All components are
// normalized to 0..100 before weighting.
type QualityStrategy struct {
	mu    sync.RWMutex
	state map[string]*qualityState

	// typeMultipliers scales scores per request kind (1.0 = neutral).
	typeMultipliers map[string]map[providers.RequestKind]float64
}

// qualityState tracks learned outcome quality per provider.
type qualityState struct {
	total     int64
	succeeded int64

	// historical is an exponential moving average of outcome quality
	// (100 for success, 0 for failure).
	historical float64
}

// historicalAlpha is the EMA smoothing factor for learned quality.
const historicalAlpha = 0.1

// NewQualityStrategy creates a quality-based strategy. typeMultipliers
// maps deployment name to per-request-kind multipliers; missing entries
// default to 1.0.
func NewQualityStrategy(typeMultipliers map[string]map[providers.RequestKind]float64) *QualityStrategy {
	return &QualityStrategy{
		state:           make(map[string]*qualityState),
		typeMultipliers: typeMultipliers,
	}
}

// Name implements routing.Strategy.
func (s *QualityStrategy) Name() string { return "quality" }

// Select implements routing.Strategy.
func (s *QualityStrategy) Select(req *providers.Request, candidates []*routing.Deployment) *routing.Deployment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *routing.Deployment
	var bestScore float64
	for _, d := range candidates {
		score := s.score(req, d)
		if best == nil || score > bestScore {
			best = d
			bestScore = score
		}
	}
	return best
}

// score computes the composite quality score; higher is better.
// Callers must hold at least the read lock.
func (s *QualityStrategy) score(req *providers.Request, d *routing.Deployment) float64 {
	successRate := 1.0
	historical := d.BaseQuality
	if st, ok := s.state[d.Name]; ok && st.total > 0 {
		successRate = float64(st.succeeded) / float64(st.total)
		historical = st.historical
	}

	multiplier := 1.0
	if req != nil {
		if kinds, ok := s.typeMultipliers[d.Name]; ok {
			if m, ok := kinds[req.Kind]; ok {
				multiplier = m
			}
		}
	}

	// Feature richness: fraction of the full capability mask, as 0..100.
	featureScore := float64(len(d.Capabilities)) / 12 * 100
	if featureScore > 100 {
		featureScore = 100
	}

	score := weightBaseQuality * d.BaseQuality
	score += weightSuccessRate * successRate * 100
	score += weightHistoricalQuality * historical
	score += weightRequestType * multiplier * 100
	score += weightFeatureBonus * featureScore
	return score
}

// UpdateMetrics implements routing.Strategy.
func (s *QualityStrategy) UpdateMetrics(provider string, result routing.DispatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[provider]
	if !ok {
		st = &qualityState{historical: 50}
		s.state[provider] = st
	}

	st.total++
	outcome := 0.0
	if result.Success {
		st.succeeded++
		outcome = 100
	}
	st.historical += historicalAlpha * (outcome - st.historical)
}
