package strategies

import (
	"sync"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/routing"
)

// latencyState is the per-provider record the latency strategy learns.
type latencyState struct {
	// history is a bounded window of recent latencies, newest last.
	history []float64

	// historicalAvg is the cumulative mean latency over all dispatches.
	historicalAvg float64

	// total and failed count dispatches for the failure penalty.
	total  int64
	failed int64
}

// rollingAvg returns the mean of the recent window.
func (s *latencyState) rollingAvg() float64 {
	if len(s.history) == 0 {
		return s.historicalAvg
	}
	var sum float64
	for _, v := range s.history {
		sum += v
	}
	return sum / float64(len(s.history))
}

// failureRate returns the fraction of failed dispatches.
func (s *latencyState) failureRate() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.failed) / float64(s.total)
}

// LatencyStrategy routes to the deployment with the lowest blended
// latency score. The score mixes the recent rolling average (30%) with
// the historical average (70%), then adds a load penalty of up to 100
// and a failure-rate penalty of up to 200.
type LatencyStrategy struct {
	mu    sync.RWMutex
	state map[string]*latencyState

	// historyBound caps the per-provider rolling window.
	historyBound int
}

// NewLatencyStrategy creates a latency-based strategy with a 50-sample
// rolling window per provider.
func NewLatencyStrategy() *LatencyStrategy {
	return &LatencyStrategy{
		state:        make(map[string]*latencyState),
		historyBound: 50,
	}
}

// Name implements routing.Strategy.
func (s *LatencyStrategy) Name() string { return "latency" }

// Select implements routing.Strategy.
func (s *LatencyStrategy) Select(_ *providers.Request, candidates []*routing.Deployment) *routing.Deployment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *routing.Deployment
	var bestScore float64
	for _, d := range candidates {
		score := s.score(d)
		if best == nil || score < bestScore {
			best = d
			bestScore = score
		}
	}
	return best
}

// score computes the deployment's latency score; lower is better.
// Callers must hold at least the read lock.
func (s *LatencyStrategy) score(d *routing.Deployment) float64 {
	metrics := d.Metrics()

	var current, historical, failure float64
	if st, ok := s.state[d.Name]; ok {
		current = st.rollingAvg()
		historical = st.historicalAvg
		failure = st.failureRate()
	} else {
		// No learned state yet: fall back to the deployment's record.
		current = metrics.AverageLatencyMS
		historical = metrics.AverageLatencyMS
	}

	score := 0.3*current + 0.7*historical
	score += metrics.CurrentLoad * 100
	score += failure * 200
	return score
}

// UpdateMetrics implements routing.Strategy.
func (s *LatencyStrategy) UpdateMetrics(provider string, result routing.DispatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[provider]
	if !ok {
		st = &latencyState{}
		s.state[provider] = st
	}

	st.total++
	if !result.Success {
		st.failed++
	}
	if result.LatencyMS > 0 {
		st.history = append(st.history, result.LatencyMS)
		if len(st.history) > s.historyBound {
			st.history = st.history[len(st.history)-s.historyBound:]
		}
		st.historicalAvg += (result.LatencyMS - st.historicalAvg) / float64(st.total)
	}
}
