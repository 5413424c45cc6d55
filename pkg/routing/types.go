package routing

import (
	"sync"

	"github.com/polygate/polygate/pkg/providers"
)

// ProviderMetrics is the live performance record a strategy reads for
// one deployment. Updated after every dispatch.
type ProviderMetrics struct {
	// AverageLatencyMS is the historical mean request latency.
	AverageLatencyMS float64

	// SuccessRate is the fraction of dispatches that succeeded (0..1).
	SuccessRate float64

	// CurrentLoad is the deployment's load estimate (0..1).
	CurrentLoad float64

	// LatencyHistory is a bounded window of recent latencies in
	// milliseconds, newest last.
	LatencyHistory []float64

	// CostPerUnit is the deployment's base cost per usage unit.
	CostPerUnit float64

	// TotalDispatches counts all dispatches to the deployment.
	TotalDispatches int64

	// FailedDispatches counts failed dispatches.
	FailedDispatches int64
}

// Deployment is one routable provider deployment: identity,
// capabilities, quality, and live metrics.
type Deployment struct {
	// Name is the deployment identifier.
	Name string

	// ProviderType is the upstream provider kind (e.g., "openai").
	ProviderType string

	// ModelID is the provider-side model identifier.
	ModelID string

	// Capabilities is the deployment's capability mask.
	Capabilities providers.CapabilitySet

	// BaseQuality is the configured quality score (0..100).
	BaseQuality float64

	// Available marks the deployment eligible for selection.
	Available bool

	// mu protects Metrics.
	mu sync.RWMutex

	// metrics is the live performance record.
	metrics ProviderMetrics
}

// Metrics returns a copy of the deployment's live metrics.
func (d *Deployment) Metrics() ProviderMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m := d.metrics
	m.LatencyHistory = append([]float64(nil), d.metrics.LatencyHistory...)
	return m
}

// latencyHistoryBound caps the per-deployment rolling latency window.
const latencyHistoryBound = 50

// recordDispatch folds one dispatch outcome into the metrics.
func (d *Deployment) recordDispatch(result DispatchResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := &d.metrics
	m.TotalDispatches++
	if !result.Success {
		m.FailedDispatches++
	}
	m.SuccessRate = float64(m.TotalDispatches-m.FailedDispatches) / float64(m.TotalDispatches)

	if result.LatencyMS > 0 {
		m.LatencyHistory = append(m.LatencyHistory, result.LatencyMS)
		if len(m.LatencyHistory) > latencyHistoryBound {
			m.LatencyHistory = m.LatencyHistory[len(m.LatencyHistory)-latencyHistoryBound:]
		}
		// Cumulative mean over all dispatches that reported latency.
		m.AverageLatencyMS += (result.LatencyMS - m.AverageLatencyMS) / float64(m.TotalDispatches)
	}
	if result.Cost > 0 {
		m.CostPerUnit = result.Cost
	}
}

// DispatchResult is the outcome report fed back to the router and its
// strategy after every dispatch.
type DispatchResult struct {
	// LatencyMS is the request latency in milliseconds.
	LatencyMS float64

	// Success reports whether the dispatch succeeded.
	Success bool

	// UsageSize is the total token (or unit) count of the exchange.
	UsageSize int

	// Language is the request language code, when known.
	Language string

	// Cost is the computed charge for the dispatch.
	Cost float64
}

// Strategy selects one deployment for a request.
//
// Implementations must be safe for concurrent use; Select and
// UpdateMetrics are called from many goroutines at once.
type Strategy interface {
	// Name returns the strategy name for logging and statistics.
	Name() string

	// Select returns the best deployment for the request from the
	// pre-filtered candidates, or nil when none is eligible.
	Select(req *providers.Request, candidates []*Deployment) *Deployment

	// UpdateMetrics folds a dispatch outcome into the strategy's
	// internal state. Called after every dispatch, success or failure.
	UpdateMetrics(provider string, result DispatchResult)
}
