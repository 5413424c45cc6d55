package routing

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/polygate/polygate/pkg/providers"
)

// requiredCapability maps a request kind to the capability a candidate
// deployment must carry.
var requiredCapability = map[providers.RequestKind]providers.Capability{
	providers.KindChat:       providers.CapChat,
	providers.KindChatStream: providers.CapChat,
	providers.KindEmbedding:  providers.CapEmbeddings,
	providers.KindImage:      providers.CapImageGeneration,
	providers.KindVideo:      providers.CapVideoGeneration,
	providers.KindTTS:        providers.CapTextToSpeech,
	providers.KindSTT:        providers.CapTranscription,
	providers.KindRealtime:   providers.CapRealtime,
}

// Router selects a deployment for each request via its strategy and
// feeds dispatch outcomes back into deployment and strategy metrics.
type Router struct {
	mu          sync.RWMutex
	deployments map[string]*Deployment
	strategy    Strategy
	logger      *slog.Logger
}

// NewRouter creates a router over the given strategy.
func NewRouter(strategy Strategy, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		deployments: make(map[string]*Deployment),
		strategy:    strategy,
		logger:      logger,
	}
}

// Register adds or replaces a deployment in the pool.
func (r *Router) Register(d *Deployment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deployments[d.Name] = d
}

// SetAvailable flips a deployment's availability flag.
func (r *Router) SetAvailable(name string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.deployments[name]; ok {
		d.Available = available
	}
}

// Deployment returns the named deployment, if registered.
func (r *Router) Deployment(name string) (*Deployment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deployments[name]
	return d, ok
}

// Route selects a deployment for the request. Candidates are filtered
// by availability and by the capability the request kind demands before
// the strategy ranks them.
func (r *Router) Route(req *providers.Request) (*Deployment, error) {
	if req == nil {
		return nil, fmt.Errorf("routing: nil request")
	}

	candidates := r.candidates(req.Kind)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("routing: no available deployment supports %s", req.Kind)
	}

	selected := r.strategy.Select(req, candidates)
	if selected == nil {
		return nil, fmt.Errorf("routing: strategy %s rejected all %d candidates for %s",
			r.strategy.Name(), len(candidates), req.Kind)
	}

	r.logger.Debug("routed request",
		"strategy", r.strategy.Name(),
		"kind", string(req.Kind),
		"model", req.Model,
		"deployment", selected.Name,
		"candidates", len(candidates))
	return selected, nil
}

// ReportResult folds a dispatch outcome into the deployment's metrics
// and the strategy's learned state.
func (r *Router) ReportResult(deployment string, result DispatchResult) {
	r.mu.RLock()
	d, ok := r.deployments[deployment]
	r.mu.RUnlock()
	if ok {
		d.recordDispatch(result)
	}
	r.strategy.UpdateMetrics(deployment, result)
}

// candidates returns the available deployments carrying the capability
// the request kind requires.
func (r *Router) candidates(kind providers.RequestKind) []*Deployment {
	required, known := requiredCapability[kind]

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Deployment
	for _, d := range r.deployments {
		if !d.Available {
			continue
		}
		if known && !d.Capabilities.Has(required) {
			continue
		}
		out = append(out, d)
	}
	return out
}
