package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/routing"
)

// selectDeployment picks a deployment for the request. A request naming
// a configured logical model chooses among that model's deployments;
// anything else goes through the router's capability-filtered pool.
func (f *Factory) selectDeployment(req *providers.Request) (*routing.Deployment, error) {
	names := f.byModel[req.Model]
	if len(names) == 0 {
		return f.router.Route(req)
	}

	candidates := make([]*routing.Deployment, 0, len(names))
	for _, name := range names {
		if d, ok := f.router.Deployment(name); ok && d.Available {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("model %q has no available deployment", req.Model)
	}

	selected := f.strategy.Select(req, candidates)
	if selected == nil {
		return nil, fmt.Errorf("strategy %s rejected all %d deployments of model %q",
			f.strategy.Name(), len(candidates), req.Model)
	}
	return selected, nil
}

// Dispatch routes a non-streaming request to a deployment, invokes the
// composed client, and feeds the outcome back into the router's metrics
// and the cost counters.
func (f *Factory) Dispatch(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	deployment, err := f.selectDeployment(req)
	if err != nil {
		return nil, err
	}
	client, err := f.Client(f.deployProvider[deployment.Name])
	if err != nil {
		return nil, err
	}

	forward := *req
	forward.Model = deployment.ModelID

	start := time.Now()
	var resp *providers.Response
	switch req.Kind {
	case providers.KindEmbedding:
		resp, err = client.Embedding(ctx, &forward)
	case providers.KindImage:
		resp, err = client.Image(ctx, &forward)
	case providers.KindVideo:
		resp, err = client.Video(ctx, &forward)
	case providers.KindTTS:
		resp, err = client.TTS(ctx, &forward)
	case providers.KindSTT:
		resp, err = client.STT(ctx, &forward)
	default:
		resp, err = client.Chat(ctx, &forward)
	}

	result := routing.DispatchResult{
		LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
		Success:   err == nil,
		Language:  req.Metadata["language"],
	}
	if err == nil {
		result.UsageSize = resp.Usage.TotalTokens
		result.Cost = f.recordCost(deployment, &resp.Usage)
	}
	f.router.ReportResult(deployment.Name, result)

	return resp, err
}

// DispatchStream routes a streaming chat request. The dispatch outcome
// is reported when the upstream stream ends, so latency covers the full
// stream and cost comes from the final usage chunk.
func (f *Factory) DispatchStream(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	deployment, err := f.selectDeployment(req)
	if err != nil {
		return nil, err
	}
	client, err := f.Client(f.deployProvider[deployment.Name])
	if err != nil {
		return nil, err
	}

	forward := *req
	forward.Model = deployment.ModelID

	start := time.Now()
	upstream, err := client.StreamChat(ctx, &forward)
	if err != nil {
		f.router.ReportResult(deployment.Name, routing.DispatchResult{
			LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
			Language:  req.Metadata["language"],
		})
		return nil, err
	}

	out := make(chan *providers.StreamChunk)
	go func() {
		defer close(out)

		var usage *providers.Usage
		failed := false
	relay:
		for chunk := range upstream {
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.Error != nil {
				failed = true
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				failed = true
				break relay
			}
		}

		result := routing.DispatchResult{
			LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
			Success:   !failed,
			Language:  req.Metadata["language"],
		}
		if usage != nil {
			result.UsageSize = usage.TotalTokens
			if !failed {
				result.Cost = f.recordCost(deployment, usage)
			}
		}
		f.router.ReportResult(deployment.Name, result)
	}()
	return out, nil
}

// recordCost prices a completed call against the deployment's logical
// model and accumulates it in the collector. Models without pricing
// cost nothing.
func (f *Factory) recordCost(deployment *routing.Deployment, usage *providers.Usage) float64 {
	model := f.deployModel[deployment.Name]
	if model == "" {
		return 0
	}
	info, err := f.pricing.GetModelCost(model)
	if err != nil {
		return 0
	}
	amount, err := f.engine.Calculate(usage, info)
	if err != nil {
		f.logger.Warn("cost calculation failed",
			"model", model,
			"deployment", deployment.Name,
			"error", err,
		)
		return 0
	}

	cost := amount.InexactFloat64()
	if f.collector != nil {
		f.collector.RecordCost(f.deployProvider[deployment.Name], model, cost)
	}
	return cost
}
