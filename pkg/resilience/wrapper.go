package resilience

import (
	"context"
	"errors"

	"github.com/polygate/polygate/pkg/providers"
)

// Wrapper decorates a provider client with the resilience envelope:
// a per-call timeout (outer) and classified retry with error tracking
// (inner). It implements providers.Client and forwards every call to the
// wrapped client.
type Wrapper struct {
	inner   providers.Client
	timeout TimeoutPolicy
	retry   RetryPolicy
	tracker ErrorTracker
}

// Wrap builds the resilience envelope around a provider client.
// A nil tracker disables error tracking.
func Wrap(inner providers.Client, timeout TimeoutPolicy, retry RetryPolicy, tracker ErrorTracker) *Wrapper {
	if tracker == nil {
		tracker = NopTracker{}
	}
	return &Wrapper{
		inner:   inner,
		timeout: timeout,
		retry:   retry,
		tracker: tracker,
	}
}

// do runs one unary call through timeout and retry.
func (w *Wrapper) do(ctx context.Context, kind providers.RequestKind, call func(ctx context.Context) (*providers.Response, error)) (*providers.Response, error) {
	var resp *providers.Response
	err := w.retry.Execute(ctx, w.inner.GetName(), w.tracker, func(ctx context.Context) error {
		bound, cancel := w.timeout.Bound(ctx, kind, w.inner.GetName())
		defer cancel()

		var callErr error
		resp, callErr = call(bound)
		if callErr != nil {
			return w.normalizeDeadline(bound, callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// normalizeDeadline converts a deadline expiry into the canonical timeout
// error so classification sees a status-bearing failure.
func (w *Wrapper) normalizeDeadline(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return &providers.TimeoutError{Provider: w.inner.GetName(), Timeout: w.timeout.Timeout}
	}
	return err
}

// Chat implements providers.Client.
func (w *Wrapper) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.do(ctx, providers.KindChat, func(ctx context.Context) (*providers.Response, error) {
		return w.inner.Chat(ctx, req)
	})
}

// StreamChat implements providers.Client. Retry applies to establishing
// the stream only; an established stream is not restartable, so
// mid-stream failures surface through the chunk channel. The first
// error chunk of a stream is classified and sent to the error tracker,
// once per stream.
func (w *Wrapper) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	var chunks <-chan *providers.StreamChunk
	err := w.retry.Execute(ctx, w.inner.GetName(), w.tracker, func(ctx context.Context) error {
		var callErr error
		chunks, callErr = w.inner.StreamChat(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	out := make(chan *providers.StreamChunk)
	go func() {
		defer close(out)
		tracked := false
		for chunk := range chunks {
			if chunk.Error != nil && !tracked {
				tracked = true
				kind, status := providers.KindOf(chunk.Error)
				report(ctx, w.tracker, w.inner.GetName(), kind, status, 1)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Embedding implements providers.Client.
func (w *Wrapper) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.do(ctx, providers.KindEmbedding, func(ctx context.Context) (*providers.Response, error) {
		return w.inner.Embedding(ctx, req)
	})
}

// Image implements providers.Client.
func (w *Wrapper) Image(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.do(ctx, providers.KindImage, func(ctx context.Context) (*providers.Response, error) {
		return w.inner.Image(ctx, req)
	})
}

// Video implements providers.Client. Video bypasses the timeout policy.
func (w *Wrapper) Video(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.do(ctx, providers.KindVideo, func(ctx context.Context) (*providers.Response, error) {
		return w.inner.Video(ctx, req)
	})
}

// TTS implements providers.Client.
func (w *Wrapper) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.do(ctx, providers.KindTTS, func(ctx context.Context) (*providers.Response, error) {
		return w.inner.TTS(ctx, req)
	})
}

// STT implements providers.Client.
func (w *Wrapper) STT(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return w.do(ctx, providers.KindSTT, func(ctx context.Context) (*providers.Response, error) {
		return w.inner.STT(ctx, req)
	})
}

// ListModels implements providers.Client.
func (w *Wrapper) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	err := w.retry.Execute(ctx, w.inner.GetName(), w.tracker, func(ctx context.Context) error {
		bound, cancel := w.timeout.Bound(ctx, providers.KindChat, w.inner.GetName())
		defer cancel()

		var callErr error
		ids, callErr = w.inner.ListModels(bound)
		if callErr != nil {
			return w.normalizeDeadline(bound, callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// VerifyAuth implements providers.Client. Verification failures are the
// result being probed for, so they are neither retried nor tracked.
func (w *Wrapper) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	bound, cancel := w.timeout.Bound(ctx, providers.KindChat, w.inner.GetName())
	defer cancel()
	return w.inner.VerifyAuth(bound)
}

// Capabilities implements providers.Client.
func (w *Wrapper) Capabilities() providers.CapabilitySet {
	return w.inner.Capabilities()
}

// GetName implements providers.Client.
func (w *Wrapper) GetName() string { return w.inner.GetName() }

// GetType implements providers.Client.
func (w *Wrapper) GetType() string { return w.inner.GetType() }

// Close implements providers.Client.
func (w *Wrapper) Close() error { return w.inner.Close() }
