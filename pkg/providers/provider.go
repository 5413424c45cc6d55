package providers

import "context"

// Client is the core interface every upstream provider adapter implements.
// It provides a unified abstraction for chat, embeddings, media generation,
// and credential verification across providers (OpenAI, Anthropic, Cohere,
// Groq, ElevenLabs, SageMaker, OpenRouter, and OpenAI-compatible servers).
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return immediately
// when the context is cancelled.
//
// Adapters that do not offer a capability return *UnsupportedError from the
// corresponding method rather than panicking or silently degrading.
//
// Example usage:
//
//	client, err := factory.ForModel(ctx, "gpt-4o")
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Chat(ctx, &providers.Request{
//	    Kind:  providers.KindChat,
//	    Model: "gpt-4o",
//	    Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hello!"}},
//	})
type Client interface {
	// Chat sends a non-streaming chat completion request.
	// The request is transformed to the provider-native shape and the
	// response is normalized back to the canonical format, synthesizing
	// usage from text length when the provider does not report it.
	Chat(ctx context.Context, req *Request) (*Response, error)

	// StreamChat sends a streaming chat completion request.
	// It returns a channel that yields chunks in provider receipt order.
	// The channel closes when the stream ends; a mid-stream failure is
	// delivered as a final chunk with Error set. The stream is not
	// restartable; cancelling the context aborts it and releases the
	// underlying transport.
	StreamChat(ctx context.Context, req *Request) (<-chan *StreamChunk, error)

	// Embedding computes embedding vectors for the request inputs.
	Embedding(ctx context.Context, req *Request) (*Response, error)

	// Image generates images from the request prompt.
	Image(ctx context.Context, req *Request) (*Response, error)

	// Video generates a video from the request prompt. Video calls bypass
	// the outer timeout policy because generations may take minutes.
	Video(ctx context.Context, req *Request) (*Response, error)

	// TTS synthesizes speech from the request prompt.
	TTS(ctx context.Context, req *Request) (*Response, error)

	// STT transcribes the request audio payload.
	STT(ctx context.Context, req *Request) (*Response, error)

	// ListModels returns the model ids the provider exposes. Adapters for
	// providers without a list endpoint return a synthetic list.
	ListModels(ctx context.Context) ([]string, error)

	// VerifyAuth probes the provider with a free introspection endpoint
	// and reports whether the configured credential is accepted.
	VerifyAuth(ctx context.Context) (*AuthCheck, error)

	// Capabilities returns the capability set this adapter offers.
	Capabilities() CapabilitySet

	// GetName returns the adapter's configured name (e.g., "openai").
	GetName() string

	// GetType returns the adapter's provider type.
	GetType() string

	// Close releases adapter resources (HTTP connections, etc.).
	// After calling Close, the client should not be used.
	Close() error
}

// StreamReader abstracts the underlying SSE protocol used by a provider.
type StreamReader interface {
	// Read reads the next chunk from the stream.
	// Returns nil and io.EOF when the stream ends normally.
	Read(ctx context.Context) (*StreamChunk, error)

	// Close closes the stream and releases resources.
	Close() error
}
