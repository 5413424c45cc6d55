// Package providers defines the canonical request/response data model, the
// Client interface implemented by every upstream adapter, the typed error
// taxonomy with pure HTTP-status classification, and the shared HTTP base
// used by the concrete adapters in the subpackages.
//
// Each adapter subpackage (openai, anthropic, cohere, groq, elevenlabs,
// sagemaker, openrouter, generic) transforms canonical requests to the
// provider-native wire shape, signs them as the provider requires, and
// normalizes the provider response back, synthesizing token usage from
// text length when the provider does not report it.
//
// Cross-cutting concerns are layered above by decorators built in
// pkg/factory: retry and timeout policy (pkg/resilience), response caching
// (pkg/cache), prometheus metrics and per-call credential context binding.
package providers
