// Polygate is a multi-provider LLM inference gateway.
//
// It presents one client surface over heterogeneous model providers
// (OpenAI, Anthropic, Cohere, Groq, ElevenLabs, SageMaker, OpenRouter,
// and OpenAI-compatible endpoints), providing:
//   - Canonical request/response types across chat, embeddings,
//     images, audio, and realtime sessions
//   - Strategy-based routing across model deployments
//   - Retries, timeouts, and error classification
//   - Response caching with per-model tuning
//   - Exact cost accounting over configurable pricing models
//
// Usage:
//
//	# Start the gateway with the default configuration file
//	polygate run
//
//	# Start with a custom configuration file
//	polygate run --config /etc/polygate/config.yaml
//
//	# Validate a configuration file
//	polygate validate --config config.yaml
//
//	# Show version information
//	polygate version
package main

func main() {
	Execute()
}
