// Package openai implements the provider adapter for OpenAI's API.
//
// The adapter covers chat completions (blocking and SSE streaming),
// embeddings, image generation, speech synthesis, and transcription.
// Requests and responses are transformed between the canonical shapes
// in pkg/providers and OpenAI's wire format; token usage is synthesized
// from text length when the upstream response omits it.
package openai
