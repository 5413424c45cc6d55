// Package openrouter implements the provider adapter for OpenRouter's
// OpenAI-compatible aggregation API. OpenRouter asks callers to attach
// HTTP-Referer and X-Title attribution headers; the adapter sets both
// on every request.
package openrouter
