// Package generic implements the provider adapter for any server that
// speaks the OpenAI API format, such as Ollama, LM Studio, vLLM, or
// FastChat. It reuses the OpenAI adapter with a mandatory custom base
// URL and an optional API key.
package generic
