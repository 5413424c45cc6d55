// Package groq implements the provider adapter for Groq's
// OpenAI-compatible API, covering chat, streaming, and Whisper
// transcription.
package groq
