// Package cohere implements the provider adapter for Cohere's v2 API,
// covering chat (blocking and streaming) and embeddings. Billed search
// units reported by retrieval-augmented calls are carried into the
// canonical usage record.
package cohere
