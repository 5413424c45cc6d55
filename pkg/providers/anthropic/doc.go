// Package anthropic implements the provider adapter for Anthropic's
// Messages API, covering blocking and streaming chat with tool use.
// System messages are lifted into the top-level system field and tool
// use blocks are mapped to canonical tool calls.
package anthropic
