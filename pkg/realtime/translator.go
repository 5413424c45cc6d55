package realtime

import (
	"net/http"
)

// SessionConfig is the provider-agnostic configuration for one
// realtime session.
type SessionConfig struct {
	// Model is the provider-side realtime model identifier.
	Model string

	// Voice selects the synthesis voice.
	Voice string

	// InputAudioFormat tags the caller's audio encoding.
	InputAudioFormat string

	// OutputAudioFormat tags the requested response encoding.
	OutputAudioFormat string

	// Instructions is the session system prompt.
	Instructions string

	// Temperature is the sampling temperature (0 = provider default).
	Temperature float64

	// APIKey authenticates the session.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string
}

// ValidationResult collects configuration problems found before the
// transport is opened.
type ValidationResult struct {
	// Errors are fatal; the session must not connect.
	Errors []string

	// Warnings are advisory; the session may connect.
	Warnings []string
}

// Valid reports whether the configuration may connect.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// DialTarget is where and how the transport connects.
type DialTarget struct {
	// URL is the WebSocket endpoint.
	URL string

	// Header carries per-provider headers (auth, beta flags).
	Header http.Header

	// Subprotocols lists required WebSocket subprotocols.
	Subprotocols []string
}

// Translator maps canonical frames and events to one provider's
// realtime wire protocol.
type Translator interface {
	// Provider returns the provider name.
	Provider() string

	// Validate checks the configuration against the provider's model,
	// voice, and audio format whitelists.
	Validate(cfg SessionConfig) ValidationResult

	// Target builds the dial target for the configuration.
	Target(cfg SessionConfig) DialTarget

	// InitMessages returns the wire messages to send immediately after
	// connecting, in order.
	InitMessages(cfg SessionConfig) ([][]byte, error)

	// EncodeFrame converts a canonical frame to a wire message.
	EncodeFrame(f Frame) ([]byte, error)

	// DecodeEvent converts a wire message to a canonical event.
	// A nil event with nil error marks a frame the session should skip.
	DecodeEvent(data []byte) (Event, error)
}
