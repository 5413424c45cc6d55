package realtime

// Frame is a canonical client-to-provider event. Translators encode
// frames into the provider's wire protocol.
type Frame interface {
	isFrame()
}

// AudioAppend streams a chunk of caller audio into the session.
type AudioAppend struct {
	// Audio is the raw audio payload in the session's input format.
	Audio []byte
}

func (AudioAppend) isFrame() {}

// TextInput submits a user text message to the conversation.
type TextInput struct {
	// Text is the message content.
	Text string
}

func (TextInput) isFrame() {}

// FunctionResponse returns a tool call result to the provider.
type FunctionResponse struct {
	// CallID identifies the function call being answered.
	CallID string

	// Output is the serialized function result.
	Output string
}

func (FunctionResponse) isFrame() {}

// ResponseRequest asks the provider to generate a response.
type ResponseRequest struct {
	// Instructions optionally steer this response.
	Instructions string

	// Temperature optionally overrides the sampling temperature
	// (0 = provider default).
	Temperature float64
}

func (ResponseRequest) isFrame() {}

// SessionUpdate patches the live session configuration.
type SessionUpdate struct {
	// Patch holds the provider-agnostic fields to update.
	Patch map[string]interface{}
}

func (SessionUpdate) isFrame() {}

// Event is a canonical provider-to-client event. Translators decode
// provider wire frames into events.
type Event interface {
	isEvent()
}

// AudioDelta carries a chunk of generated audio.
type AudioDelta struct {
	// Audio is the raw audio payload in the session's output format.
	Audio []byte

	// IsFinal marks the last audio chunk of a response.
	IsFinal bool
}

func (AudioDelta) isEvent() {}

// TextDelta carries a chunk of generated or transcribed text.
type TextDelta struct {
	// Text is the incremental text.
	Text string
}

func (TextDelta) isEvent() {}

// FunctionCallDelta carries incremental function call information.
type FunctionCallDelta struct {
	// CallID identifies the function call.
	CallID string

	// Name is the function name, set on the first delta.
	Name string

	// ArgsDelta is the incremental JSON arguments text.
	ArgsDelta string

	// IsFinal marks the call's arguments as complete.
	IsFinal bool
}

func (FunctionCallDelta) isEvent() {}

// Status reports a provider lifecycle event that needs no action.
type Status struct {
	// Kind is the machine-readable status (e.g., "session.created").
	Kind string

	// Detail is optional human-readable context.
	Detail string
}

func (Status) isEvent() {}

// ErrorEvent reports a provider or transport failure.
type ErrorEvent struct {
	// Code is the machine-readable error code.
	Code string

	// Message is the human-readable description.
	Message string

	// Severity is "warning" or "error".
	Severity string

	// Terminal marks errors that end the session.
	Terminal bool
}

func (ErrorEvent) isEvent() {}
