package providers

import "time"

// RequestKind identifies which operation a canonical Request describes.
type RequestKind string

// Request kinds supported by the gateway.
const (
	KindChat       RequestKind = "chat"
	KindChatStream RequestKind = "chat_stream"
	KindEmbedding  RequestKind = "embedding"
	KindImage      RequestKind = "image"
	KindVideo      RequestKind = "video"
	KindTTS        RequestKind = "tts"
	KindSTT        RequestKind = "stt"
	KindRealtime   RequestKind = "realtime"
)

// Capability identifies a single provider capability.
type Capability string

// Capabilities a deployment may advertise.
const (
	CapChat            Capability = "chat"
	CapTextGeneration  Capability = "text_generation"
	CapEmbeddings      Capability = "embeddings"
	CapImageGeneration Capability = "image_generation"
	CapVision          Capability = "vision"
	CapFunctionCalling Capability = "function_calling"
	CapToolUsage       Capability = "tool_usage"
	CapJSONMode        Capability = "json_mode"
	CapTextToSpeech    Capability = "text_to_speech"
	CapTranscription   Capability = "transcription"
	CapRealtime        Capability = "realtime"
	CapVideoGeneration Capability = "video_generation"
)

// CapabilitySet is the set of capabilities a provider deployment offers.
type CapabilitySet []Capability

// Has reports whether the set contains the given capability.
func (s CapabilitySet) Has(c Capability) bool {
	for _, v := range s {
		if v == c {
			return true
		}
	}
	return false
}

// Message represents a single message in a conversation.
// It is provider-agnostic and is transformed to provider-specific formats.
type Message struct {
	// Role identifies the message sender (system, user, assistant, tool).
	Role string `json:"role"`

	// Content is the message text content.
	Content string `json:"content"`

	// Name is an optional name for the message sender.
	Name string `json:"name,omitempty"`

	// ToolCalls contains tool calls made by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID references the tool call this message responds to
	// (role "tool" only).
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall represents a function/tool call request from the model.
type ToolCall struct {
	// ID is a unique identifier for this tool call.
	ID string `json:"id"`

	// Type is the type of tool call (currently always "function").
	Type string `json:"type"`

	// Function contains the function name and arguments.
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a specific function invocation.
type FunctionCall struct {
	// Name is the function name to call.
	Name string `json:"name"`

	// Arguments is a JSON string containing the function arguments.
	Arguments string `json:"arguments"`
}

// Tool represents a tool/function definition the model can call.
type Tool struct {
	// Type is the type of tool (currently always "function").
	Type string `json:"type"`

	// Function contains the function definition.
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a callable function.
type FunctionDefinition struct {
	// Name is the function name.
	Name string `json:"name"`

	// Description explains what the function does.
	Description string `json:"description,omitempty"`

	// Parameters is a JSON Schema object describing the parameters.
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// SearchMetadata describes the documents consumed by a search-unit charge.
type SearchMetadata struct {
	// DocumentCount is the number of documents searched.
	DocumentCount int `json:"document_count"`

	// ChunkedDocumentCount is the number of documents that were chunked.
	// Never exceeds DocumentCount.
	ChunkedDocumentCount int `json:"chunked_document_count"`
}

// Usage records the counted units consumed by a single call.
// Zero values mean the unit was not reported by the provider.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens,omitempty"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens,omitempty"`

	// TotalTokens is prompt + completion tokens.
	TotalTokens int `json:"total_tokens,omitempty"`

	// CachedInputTokens is the portion of PromptTokens served from the
	// provider's prompt cache at the cached-read rate.
	CachedInputTokens int `json:"cached_input_tokens,omitempty"`

	// CacheWriteTokens is the portion of PromptTokens written to the
	// provider's prompt cache at the cached-write rate.
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`

	// ImageCount is the number of generated images.
	ImageCount int `json:"image_count,omitempty"`

	// ImageQuality is the requested image quality tier (e.g., "hd").
	ImageQuality string `json:"image_quality,omitempty"`

	// ImageResolution is the requested resolution (e.g., "1024x1024").
	ImageResolution string `json:"image_resolution,omitempty"`

	// VideoDurationSeconds is the generated video duration.
	VideoDurationSeconds float64 `json:"video_duration_seconds,omitempty"`

	// VideoResolution is the generated video resolution (e.g., "720p").
	VideoResolution string `json:"video_resolution,omitempty"`

	// InferenceSteps is the number of diffusion/inference steps used.
	InferenceSteps int `json:"inference_steps,omitempty"`

	// SearchUnits is the number of billed search units.
	SearchUnits int `json:"search_units,omitempty"`

	// SearchMetadata describes the searched documents, when reported.
	SearchMetadata *SearchMetadata `json:"search_metadata,omitempty"`

	// AudioSeconds is the duration of synthesized or transcribed audio.
	AudioSeconds float64 `json:"audio_seconds,omitempty"`

	// AudioCharacters is the character count for per-character TTS billing.
	AudioCharacters int `json:"audio_characters,omitempty"`

	// IsBatch marks usage from a batch-mode request, eligible for the
	// model's batch discount.
	IsBatch bool `json:"is_batch,omitempty"`

	// Estimated is true when token counts were synthesized from text
	// length (~4 chars/token) because the provider did not report usage.
	Estimated bool `json:"estimated,omitempty"`
}

// Request is the canonical, provider-agnostic request shape.
// Kind selects which inputs are meaningful; ValidateRequest rejects
// requests whose kind-specific inputs are missing.
type Request struct {
	// Kind identifies the requested operation.
	Kind RequestKind `json:"kind"`

	// Model is the logical model alias (e.g., "gpt-4o").
	Model string `json:"model"`

	// Messages is the conversation history (chat kinds).
	Messages []Message `json:"messages,omitempty"`

	// Input is the set of texts to embed (embedding kind).
	Input []string `json:"input,omitempty"`

	// Prompt is the generation prompt (image, video, and TTS kinds).
	Prompt string `json:"prompt,omitempty"`

	// Audio is the raw audio payload to transcribe (stt kind).
	Audio []byte `json:"-"`

	// AudioFormat tags the audio payload format (e.g., "mp3", "pcm16").
	AudioFormat string `json:"audio_format,omitempty"`

	// Voice selects the synthesis voice (tts kind).
	Voice string `json:"voice,omitempty"`

	// Temperature controls randomness (0.0 to 2.0).
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP float64 `json:"top_p,omitempty"`

	// N is the number of generations to request (images).
	N int `json:"n,omitempty"`

	// Size is the requested image size (e.g., "1024x1024").
	Size string `json:"size,omitempty"`

	// Quality is the requested image quality tier.
	Quality string `json:"quality,omitempty"`

	// Tools is a list of tools the model can call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice controls which tools may be called: "none", "auto",
	// or a {"type":"function","function":{"name":...}} object.
	ToolChoice interface{} `json:"tool_choice,omitempty"`

	// Stop sequences that halt generation.
	Stop []string `json:"stop,omitempty"`

	// User is an optional end-user identifier for abuse monitoring.
	User string `json:"user,omitempty"`

	// Extensions carries provider-specific parameters that are forwarded
	// verbatim after CleanExtensions validation.
	Extensions map[string]interface{} `json:"extensions,omitempty"`

	// Metadata contains internal request context (key id, request id).
	// It is never sent to the provider.
	Metadata map[string]string `json:"-"`
}

// GeneratedImage is a single image in an image-generation response.
type GeneratedImage struct {
	// URL is a provider-hosted location of the image, if returned.
	URL string `json:"url,omitempty"`

	// B64 is the base64-encoded image payload, if returned inline.
	B64 string `json:"b64_json,omitempty"`

	// RevisedPrompt is the provider's rewritten prompt, if reported.
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Response is the canonical, provider-agnostic response shape.
// Every response carries a Usage record.
type Response struct {
	// Kind mirrors the request kind.
	Kind RequestKind `json:"kind"`

	// ID is the unique response identifier.
	ID string `json:"id"`

	// Model is the model that produced the response.
	Model string `json:"model"`

	// Provider is the provider name that served the request.
	Provider string `json:"provider,omitempty"`

	// Content is the generated text content (chat).
	Content string `json:"content,omitempty"`

	// FinishReason indicates why generation stopped
	// (stop, length, tool_calls, content_filter).
	FinishReason string `json:"finish_reason,omitempty"`

	// ToolCalls contains tool calls made by the model.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Embeddings holds one vector per input (embedding).
	Embeddings [][]float64 `json:"embeddings,omitempty"`

	// Images holds the generated images (image).
	Images []GeneratedImage `json:"images,omitempty"`

	// AudioData is the synthesized audio payload (tts).
	AudioData []byte `json:"-"`

	// AudioFormat tags the synthesized audio format.
	AudioFormat string `json:"audio_format,omitempty"`

	// Text is the transcription text (stt).
	Text string `json:"text,omitempty"`

	// Usage contains the counted units for this call.
	Usage Usage `json:"usage"`

	// Created is the Unix timestamp when the response was created.
	Created int64 `json:"created"`

	// Metadata contains additional response context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// ID is the response identifier (same across all chunks).
	ID string `json:"id"`

	// Model is the model generating the response.
	Model string `json:"model"`

	// Delta is the incremental content in this chunk.
	Delta string `json:"delta"`

	// FinishReason is set in the final chunk.
	FinishReason string `json:"finish_reason,omitempty"`

	// ToolCalls contains incremental tool call information.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage is included in the final chunk when the provider reports it.
	Usage *Usage `json:"usage,omitempty"`

	// Error is set if an error occurred during streaming.
	Error error `json:"-"`

	// Created is the Unix timestamp when the chunk was created.
	Created int64 `json:"created"`
}

// Credential is a reference to an upstream API credential.
// The gateway holds credentials by id only and never persists them.
type Credential struct {
	// ID is the opaque credential identifier.
	ID int

	// ProviderID is the provider this credential belongs to.
	ProviderID int

	// APIKey is the primary secret.
	APIKey string

	// SecretKey is an optional secondary secret (e.g., AWS secret key).
	SecretKey string

	// Region is an optional provider region (e.g., "us-east-1").
	Region string
}

// CredentialStore is the read-only port through which the gateway
// resolves credentials. Implemented by an external collaborator.
type CredentialStore interface {
	// GetCredential returns the credential with the given id.
	GetCredential(id int) (*Credential, error)
}

// AuthCheck is the result of a credential verification probe.
type AuthCheck struct {
	// OK is true when the provider accepted the credential.
	OK bool

	// Reason is a short machine-readable failure reason.
	Reason string

	// Detail is a human-readable failure description.
	Detail string

	// CheckedAt is when the probe ran.
	CheckedAt time.Time
}

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reason constants.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// Tool type constants.
const (
	ToolTypeFunction = "function"
)
