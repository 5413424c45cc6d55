package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxFunctionNameLength is the longest function name providers accept.
const maxFunctionNameLength = 64

// ValidateRequest checks the cross-provider invariants of a canonical
// request before dispatch: a model must be named and the kind-specific
// input must be present. Tool schemas, when present, must be well
// formed. Extensions are cleaned in place: null values are dropped and
// negative count-like values are rejected.
func ValidateRequest(req *Request) error {
	if req == nil {
		return &InvalidRequestError{Field: "request", Message: "request cannot be nil"}
	}
	if req.Model == "" {
		return &InvalidRequestError{Field: "model", Message: "model is required"}
	}

	switch req.Kind {
	case KindChat, KindChatStream:
		if len(req.Messages) == 0 {
			return &InvalidRequestError{Field: "messages", Message: "at least one message is required"}
		}
		for i, msg := range req.Messages {
			if err := validateMessage(i, &msg); err != nil {
				return err
			}
		}
	case KindEmbedding:
		if len(req.Input) == 0 {
			return &InvalidRequestError{Field: "input", Message: "at least one input is required"}
		}
	case KindImage, KindVideo:
		if req.Prompt == "" {
			return &InvalidRequestError{Field: "prompt", Message: "prompt is required"}
		}
	case KindTTS:
		if req.Prompt == "" {
			return &InvalidRequestError{Field: "prompt", Message: "text to synthesize is required"}
		}
	case KindSTT:
		if len(req.Audio) == 0 {
			return &InvalidRequestError{Field: "audio", Message: "audio payload is required"}
		}
	case KindRealtime:
		// Realtime configuration is validated by the session translator.
	default:
		return &InvalidRequestError{Field: "kind", Message: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}

	for i, tool := range req.Tools {
		if tool.Type != ToolTypeFunction {
			return &InvalidRequestError{
				Field:   fmt.Sprintf("tools[%d].type", i),
				Message: fmt.Sprintf("unsupported tool type %q", tool.Type),
			}
		}
		if err := ValidateFunctionName(tool.Function.Name); err != nil {
			return &InvalidRequestError{
				Field:   fmt.Sprintf("tools[%d].function.name", i),
				Message: err.Error(),
			}
		}
	}

	cleaned, err := CleanExtensions(req.Extensions)
	if err != nil {
		return err
	}
	req.Extensions = cleaned

	return nil
}

// validateMessage checks a single conversation message.
func validateMessage(index int, msg *Message) error {
	switch msg.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return &InvalidRequestError{
			Field:   fmt.Sprintf("messages[%d].role", index),
			Message: fmt.Sprintf("unknown role %q", msg.Role),
		}
	}

	for j, tc := range msg.ToolCalls {
		if err := ValidateFunctionName(tc.Function.Name); err != nil {
			return &InvalidRequestError{
				Field:   fmt.Sprintf("messages[%d].tool_calls[%d].function.name", index, j),
				Message: err.Error(),
			}
		}
		if tc.Function.Arguments != "" && !json.Valid([]byte(tc.Function.Arguments)) {
			return &InvalidRequestError{
				Field:   fmt.Sprintf("messages[%d].tool_calls[%d].function.arguments", index, j),
				Message: "arguments must be valid JSON",
			}
		}
	}

	return nil
}

// ValidateFunctionName accepts a name iff it is non-empty, at most 64
// characters, and every character matches [A-Za-z0-9_-].
func ValidateFunctionName(name string) error {
	if name == "" {
		return fmt.Errorf("function name is required")
	}
	if len(name) > maxFunctionNameLength {
		return fmt.Errorf("function name exceeds %d characters", maxFunctionNameLength)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return fmt.Errorf("function name contains invalid character %q", r)
		}
	}
	return nil
}

// countLikeSuffixes marks extension keys whose values must be non-negative.
var countLikeSuffixes = []string{
	"tokens", "steps", "width", "height", "seed", "count", "n",
}

// CleanExtensions returns a copy of the extension map with null values
// removed. Keys whose names imply a non-negative count reject negative
// numeric values. A nil map returns nil.
func CleanExtensions(ext map[string]interface{}) (map[string]interface{}, error) {
	if ext == nil {
		return nil, nil
	}

	cleaned := make(map[string]interface{}, len(ext))
	for key, value := range ext {
		if value == nil {
			continue
		}
		if isCountLike(key) {
			if n, ok := numericValue(value); ok && n < 0 {
				return nil, &InvalidRequestError{
					Field:   key,
					Message: fmt.Sprintf("parameter %q must not be negative", key),
				}
			}
		}
		cleaned[key] = value
	}
	return cleaned, nil
}

// isCountLike reports whether an extension key names a countable quantity.
func isCountLike(key string) bool {
	lower := strings.ToLower(key)
	for _, suffix := range countLikeSuffixes {
		if lower == suffix || strings.HasSuffix(lower, "_"+suffix) {
			return true
		}
	}
	return false
}

// numericValue extracts a float from the JSON-decoded value forms.
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// EstimateTokens synthesizes a token count from text length using the
// 4-characters-per-token heuristic. Used when a provider reports no usage.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// EstimateMessageTokens estimates prompt tokens across messages.
func EstimateMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
