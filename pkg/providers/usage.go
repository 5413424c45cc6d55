package providers

import "fmt"

// Inference step bounds accepted by UsageValidator.
const (
	minInferenceSteps = 1
	maxInferenceSteps = 1000
)

// ValidateUsage enforces the cross-field invariants of a Usage record
// before it reaches the cost engine:
//
//   - total = prompt + completion when all three are present
//   - cached-input + cache-write tokens never exceed prompt tokens
//   - all counts are non-negative
//   - inference steps, when present, are within [1, 1000]
//   - image count, video duration, and search units are positive when present
//   - search metadata chunked documents never exceed total documents
//
// All violations are collected; the returned ValidationError lists every
// message. Returns nil when the record is well formed.
func ValidateUsage(u *Usage) error {
	if u == nil {
		return &ValidationError{Field: "usage", Messages: []string{"usage cannot be nil"}}
	}

	var messages []string

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"prompt_tokens", float64(u.PromptTokens)},
		{"completion_tokens", float64(u.CompletionTokens)},
		{"total_tokens", float64(u.TotalTokens)},
		{"cached_input_tokens", float64(u.CachedInputTokens)},
		{"cache_write_tokens", float64(u.CacheWriteTokens)},
		{"image_count", float64(u.ImageCount)},
		{"video_duration_seconds", u.VideoDurationSeconds},
		{"search_units", float64(u.SearchUnits)},
		{"audio_seconds", u.AudioSeconds},
		{"audio_characters", float64(u.AudioCharacters)},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			messages = append(messages, fmt.Sprintf("%s must not be negative, got %v", f.name, f.value))
		}
	}

	if u.TotalTokens > 0 && (u.PromptTokens > 0 || u.CompletionTokens > 0) {
		if u.TotalTokens != u.PromptTokens+u.CompletionTokens {
			messages = append(messages, fmt.Sprintf(
				"total_tokens (%d) must equal prompt_tokens (%d) + completion_tokens (%d)",
				u.TotalTokens, u.PromptTokens, u.CompletionTokens))
		}
	}

	if u.CachedInputTokens+u.CacheWriteTokens > u.PromptTokens {
		messages = append(messages, fmt.Sprintf(
			"cached_input_tokens (%d) + cache_write_tokens (%d) must not exceed prompt_tokens (%d)",
			u.CachedInputTokens, u.CacheWriteTokens, u.PromptTokens))
	}

	if u.InferenceSteps != 0 && (u.InferenceSteps < minInferenceSteps || u.InferenceSteps > maxInferenceSteps) {
		messages = append(messages, fmt.Sprintf(
			"inference_steps must be within [%d, %d], got %d",
			minInferenceSteps, maxInferenceSteps, u.InferenceSteps))
	}

	if u.SearchMetadata != nil {
		if u.SearchMetadata.DocumentCount < 0 {
			messages = append(messages, fmt.Sprintf(
				"search document_count must not be negative, got %d", u.SearchMetadata.DocumentCount))
		}
		if u.SearchMetadata.ChunkedDocumentCount > u.SearchMetadata.DocumentCount {
			messages = append(messages, fmt.Sprintf(
				"chunked_document_count (%d) must not exceed document_count (%d)",
				u.SearchMetadata.ChunkedDocumentCount, u.SearchMetadata.DocumentCount))
		}
	}

	if len(messages) > 0 {
		return &ValidationError{Field: "usage", Messages: messages}
	}
	return nil
}
