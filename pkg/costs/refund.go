package costs

import (
	"fmt"

	"github.com/polygate/polygate/pkg/providers"
)

// Refund computes the amount to return for a refund usage record under
// the same pricing that produced the original charge. No refund field may
// exceed its counterpart in the original usage; exceeded fields are
// clamped to the original value, the result is flagged partial, and one
// validation message is recorded per clamped field. Negative fields are
// rejected outright.
func (e *Engine) Refund(original, refund *providers.Usage, info *ModelCostInfo) (*RefundResult, error) {
	if original == nil || refund == nil {
		return nil, &providers.ValidationError{
			Field:    "usage",
			Messages: []string{"refund requires both the original and refund usage records"},
		}
	}
	if err := providers.ValidateUsage(refund); err != nil {
		return nil, err
	}

	clamped := *refund
	var messages []string

	clamped.PromptTokens = clampField("prompt tokens", refund.PromptTokens, original.PromptTokens, &messages)
	clamped.CompletionTokens = clampField("completion tokens", refund.CompletionTokens, original.CompletionTokens, &messages)
	clamped.CachedInputTokens = clampField("cached input tokens", refund.CachedInputTokens, original.CachedInputTokens, &messages)
	clamped.CacheWriteTokens = clampField("cache write tokens", refund.CacheWriteTokens, original.CacheWriteTokens, &messages)
	clamped.ImageCount = clampField("image count", refund.ImageCount, original.ImageCount, &messages)
	clamped.InferenceSteps = clampField("inference steps", refund.InferenceSteps, original.InferenceSteps, &messages)
	clamped.SearchUnits = clampField("search units", refund.SearchUnits, original.SearchUnits, &messages)
	clamped.AudioCharacters = clampField("audio characters", refund.AudioCharacters, original.AudioCharacters, &messages)

	if refund.VideoDurationSeconds > original.VideoDurationSeconds {
		messages = append(messages, fmt.Sprintf(
			"Refund video duration seconds (%g) cannot exceed original (%g)",
			refund.VideoDurationSeconds, original.VideoDurationSeconds))
		clamped.VideoDurationSeconds = original.VideoDurationSeconds
	}
	if refund.AudioSeconds > original.AudioSeconds {
		messages = append(messages, fmt.Sprintf(
			"Refund audio seconds (%g) cannot exceed original (%g)",
			refund.AudioSeconds, original.AudioSeconds))
		clamped.AudioSeconds = original.AudioSeconds
	}

	// Keep the token total consistent after clamping.
	if clamped.TotalTokens != 0 {
		clamped.TotalTokens = clamped.PromptTokens + clamped.CompletionTokens
	}
	clamped.IsBatch = original.IsBatch

	bd, err := e.CalculateBreakdown(&clamped, info)
	if err != nil {
		return nil, err
	}

	return &RefundResult{
		Amount:             e.applyBatch(bd.Total(), &clamped, info),
		Breakdown:          bd,
		IsPartial:          len(messages) > 0,
		ValidationMessages: messages,
	}, nil
}

// clampField limits a refund count to its original and records a
// validation message when it exceeds it.
func clampField(name string, refund, original int, messages *[]string) int {
	if refund > original {
		*messages = append(*messages, fmt.Sprintf(
			"Refund %s (%d) cannot exceed original (%d)", name, refund, original))
		return original
	}
	return refund
}
