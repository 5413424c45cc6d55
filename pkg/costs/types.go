package costs

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingModel selects which arithmetic the engine applies to a usage
// record. The tag determines both the required ModelCostInfo payload and
// the formula.
type PricingModel string

// Supported pricing models.
const (
	// PricingStandard is per-token pricing with cached-read/write rates
	// and image/video/search/step addenda.
	PricingStandard PricingModel = "standard"

	// PricingPerVideo prices whole videos from a rate table keyed by
	// "{resolution}_{duration-seconds}". A missing key is a hard failure.
	PricingPerVideo PricingModel = "per_video"

	// PricingPerSecondVideo prices video by duration with an optional
	// resolution multiplier.
	PricingPerSecondVideo PricingModel = "per_second_video"

	// PricingInferenceSteps prices by diffusion/inference step count.
	PricingInferenceSteps PricingModel = "inference_steps"

	// PricingTieredTokens selects per-token rates from context-size tiers.
	PricingTieredTokens PricingModel = "tiered_tokens"

	// PricingPerImage prices by image count with quality and resolution
	// multipliers.
	PricingPerImage PricingModel = "per_image"

	// PricingPerMinuteAudio prices synthesized/transcribed audio by the
	// minute, delegating to the standard audio path.
	PricingPerMinuteAudio PricingModel = "per_minute_audio"

	// PricingPerThousandCharacters prices TTS by character count,
	// delegating to the standard audio path.
	PricingPerThousandCharacters PricingModel = "per_thousand_characters"
)

// TokenTier is one context-size pricing tier. Rates are per million
// tokens.
type TokenTier struct {
	// MaxContextTokens is the largest prompt+completion size this tier
	// covers.
	MaxContextTokens int

	// InputRate is the prompt-token rate per million tokens.
	InputRate decimal.Decimal

	// OutputRate is the completion-token rate per million tokens.
	OutputRate decimal.Decimal
}

// ModelCostInfo is the pricing data for one logical model.
// Token rates are per million tokens; search-unit and character rates are
// per thousand units as indicated.
type ModelCostInfo struct {
	// Model is the logical model alias this pricing applies to.
	Model string

	// Pricing selects the pricing model.
	Pricing PricingModel

	// InputRate is the prompt-token rate per 1M tokens.
	InputRate decimal.Decimal

	// OutputRate is the completion-token rate per 1M tokens.
	OutputRate decimal.Decimal

	// EmbeddingRate is the embedding-token rate per 1M tokens. Used on
	// the standard path when no completion tokens are present.
	EmbeddingRate decimal.Decimal

	// CachedReadRate is the cached-input-token rate per 1M tokens.
	CachedReadRate decimal.Decimal

	// CacheWriteRate is the cache-write-token rate per 1M tokens.
	CacheWriteRate decimal.Decimal

	// ImageRate is the per-image base cost.
	ImageRate decimal.Decimal

	// ImageQualityMultipliers scales ImageRate by quality tier.
	ImageQualityMultipliers map[string]decimal.Decimal

	// ImageResolutionMultipliers scales ImageRate by resolution.
	ImageResolutionMultipliers map[string]decimal.Decimal

	// VideoSecondRate is the per-second video cost.
	VideoSecondRate decimal.Decimal

	// VideoResolutionMultipliers scales VideoSecondRate by resolution.
	VideoResolutionMultipliers map[string]decimal.Decimal

	// VideoRates is the whole-video rate table for PricingPerVideo,
	// keyed "{resolution}_{duration-seconds}".
	VideoRates map[string]decimal.Decimal

	// SearchUnitRate is the cost per 1000 search units.
	SearchUnitRate decimal.Decimal

	// StepRate is the cost per inference step.
	StepRate decimal.Decimal

	// DefaultSteps is used by PricingInferenceSteps when usage does not
	// report a step count.
	DefaultSteps int

	// AudioMinuteRate is the cost per minute of audio.
	AudioMinuteRate decimal.Decimal

	// CharacterRate is the cost per 1000 characters.
	CharacterRate decimal.Decimal

	// Tiers is the tier table for PricingTieredTokens, ascending by
	// MaxContextTokens.
	Tiers []TokenTier

	// BatchSupported reports whether the model offers batch pricing.
	BatchSupported bool

	// BatchMultiplier scales the total for batch usage (e.g., 0.5).
	BatchMultiplier decimal.Decimal
}

// ModelCostStore is the read-only port through which the engine resolves
// pricing data. Implemented by an external collaborator.
type ModelCostStore interface {
	// GetModelCost returns pricing for the given logical model.
	GetModelCost(model string) (*ModelCostInfo, error)
}

// ConfigurationError reports missing or inconsistent pricing data.
// Fatal to the calculation.
type ConfigurationError struct {
	// Model is the logical model whose pricing is broken.
	Model string

	// Field is the pricing field at fault.
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("model %q pricing configuration error for %q: %s", e.Model, e.Field, e.Message)
}

// Breakdown itemizes a computed amount by charge component.
type Breakdown struct {
	// Input is the prompt-token component (cached rates included).
	Input decimal.Decimal

	// Output is the completion-token component.
	Output decimal.Decimal

	// Embedding is the embedding-token component.
	Embedding decimal.Decimal

	// Image is the image-generation component.
	Image decimal.Decimal

	// Video is the video-generation component.
	Video decimal.Decimal

	// SearchUnit is the search-unit component.
	SearchUnit decimal.Decimal

	// InferenceStep is the inference-step component.
	InferenceStep decimal.Decimal

	// Audio is the audio duration/character component.
	Audio decimal.Decimal
}

// Total sums all components.
func (b Breakdown) Total() decimal.Decimal {
	return b.Input.
		Add(b.Output).
		Add(b.Embedding).
		Add(b.Image).
		Add(b.Video).
		Add(b.SearchUnit).
		Add(b.InferenceStep).
		Add(b.Audio)
}

// RefundResult is the outcome of a refund calculation.
type RefundResult struct {
	// Amount is the refunded total.
	Amount decimal.Decimal

	// Breakdown itemizes the refund.
	Breakdown Breakdown

	// IsPartial is true when any refund field exceeded its original and
	// was clamped.
	IsPartial bool

	// ValidationMessages lists every clamped or rejected field.
	// Non-empty whenever IsPartial is true.
	ValidationMessages []string
}
