package costs

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/polygate/polygate/pkg/providers"
)

var (
	perMillion  = decimal.NewFromInt(1_000_000)
	perThousand = decimal.NewFromInt(1_000)
	sixty       = decimal.NewFromInt(60)
)

// Engine computes charges and refunds from usage records and pricing
// data. It is stateless and safe to share; every invocation consumes an
// immutable ModelCostInfo.
//
// All intermediate arithmetic uses decimal values, never binary floats.
type Engine struct{}

// NewEngine creates a cost engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Calculate computes the charge for a usage record under the given
// pricing. The usage record is validated first; a validation failure is
// fatal to the calculation. The result is never negative.
func (e *Engine) Calculate(usage *providers.Usage, info *ModelCostInfo) (decimal.Decimal, error) {
	bd, err := e.CalculateBreakdown(usage, info)
	if err != nil {
		return decimal.Zero, err
	}
	return e.applyBatch(bd.Total(), usage, info), nil
}

// CalculateBreakdown computes the itemized charge for a usage record.
// The batch discount is not applied to the breakdown; Calculate applies
// it to the total.
func (e *Engine) CalculateBreakdown(usage *providers.Usage, info *ModelCostInfo) (Breakdown, error) {
	if info == nil {
		return Breakdown{}, &ConfigurationError{Field: "pricing", Message: "model cost info is required"}
	}
	if err := providers.ValidateUsage(usage); err != nil {
		return Breakdown{}, err
	}

	switch info.Pricing {
	case PricingStandard, PricingPerMinuteAudio, PricingPerThousandCharacters, "":
		return e.standardBreakdown(usage, info), nil
	case PricingPerVideo:
		return e.perVideoBreakdown(usage, info)
	case PricingPerSecondVideo:
		return e.perSecondVideoBreakdown(usage, info), nil
	case PricingInferenceSteps:
		return e.inferenceStepsBreakdown(usage, info), nil
	case PricingTieredTokens:
		return e.tieredBreakdown(usage, info)
	case PricingPerImage:
		return e.perImageBreakdown(usage, info), nil
	default:
		return Breakdown{}, &ConfigurationError{
			Model:   info.Model,
			Field:   "pricing",
			Message: fmt.Sprintf("unknown pricing model %q", info.Pricing),
		}
	}
}

// applyBatch multiplies the total by the batch multiplier when the usage
// is batched and the model supports batching.
func (e *Engine) applyBatch(total decimal.Decimal, usage *providers.Usage, info *ModelCostInfo) decimal.Decimal {
	if usage.IsBatch && info.BatchSupported && !info.BatchMultiplier.IsZero() {
		return total.Mul(info.BatchMultiplier)
	}
	return total
}

// standardBreakdown implements per-token pricing with cached-token rates
// and the uniform addenda (image, video, search units, steps, audio).
func (e *Engine) standardBreakdown(u *providers.Usage, info *ModelCostInfo) Breakdown {
	var bd Breakdown

	prompt := decimal.NewFromInt(int64(u.PromptTokens))
	completion := decimal.NewFromInt(int64(u.CompletionTokens))
	cachedRead := decimal.NewFromInt(int64(u.CachedInputTokens))
	cacheWrite := decimal.NewFromInt(int64(u.CacheWriteTokens))

	if u.CompletionTokens == 0 && !info.EmbeddingRate.IsZero() && u.PromptTokens > 0 {
		// Embedding branch: the whole prompt is billed at the embedding rate.
		bd.Embedding = prompt.Mul(info.EmbeddingRate).Div(perMillion)
	} else {
		uncached := prompt.Sub(cachedRead).Sub(cacheWrite)
		bd.Input = uncached.Mul(info.InputRate).
			Add(cachedRead.Mul(info.CachedReadRate)).
			Add(cacheWrite.Mul(info.CacheWriteRate)).
			Div(perMillion)
		bd.Output = completion.Mul(info.OutputRate).Div(perMillion)
	}

	e.applyAddenda(&bd, u, info)
	return bd
}

// applyAddenda adds the uniform image/video/search/step/audio components.
func (e *Engine) applyAddenda(bd *Breakdown, u *providers.Usage, info *ModelCostInfo) {
	if u.ImageCount > 0 && !info.ImageRate.IsZero() {
		cost := decimal.NewFromInt(int64(u.ImageCount)).Mul(info.ImageRate)
		if m, ok := info.ImageQualityMultipliers[u.ImageQuality]; ok {
			cost = cost.Mul(m)
		}
		bd.Image = bd.Image.Add(cost)
	}

	if u.VideoDurationSeconds > 0 && !info.VideoSecondRate.IsZero() {
		cost := decimal.NewFromFloat(u.VideoDurationSeconds).Mul(info.VideoSecondRate)
		if m, ok := info.VideoResolutionMultipliers[u.VideoResolution]; ok {
			cost = cost.Mul(m)
		}
		bd.Video = bd.Video.Add(cost)
	}

	if u.SearchUnits > 0 && !info.SearchUnitRate.IsZero() {
		bd.SearchUnit = bd.SearchUnit.Add(
			decimal.NewFromInt(int64(u.SearchUnits)).Mul(info.SearchUnitRate).Div(perThousand))
	}

	if u.InferenceSteps > 0 && !info.StepRate.IsZero() {
		bd.InferenceStep = bd.InferenceStep.Add(
			decimal.NewFromInt(int64(u.InferenceSteps)).Mul(info.StepRate))
	}

	if u.AudioSeconds > 0 && !info.AudioMinuteRate.IsZero() {
		bd.Audio = bd.Audio.Add(
			decimal.NewFromFloat(u.AudioSeconds).Div(sixty).Mul(info.AudioMinuteRate))
	}

	if u.AudioCharacters > 0 && !info.CharacterRate.IsZero() {
		bd.Audio = bd.Audio.Add(
			decimal.NewFromInt(int64(u.AudioCharacters)).Mul(info.CharacterRate).Div(perThousand))
	}
}

// perVideoBreakdown prices whole videos from the rate table.
// A missing "{resolution}_{seconds}" key is a hard configuration failure.
func (e *Engine) perVideoBreakdown(u *providers.Usage, info *ModelCostInfo) (Breakdown, error) {
	key := VideoRateKey(u.VideoResolution, u.VideoDurationSeconds)
	rate, ok := info.VideoRates[key]
	if !ok {
		return Breakdown{}, &ConfigurationError{
			Model:   info.Model,
			Field:   "video_rates",
			Message: fmt.Sprintf("no rate for %q", key),
		}
	}
	return Breakdown{Video: rate}, nil
}

// VideoRateKey builds the "{resolution}_{duration-seconds}" rate table
// key, rounding the duration to the nearest whole second.
func VideoRateKey(resolution string, durationSeconds float64) string {
	return fmt.Sprintf("%s_%d", resolution, int(math.Round(durationSeconds)))
}

// perSecondVideoBreakdown prices video by duration with an optional
// resolution multiplier.
func (e *Engine) perSecondVideoBreakdown(u *providers.Usage, info *ModelCostInfo) Breakdown {
	cost := decimal.NewFromFloat(u.VideoDurationSeconds).Mul(info.VideoSecondRate)
	if m, ok := info.VideoResolutionMultipliers[u.VideoResolution]; ok {
		cost = cost.Mul(m)
	}
	return Breakdown{Video: cost}
}

// inferenceStepsBreakdown prices by step count, falling back to the
// model's default step count when usage does not report one.
func (e *Engine) inferenceStepsBreakdown(u *providers.Usage, info *ModelCostInfo) Breakdown {
	steps := u.InferenceSteps
	if steps == 0 {
		steps = info.DefaultSteps
	}
	return Breakdown{
		InferenceStep: decimal.NewFromInt(int64(steps)).Mul(info.StepRate),
	}
}

// tieredBreakdown selects the tier with the smallest MaxContextTokens
// covering prompt+completion, falling back to the highest tier, and
// applies its per-token rates.
func (e *Engine) tieredBreakdown(u *providers.Usage, info *ModelCostInfo) (Breakdown, error) {
	if len(info.Tiers) == 0 {
		return Breakdown{}, &ConfigurationError{
			Model:   info.Model,
			Field:   "tiers",
			Message: "tiered pricing requires at least one tier",
		}
	}

	contextSize := u.PromptTokens + u.CompletionTokens
	selected := info.Tiers[len(info.Tiers)-1]
	for _, tier := range info.Tiers {
		if tier.MaxContextTokens >= contextSize {
			if selected.MaxContextTokens < contextSize || tier.MaxContextTokens < selected.MaxContextTokens {
				selected = tier
			}
		}
	}

	return Breakdown{
		Input:  decimal.NewFromInt(int64(u.PromptTokens)).Mul(selected.InputRate).Div(perMillion),
		Output: decimal.NewFromInt(int64(u.CompletionTokens)).Mul(selected.OutputRate).Div(perMillion),
	}, nil
}

// perImageBreakdown prices by image count with quality and resolution
// multipliers. A missing count bills a single image.
func (e *Engine) perImageBreakdown(u *providers.Usage, info *ModelCostInfo) Breakdown {
	count := u.ImageCount
	if count == 0 {
		count = 1
	}
	cost := decimal.NewFromInt(int64(count)).Mul(info.ImageRate)
	if m, ok := info.ImageQualityMultipliers[u.ImageQuality]; ok {
		cost = cost.Mul(m)
	}
	if m, ok := info.ImageResolutionMultipliers[u.ImageResolution]; ok {
		cost = cost.Mul(m)
	}
	return Breakdown{Image: cost}
}
