package config

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/polygate/polygate/pkg/costs"
)

// PricingStore serves the cost engine from the configuration's pricing
// table. Safe for concurrent use; Update swaps the table atomically so
// a config reload never disturbs in-flight calculations.
type PricingStore struct {
	mu     sync.RWMutex
	models map[string]*costs.ModelCostInfo
}

// NewPricingStore builds a store from the configuration's pricing
// table.
func NewPricingStore(cfg *Config) (*PricingStore, error) {
	store := &PricingStore{}
	if err := store.Update(cfg.Pricing); err != nil {
		return nil, err
	}
	return store, nil
}

// Update replaces the pricing table. The swap happens only after the
// whole table parses, a bad table leaves the store unchanged.
func (s *PricingStore) Update(entries map[string]PricingEntry) error {
	models := make(map[string]*costs.ModelCostInfo, len(entries))
	for model, entry := range entries {
		info, err := entry.toCostInfo(model)
		if err != nil {
			return fmt.Errorf("pricing %q: %w", model, err)
		}
		models[model] = info
	}

	s.mu.Lock()
	s.models = models
	s.mu.Unlock()
	return nil
}

// GetModelCost returns pricing for the given logical model. Implements
// costs.ModelCostStore.
func (s *PricingStore) GetModelCost(model string) (*costs.ModelCostInfo, error) {
	s.mu.RLock()
	info, ok := s.models[model]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no pricing configured for model %q", model)
	}
	return info, nil
}

// Len reports the number of priced models.
func (s *PricingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

// toCostInfo parses the YAML entry's decimal strings into engine
// pricing data.
func (e PricingEntry) toCostInfo(model string) (*costs.ModelCostInfo, error) {
	info := &costs.ModelCostInfo{
		Model:          model,
		Pricing:        costs.PricingModel(e.Pricing),
		DefaultSteps:   e.DefaultSteps,
		BatchSupported: e.BatchSupported,
	}

	scalars := []struct {
		field string
		raw   string
		dst   *decimal.Decimal
	}{
		{"input_rate", e.InputRate, &info.InputRate},
		{"output_rate", e.OutputRate, &info.OutputRate},
		{"embedding_rate", e.EmbeddingRate, &info.EmbeddingRate},
		{"cached_read_rate", e.CachedReadRate, &info.CachedReadRate},
		{"cache_write_rate", e.CacheWriteRate, &info.CacheWriteRate},
		{"image_rate", e.ImageRate, &info.ImageRate},
		{"video_second_rate", e.VideoSecondRate, &info.VideoSecondRate},
		{"search_unit_rate", e.SearchUnitRate, &info.SearchUnitRate},
		{"step_rate", e.StepRate, &info.StepRate},
		{"audio_minute_rate", e.AudioMinuteRate, &info.AudioMinuteRate},
		{"character_rate", e.CharacterRate, &info.CharacterRate},
		{"batch_multiplier", e.BatchMultiplier, &info.BatchMultiplier},
	}
	for _, s := range scalars {
		value, err := parseRate(s.field, s.raw)
		if err != nil {
			return nil, err
		}
		*s.dst = value
	}

	var err error
	if info.ImageQualityMultipliers, err = parseRateMap("image_quality_multipliers", e.ImageQualityMultipliers); err != nil {
		return nil, err
	}
	if info.ImageResolutionMultipliers, err = parseRateMap("image_resolution_multipliers", e.ImageResolutionMultipliers); err != nil {
		return nil, err
	}
	if info.VideoResolutionMultipliers, err = parseRateMap("video_resolution_multipliers", e.VideoResolutionMultipliers); err != nil {
		return nil, err
	}
	if info.VideoRates, err = parseRateMap("video_rates", e.VideoRates); err != nil {
		return nil, err
	}

	for i, tier := range e.Tiers {
		inputRate, err := parseRate(fmt.Sprintf("tiers[%d].input_rate", i), tier.InputRate)
		if err != nil {
			return nil, err
		}
		outputRate, err := parseRate(fmt.Sprintf("tiers[%d].output_rate", i), tier.OutputRate)
		if err != nil {
			return nil, err
		}
		info.Tiers = append(info.Tiers, costs.TokenTier{
			MaxContextTokens: tier.MaxContextTokens,
			InputRate:        inputRate,
			OutputRate:       outputRate,
		})
	}

	return info, nil
}

func parseRate(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: negative rate %s", field, raw)
	}
	return value, nil
}

func parseRateMap(field string, raw map[string]string) (map[string]decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	parsed := make(map[string]decimal.Decimal, len(raw))
	for key, rawValue := range raw {
		value, err := parseRate(fmt.Sprintf("%s[%s]", field, key), rawValue)
		if err != nil {
			return nil, err
		}
		parsed[key] = value
	}
	return parsed, nil
}
