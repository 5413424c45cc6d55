package costs

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/polygate/polygate/pkg/providers"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestCalculateStandardTokens(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:      "gpt-4o",
		Pricing:    PricingStandard,
		InputRate:  decimal.NewFromFloat(3.00),
		OutputRate: decimal.NewFromFloat(15.00),
	}

	got, err := engine.Calculate(&providers.Usage{
		PromptTokens:     1000,
		CompletionTokens: 500,
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	want := mustDecimal(t, "0.0105")
	if !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}
}

func TestCalculateCachedReadDiscount(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:          "claude-sonnet",
		Pricing:        PricingStandard,
		InputRate:      decimal.NewFromFloat(3.00),
		OutputRate:     decimal.NewFromFloat(15.00),
		CachedReadRate: decimal.NewFromFloat(0.30),
	}

	got, err := engine.Calculate(&providers.Usage{
		PromptTokens:      1000,
		CachedInputTokens: 400,
		CompletionTokens:  500,
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// 600 uncached at 3.00, 400 cached at 0.30, 500 output at 15.00.
	want := mustDecimal(t, "0.00942")
	if !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}
}

func TestCalculateTieredTokens(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:   "gemini-pro",
		Pricing: PricingTieredTokens,
		Tiers: []TokenTier{
			{MaxContextTokens: 8000, InputRate: decimal.NewFromInt(1), OutputRate: decimal.NewFromInt(2)},
			{MaxContextTokens: 32000, InputRate: decimal.NewFromInt(2), OutputRate: decimal.NewFromInt(4)},
		},
	}

	tests := []struct {
		name  string
		usage providers.Usage
		want  string
	}{
		{
			name:  "fits first tier",
			usage: providers.Usage{PromptTokens: 5000, CompletionTokens: 1000},
			want:  "0.007",
		},
		{
			name:  "spills to second tier",
			usage: providers.Usage{PromptTokens: 10000, CompletionTokens: 2000},
			want:  "0.028",
		},
		{
			name:  "beyond all tiers uses highest",
			usage: providers.Usage{PromptTokens: 40000, CompletionTokens: 1000},
			want:  "0.084",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Calculate(&tt.usage, info)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if want := mustDecimal(t, tt.want); !got.Equal(want) {
				t.Errorf("Calculate() = %s, want %s", got, want)
			}
		})
	}
}

func TestCalculatePerVideo(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:   "veo",
		Pricing: PricingPerVideo,
		VideoRates: map[string]decimal.Decimal{
			"720p_6":  decimal.NewFromFloat(0.40),
			"1080p_6": decimal.NewFromFloat(0.80),
		},
	}

	got, err := engine.Calculate(&providers.Usage{
		VideoResolution:      "720p",
		VideoDurationSeconds: 6,
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.40"); !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}

	// An unpriced resolution/duration pair is a hard failure, never a
	// silent zero charge.
	_, err = engine.Calculate(&providers.Usage{
		VideoResolution:      "4k",
		VideoDurationSeconds: 6,
	}, info)
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("Calculate() error = %v, want ConfigurationError", err)
	}
	if !strings.Contains(confErr.Message, "4k_6") {
		t.Errorf("ConfigurationError message %q should name the missing key", confErr.Message)
	}
}

func TestCalculatePerSecondVideo(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:           "runway",
		Pricing:         PricingPerSecondVideo,
		VideoSecondRate: decimal.NewFromFloat(0.05),
		VideoResolutionMultipliers: map[string]decimal.Decimal{
			"1080p": decimal.NewFromInt(2),
		},
	}

	got, err := engine.Calculate(&providers.Usage{
		VideoResolution:      "1080p",
		VideoDurationSeconds: 10,
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "1"); !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}
}

func TestCalculateInferenceSteps(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:        "flux",
		Pricing:      PricingInferenceSteps,
		StepRate:     decimal.NewFromFloat(0.001),
		DefaultSteps: 30,
	}

	got, err := engine.Calculate(&providers.Usage{InferenceSteps: 50}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.05"); !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}

	// Missing step count bills the model default.
	got, err = engine.Calculate(&providers.Usage{}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.03"); !got.Equal(want) {
		t.Errorf("Calculate() with default steps = %s, want %s", got, want)
	}
}

func TestCalculatePerImage(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:     "dall-e-3",
		Pricing:   PricingPerImage,
		ImageRate: decimal.NewFromFloat(0.04),
		ImageQualityMultipliers: map[string]decimal.Decimal{
			"hd": decimal.NewFromInt(2),
		},
		ImageResolutionMultipliers: map[string]decimal.Decimal{
			"1792x1024": decimal.NewFromFloat(1.5),
		},
	}

	got, err := engine.Calculate(&providers.Usage{
		ImageCount:      2,
		ImageQuality:    "hd",
		ImageResolution: "1792x1024",
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.24"); !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}
}

func TestCalculateEmbeddingBranch(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:         "text-embedding-3",
		Pricing:       PricingStandard,
		InputRate:     decimal.NewFromFloat(3.00),
		EmbeddingRate: decimal.NewFromFloat(0.02),
	}

	got, err := engine.Calculate(&providers.Usage{PromptTokens: 1_000_000}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.02"); !got.Equal(want) {
		t.Errorf("embedding cost = %s, want %s", got, want)
	}
}

func TestCalculateAudioAddenda(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name  string
		info  ModelCostInfo
		usage providers.Usage
		want  string
	}{
		{
			name: "per minute transcription",
			info: ModelCostInfo{
				Model:           "whisper-1",
				Pricing:         PricingPerMinuteAudio,
				AudioMinuteRate: decimal.NewFromFloat(0.006),
			},
			usage: providers.Usage{AudioSeconds: 90},
			want:  "0.009",
		},
		{
			name: "per thousand characters",
			info: ModelCostInfo{
				Model:         "eleven-turbo",
				Pricing:       PricingPerThousandCharacters,
				CharacterRate: decimal.NewFromFloat(0.30),
			},
			usage: providers.Usage{AudioCharacters: 500},
			want:  "0.15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Calculate(&tt.usage, &tt.info)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if want := mustDecimal(t, tt.want); !got.Equal(want) {
				t.Errorf("Calculate() = %s, want %s", got, want)
			}
		})
	}
}

func TestCalculateSearchUnits(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:          "rerank-3",
		Pricing:        PricingStandard,
		SearchUnitRate: decimal.NewFromInt(2),
	}

	got, err := engine.Calculate(&providers.Usage{SearchUnits: 5}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.01"); !got.Equal(want) {
		t.Errorf("Calculate() = %s, want %s", got, want)
	}
}

func TestCalculateBatchMultiplier(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:           "gpt-4o",
		Pricing:         PricingStandard,
		InputRate:       decimal.NewFromFloat(3.00),
		OutputRate:      decimal.NewFromFloat(15.00),
		BatchSupported:  true,
		BatchMultiplier: decimal.NewFromFloat(0.5),
	}

	got, err := engine.Calculate(&providers.Usage{
		PromptTokens:     1000,
		CompletionTokens: 500,
		IsBatch:          true,
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.00525"); !got.Equal(want) {
		t.Errorf("batch cost = %s, want %s", got, want)
	}

	// Batch usage against a model without batch pricing charges full rate.
	info.BatchSupported = false
	got, err = engine.Calculate(&providers.Usage{
		PromptTokens:     1000,
		CompletionTokens: 500,
		IsBatch:          true,
	}, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := mustDecimal(t, "0.0105"); !got.Equal(want) {
		t.Errorf("unbatched cost = %s, want %s", got, want)
	}
}

func TestCalculateNeverNegative(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:          "gpt-4o",
		Pricing:        PricingStandard,
		InputRate:      decimal.NewFromFloat(3.00),
		OutputRate:     decimal.NewFromFloat(15.00),
		CachedReadRate: decimal.NewFromFloat(0.30),
		CacheWriteRate: decimal.NewFromFloat(3.75),
	}

	usages := []providers.Usage{
		{},
		{PromptTokens: 1},
		{PromptTokens: 1000, CachedInputTokens: 1000},
		{PromptTokens: 1000, CachedInputTokens: 400, CacheWriteTokens: 600, CompletionTokens: 2},
	}
	for _, u := range usages {
		got, err := engine.Calculate(&u, info)
		if err != nil {
			t.Fatalf("Calculate(%+v) error = %v", u, err)
		}
		if got.IsNegative() {
			t.Errorf("Calculate(%+v) = %s, must never be negative", u, got)
		}
	}
}

func TestCalculateRejectsInvalidUsage(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:      "gpt-4o",
		Pricing:    PricingStandard,
		InputRate:  decimal.NewFromFloat(3.00),
		OutputRate: decimal.NewFromFloat(15.00),
	}

	_, err := engine.Calculate(&providers.Usage{PromptTokens: -5}, info)
	var valErr *providers.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Calculate() error = %v, want ValidationError", err)
	}
}

func TestRefundFullMirrorsCharge(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:      "gpt-4o",
		Pricing:    PricingStandard,
		InputRate:  decimal.NewFromFloat(3.00),
		OutputRate: decimal.NewFromFloat(15.00),
	}
	original := &providers.Usage{PromptTokens: 1000, CompletionTokens: 500}

	result, err := engine.Refund(original, original, info)
	if err != nil {
		t.Fatalf("Refund() error = %v", err)
	}
	if result.IsPartial {
		t.Error("full refund flagged partial")
	}
	if len(result.ValidationMessages) != 0 {
		t.Errorf("full refund produced messages: %v", result.ValidationMessages)
	}
	if want := mustDecimal(t, "0.0105"); !result.Amount.Equal(want) {
		t.Errorf("Refund() amount = %s, want %s", result.Amount, want)
	}
}

func TestRefundPartialClampsExceededFields(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:      "gpt-4o",
		Pricing:    PricingStandard,
		InputRate:  decimal.NewFromFloat(3.00),
		OutputRate: decimal.NewFromFloat(15.00),
	}
	original := &providers.Usage{PromptTokens: 1000, CompletionTokens: 500}
	refund := &providers.Usage{PromptTokens: 2000, CompletionTokens: 500}

	result, err := engine.Refund(original, refund, info)
	if err != nil {
		t.Fatalf("Refund() error = %v", err)
	}
	if !result.IsPartial {
		t.Error("exceeded refund field must flag partial")
	}

	wantMsg := "Refund prompt tokens (2000) cannot exceed original (1000)"
	found := false
	for _, msg := range result.ValidationMessages {
		if msg == wantMsg {
			found = true
		}
	}
	if !found {
		t.Errorf("validation messages %v missing %q", result.ValidationMessages, wantMsg)
	}

	// The clamped refund equals the full original charge.
	if want := mustDecimal(t, "0.0105"); !result.Amount.Equal(want) {
		t.Errorf("clamped refund = %s, want %s", result.Amount, want)
	}
}

func TestRefundNeverExceedsOriginalCharge(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:          "claude-sonnet",
		Pricing:        PricingStandard,
		InputRate:      decimal.NewFromFloat(3.00),
		OutputRate:     decimal.NewFromFloat(15.00),
		CachedReadRate: decimal.NewFromFloat(0.30),
	}
	original := &providers.Usage{
		PromptTokens:      1000,
		CachedInputTokens: 400,
		CompletionTokens:  500,
	}

	charge, err := engine.Calculate(original, info)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	refunds := []providers.Usage{
		{PromptTokens: 500, CachedInputTokens: 200, CompletionTokens: 100},
		{PromptTokens: 1000, CachedInputTokens: 400, CompletionTokens: 500},
		{PromptTokens: 5000, CachedInputTokens: 900, CompletionTokens: 9000},
	}
	for _, r := range refunds {
		result, err := engine.Refund(original, &r, info)
		if err != nil {
			t.Fatalf("Refund(%+v) error = %v", r, err)
		}
		if result.Amount.GreaterThan(charge) {
			t.Errorf("Refund(%+v) = %s exceeds original charge %s", r, result.Amount, charge)
		}
	}
}

func TestRefundRejectsNegativeFields(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{
		Model:      "gpt-4o",
		Pricing:    PricingStandard,
		InputRate:  decimal.NewFromFloat(3.00),
		OutputRate: decimal.NewFromFloat(15.00),
	}
	original := &providers.Usage{PromptTokens: 1000, CompletionTokens: 500}

	_, err := engine.Refund(original, &providers.Usage{PromptTokens: -100}, info)
	var valErr *providers.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Refund() error = %v, want ValidationError", err)
	}
}

func TestCalculateUnknownPricingModel(t *testing.T) {
	engine := NewEngine()
	info := &ModelCostInfo{Model: "mystery", Pricing: "per_dream"}

	_, err := engine.Calculate(&providers.Usage{PromptTokens: 1}, info)
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("Calculate() error = %v, want ConfigurationError", err)
	}
}
