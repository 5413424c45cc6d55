package strategies

import (
	"sync"

	"github.com/polygate/polygate/pkg/providers"
	"github.com/polygate/polygate/pkg/routing"
)

// languageFamilies groups language codes into the families the affinity
// table is keyed by.
var languageFamilies = map[string]string{
	"en": "latin", "de": "latin", "fr": "latin", "es": "latin",
	"it": "latin", "pt": "latin", "nl": "latin", "pl": "latin",
	"zh": "cjk", "ja": "cjk", "ko": "cjk",
	"ar": "rtl", "he": "rtl", "fa": "rtl",
	"ru": "cyrillic", "uk": "cyrillic", "bg": "cyrillic",
	"hi": "indic", "bn": "indic", "ta": "indic",
}

// languageFamily maps a language code to its family, defaulting to
// latin.
func languageFamily(code string) string {
	if family, ok := languageFamilies[code]; ok {
		return family
	}
	return "latin"
}

// emaAlpha is the smoothing factor for learned per-language success.
const emaAlpha = 0.3

// Component weights of the language score.
const (
	weightAffinity    = 0.4
	weightLanguageEMA = 0.4
	weightRecent      = 0.2
)

// LanguageStrategy routes by language fit. Each deployment carries a
// configured affinity per language family; the strategy layers learned
// per-language success rates (exponential moving average) and overall
// recent reliability on top. Higher scores win. The request language
// comes from the "language" metadata key, defaulting to "en".
type LanguageStrategy struct {
	mu sync.RWMutex

	// affinity maps deployment name to family affinity (0..1).
	affinity map[string]map[string]float64

	// state holds learned per-provider success, overall and by
	// language.
	state map[string]*languageState
}

// languageState is the learned record for one provider.
type languageState struct {
	total     int64
	succeeded int64

	// byLanguage is the EMA of per-language success (0..1).
	byLanguage map[string]float64
}

// recentRate returns the overall success fraction, 1 when unobserved.
func (s *languageState) recentRate() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.succeeded) / float64(s.total)
}

// NewLanguageStrategy creates a language-optimized strategy over the
// given deployment-to-family affinity table.
func NewLanguageStrategy(affinity map[string]map[string]float64) *LanguageStrategy {
	return &LanguageStrategy{
		affinity: affinity,
		state:    make(map[string]*languageState),
	}
}

// Name implements routing.Strategy.
func (s *LanguageStrategy) Name() string { return "language" }

// RequestLanguage extracts the language code from request metadata.
func RequestLanguage(req *providers.Request) string {
	if req != nil && req.Metadata != nil {
		if lang, ok := req.Metadata["language"]; ok && lang != "" {
			return lang
		}
	}
	return "en"
}

// Select implements routing.Strategy.
func (s *LanguageStrategy) Select(req *providers.Request, candidates []*routing.Deployment) *routing.Deployment {
	lang := RequestLanguage(req)
	family := languageFamily(lang)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *routing.Deployment
	var bestScore float64
	for _, d := range candidates {
		score := s.score(d, lang, family)
		if best == nil || score > bestScore {
			best = d
			bestScore = score
		}
	}
	return best
}

// score computes the language fit; higher is better. Callers must hold
// at least the read lock.
func (s *LanguageStrategy) score(d *routing.Deployment, lang, family string) float64 {
	affinity := 0.5
	if families, ok := s.affinity[d.Name]; ok {
		if a, ok := families[family]; ok {
			affinity = a
		}
	}

	learned := affinity
	recent := 1.0
	if st, ok := s.state[d.Name]; ok {
		if ema, ok := st.byLanguage[lang]; ok {
			learned = ema
		}
		recent = st.recentRate()
	}

	return weightAffinity*affinity + weightLanguageEMA*learned + weightRecent*recent
}

// UpdateMetrics implements routing.Strategy.
func (s *LanguageStrategy) UpdateMetrics(provider string, result routing.DispatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[provider]
	if !ok {
		st = &languageState{byLanguage: make(map[string]float64)}
		s.state[provider] = st
	}

	st.total++
	outcome := 0.0
	if result.Success {
		st.succeeded++
		outcome = 1
	}

	lang := result.Language
	if lang == "" {
		lang = "en"
	}
	prev, seen := st.byLanguage[lang]
	if !seen {
		prev = outcome
	}
	st.byLanguage[lang] = prev + emaAlpha*(outcome-prev)
}
