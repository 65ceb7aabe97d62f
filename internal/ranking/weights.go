package ranking

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kurtbrian03/docrank/internal/index"
)

// Weights are the flexible-mode coefficients of the seven signals.
type Weights struct {
	Exact      float64 `json:"exact"`
	Fuzzy      float64 `json:"fuzzy"`
	Semantic   float64 `json:"semantic"`
	Content    float64 `json:"content"`
	Tokens     float64 `json:"tokens"`
	Temporal   float64 `json:"temporal"`
	Structural float64 `json:"structural"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Exact + w.Fuzzy + w.Semantic + w.Content + w.Tokens + w.Temporal + w.Structural
}

// DefaultWeights returns the size-tiered defaults for a corpus of n documents.
// Small corpora lean on semantic similarity, large ones on exact matching.
func DefaultWeights(n int) Weights {
	switch {
	case n <= 60:
		return Weights{Exact: 0.24, Fuzzy: 0.16, Semantic: 0.30, Content: 0.12, Tokens: 0.10, Temporal: 0.05, Structural: 0.03}
	case n > 3000:
		return Weights{Exact: 0.27, Fuzzy: 0.14, Semantic: 0.23, Content: 0.12, Tokens: 0.12, Temporal: 0.07, Structural: 0.05}
	default:
		return Weights{Exact: 0.25, Fuzzy: 0.16, Semantic: 0.26, Content: 0.12, Tokens: 0.10, Temporal: 0.06, Structural: 0.05}
	}
}

// Custom weight keys. Each concept accepts the listed aliases.
var (
	KeysExact      = []string{"score_exacto", "score_exact", "exact"}
	KeysFuzzy      = []string{"score_fuzzy", "fuzzy"}
	KeysSemantic   = []string{"score_semantico", "score_semantic", "semantic"}
	KeysContent    = []string{"score_contenido", "score_content", "content"}
	KeysTokens     = []string{"score_tokens", "tokens"}
	KeysTemporal   = []string{"score_temporal", "temporal"}
	KeysStructural = []string{"score_estructural", "score_structural", "structural"}

	KeysBoostProvider = []string{"boost_proveedor", "boost_provider"}
	KeysBoostHospital = []string{"boost_hospital"}
	KeysBoostMonth    = []string{"boost_mes", "boost_month"}
	KeysBoostYear     = []string{"boost_anio", "boost_year"}
	KeysBoostType     = []string{"boost_tipo", "boost_type"}
	KeysBoostTemporal = []string{"boost_temporal"}
)

// MaxWeight bounds every custom weight and boost multiplier.
const MaxWeight = 3.0

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// customValue returns the first present alias clamped to [0, MaxWeight], or
// def when absent or not a number.
func customValue(custom map[string]float64, def float64, keys []string) float64 {
	for _, k := range keys {
		v, ok := custom[k]
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return clamp(v, 0, MaxWeight)
	}
	return def
}

// ResolveWeights applies custom weights over base. Missing keys take the base
// value; the result is normalized to sum to 1. All-zero input yields base.
func ResolveWeights(custom map[string]float64, base Weights) Weights {
	if len(custom) == 0 {
		return base
	}
	w := Weights{
		Exact:      customValue(custom, base.Exact, KeysExact),
		Fuzzy:      customValue(custom, base.Fuzzy, KeysFuzzy),
		Semantic:   customValue(custom, base.Semantic, KeysSemantic),
		Content:    customValue(custom, base.Content, KeysContent),
		Tokens:     customValue(custom, base.Tokens, KeysTokens),
		Temporal:   customValue(custom, base.Temporal, KeysTemporal),
		Structural: customValue(custom, base.Structural, KeysStructural),
	}
	total := w.Sum()
	if total <= 0 {
		return base
	}
	return Weights{
		Exact:      w.Exact / total,
		Fuzzy:      w.Fuzzy / total,
		Semantic:   w.Semantic / total,
		Content:    w.Content / total,
		Tokens:     w.Tokens / total,
		Temporal:   w.Temporal / total,
		Structural: w.Structural / total,
	}
}

// BoostWeights are the per-field boosting multipliers.
type BoostWeights struct {
	Provider float64 `json:"provider"`
	Hospital float64 `json:"hospital"`
	Month    float64 `json:"month"`
	Year     float64 `json:"year"`
	Type     float64 `json:"type"`
	Temporal float64 `json:"temporal"`
}

// ResolveBoostWeights reads the boost multipliers, defaulting each to 1.
func ResolveBoostWeights(custom map[string]float64) BoostWeights {
	return BoostWeights{
		Provider: customValue(custom, 1, KeysBoostProvider),
		Hospital: customValue(custom, 1, KeysBoostHospital),
		Month:    customValue(custom, 1, KeysBoostMonth),
		Year:     customValue(custom, 1, KeysBoostYear),
		Type:     customValue(custom, 1, KeysBoostType),
		Temporal: customValue(custom, 1, KeysBoostTemporal),
	}
}

// For returns the multiplier of a boosting field.
func (b BoostWeights) For(f index.Field) float64 {
	switch f {
	case index.FieldProvider:
		return b.Provider
	case index.FieldHospital:
		return b.Hospital
	case index.FieldMonth:
		return b.Month
	case index.FieldYear:
		return b.Year
	case index.FieldType:
		return b.Type
	default:
		return 0
	}
}

// LoadWeightsFile reads custom weights from a YAML or JSON mapping of key to
// number.
func LoadWeightsFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var out map[string]float64
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}
	return out, nil
}
