package domain

// ScoreBreakdown exposes the per-component scores of a ranked result.
// Signals are on the 0–100 display scale; Boosting is the raw multiplier.
type ScoreBreakdown struct {
	Exact        float64 `json:"score_exact"`
	Fuzzy        float64 `json:"score_fuzzy"`
	Semantic     float64 `json:"score_semantic"`
	Tokens       float64 `json:"score_tokens"`
	ContentScore float64 `json:"score_content"`
	Temporal     float64 `json:"score_temporal"`
	Structural   float64 `json:"score_estructural"`
	Boosting     float64 `json:"score_boosting"`
	Final        float64 `json:"score_final"`
}

// Result is one ranked document. The breakdown is only attached when the
// caller asked for an audited search.
type Result struct {
	Document
	Relevance float64 `json:"relevance"`
	*ScoreBreakdown
}

// FinalScore returns the audited final score, or the relevance when the
// result carries no breakdown.
func (r Result) FinalScore() float64 {
	if r.ScoreBreakdown != nil {
		return r.Final
	}
	return r.Relevance
}
