package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/kurtbrian03/docrank/internal/audit"
	"github.com/kurtbrian03/docrank/internal/fuzzy"
	"github.com/kurtbrian03/docrank/internal/index"
	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// Boost multiplier bounds.
const (
	MinBoost = 0.8
	MaxBoost = 1.65
)

// RecencyScaleDays is the e-folding time of the recency decay.
const RecencyScaleDays = 180.0

// Signals holds the per-document signals, all in [0,1] except Boost.
type Signals struct {
	Exact      float64
	Fuzzy      float64
	Semantic   float64
	Content    float64
	Tokens     float64
	Temporal   float64
	Structural float64
	Boost      float64
	Final      float64
}

// ScoreExact is 1 when the name equals the query and 0.85 when it contains it.
func ScoreExact(e *index.Entry, queryNorm string) float64 {
	if queryNorm == "" {
		return 0
	}
	if e.NormName == queryNorm {
		return 1
	}
	if strings.Contains(e.NormName, queryNorm) {
		return 0.85
	}
	return 0
}

// ScoreFuzzy is the edit similarity between the query and the name.
func ScoreFuzzy(m fuzzy.Matcher, e *index.Entry, queryNorm string) float64 {
	if m == nil {
		m = fuzzy.Exact{}
	}
	return m.Ratio(queryNorm, e.NormName)
}

// ScoreTokens is the fraction of unique query tokens found in the document.
func ScoreTokens(e *index.Entry, unique map[string]struct{}) float64 {
	if len(unique) == 0 || len(e.Tokens) == 0 {
		return 0
	}
	shared := 0
	for tok := range unique {
		if _, ok := e.Tokens[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(unique))
}

// ScoreContent rewards a whole-query substring hit plus a saturating bonus
// per token occurrence.
func ScoreContent(e *index.Entry, queryNorm string, tokens []string) float64 {
	if queryNorm == "" || e.NormContent == "" {
		return 0
	}
	occurrences := 0
	for _, tok := range tokens {
		occurrences += strings.Count(e.NormContent, tok)
	}
	base := 0.0
	if strings.Contains(e.NormContent, queryNorm) {
		base = 0.35
	}
	return min(1, base+min(0.65, float64(occurrences)*0.06))
}

// ScoreTemporal combines exponential recency with year and month hits in the
// query. Documents without a parsable date score 0.
func ScoreTemporal(e *index.Entry, unique map[string]struct{}, now time.Time) float64 {
	if !e.HasDate {
		return 0
	}
	days := max(0, now.Sub(e.Date).Hours()/24)
	score := math.Exp(-days / RecencyScaleDays)

	if year := textnorm.Normalize(e.Doc.Year); year != "" {
		if _, ok := unique[year]; ok {
			score += 0.25
		}
	}
	if month := textnorm.Normalize(e.Doc.Month); month != "" && intersects(textnorm.Tokenize(month), unique) {
		score += 0.15
	}
	return min(1, score)
}

// ScoreStructural is the Jaccard similarity of the document's structural
// tokens against the query tokens plus active structural filter tokens.
func ScoreStructural(e *index.Entry, unique map[string]struct{}, filters Filters) float64 {
	filterTokens := filters.StructuralTokens()
	if len(unique) == 0 && len(filterTokens) == 0 {
		return 0
	}
	query := make(map[string]struct{}, len(unique)+len(filterTokens))
	for t := range unique {
		query[t] = struct{}{}
	}
	for _, t := range filterTokens {
		query[t] = struct{}{}
	}
	if len(e.Structural) == 0 || len(query) == 0 {
		return 0
	}
	inter := 0
	for t := range query {
		if _, ok := e.Structural[t]; ok {
			inter++
		}
	}
	union := len(e.Structural) + len(query) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Boost computes the contextual multiplier, clamped to [MinBoost, MaxBoost].
// Rare field values get a larger bonus than common ones.
func Boost(ix *index.Index, e *index.Entry, qc *QueryContext, unique map[string]struct{}, temporal float64) float64 {
	score := 1.0
	for _, f := range index.BoostFields {
		value := textnorm.Normalize(e.FieldValue(f))
		if value == "" {
			continue
		}
		m := clamp(qc.Boost.For(f), 0, MaxWeight)
		if m == 0 {
			continue
		}
		if fv := qc.Filters.BoostValue(f); fv != "" && textnorm.Normalize(fv) == value {
			score += 0.14 * m
		}
		if intersects(textnorm.Tokenize(value), unique) {
			score += 0.08 * m
		}
		if freq := float64(ix.Frequency(f, value)); freq > 0 {
			score += min(0.06*m, 0.08*m/math.Sqrt(freq+1))
		}
	}
	if mt := clamp(qc.Boost.Temporal, 0, MaxWeight); mt > 0 {
		score += min(0.12*mt, temporal*0.10*mt)
	}
	return clamp(score, MinBoost, MaxBoost)
}

func intersects(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// scorer evaluates one query against the entries of a snapshot.
type scorer struct {
	ix       *index.Index
	qc       *QueryContext
	unique   map[string]struct{}
	semantic map[string]float64
	matcher  fuzzy.Matcher
	now      time.Time
	prof     *audit.Profiler
}

// score computes the signals of e. Final is in [0,1]; 0 means excluded.
func (s *scorer) score(e *index.Entry) Signals {
	qc := s.qc
	var sig Signals

	if qc.UseName {
		sig.Exact = ScoreExact(e, qc.Norm)
	}

	t := s.prof.Start()
	sig.Tokens = ScoreTokens(e, s.unique)
	s.prof.Stop(audit.PhaseTokens, t)

	if qc.Mode == ModeStrict {
		sig.Boost = 1
		sig.Final = min(1, 0.70*sig.Exact+0.30*sig.Tokens)
		return sig
	}

	t = s.prof.Start()
	if qc.UseFuzzy && qc.UseName {
		sig.Fuzzy = ScoreFuzzy(s.matcher, e, qc.Norm)
	}
	s.prof.Stop(audit.PhaseFuzzy, t)

	if qc.UseContent {
		sig.Content = ScoreContent(e, qc.Norm, qc.Tokens)
	}

	t = s.prof.Start()
	sig.Temporal = ScoreTemporal(e, s.unique, s.now)
	s.prof.Stop(audit.PhaseTemporal, t)

	t = s.prof.Start()
	sig.Structural = ScoreStructural(e, s.unique, qc.Filters)
	s.prof.Stop(audit.PhaseStructural, t)

	t = s.prof.Start()
	if qc.UseSemantic {
		sig.Semantic = s.semantic[e.Doc.ID]
	}
	s.prof.Stop(audit.PhaseSemantic, t)

	t = s.prof.Start()
	sig.Boost = Boost(s.ix, e, qc, s.unique, sig.Temporal)
	s.prof.Stop(audit.PhaseBoosting, t)

	w := qc.Weights
	raw := sig.Exact*w.Exact +
		sig.Fuzzy*w.Fuzzy +
		sig.Semantic*w.Semantic +
		sig.Content*w.Content +
		sig.Tokens*w.Tokens +
		sig.Temporal*w.Temporal +
		sig.Structural*w.Structural
	sig.Final = min(1, min(1, raw)*sig.Boost*qc.Rarity)
	return sig
}
