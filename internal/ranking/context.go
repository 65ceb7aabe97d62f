package ranking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kurtbrian03/docrank/internal/semantic"
	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// Mode selects the scoring formula.
type Mode string

const (
	ModeFlexible Mode = "flexible"
	ModeStrict   Mode = "strict"
)

// ParseMode maps user input to a Mode. Anything that is not a recognized
// spelling of strict is flexible.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "estricta", "estricto":
		return ModeStrict
	default:
		return ModeFlexible
	}
}

// Request is one search call.
type Request struct {
	Query       string
	Filters     Filters
	UseName     bool
	UseContent  bool
	UseSemantic bool
	Fuzzy       bool
	Mode        string
	TopK        int
	Weights     map[string]float64
	Audit       bool
	Profiling   bool
}

// NewRequest returns a request with name, content and fuzzy matching on.
func NewRequest(query string) Request {
	return Request{Query: query, UseName: true, UseContent: true, Fuzzy: true}
}

// QueryContext is everything resolved once per query before scoring.
type QueryContext struct {
	AuditID     string
	Raw         string
	Norm        string
	Tokens      []string
	Filters     Filters
	Mode        Mode
	UseFuzzy    bool
	UseName     bool
	UseContent  bool
	UseSemantic bool
	Weights     Weights
	Boost       BoostWeights
	Rarity      float64
	Audit       bool
	Profiling   bool
	StartedAt   time.Time
}

// NewQueryContext resolves req against a corpus of n documents. model may be
// nil; it feeds the rarity factor in flexible mode.
func NewQueryContext(req Request, n int, model *semantic.Model, now time.Time) *QueryContext {
	norm := textnorm.Normalize(req.Query)
	qc := &QueryContext{
		AuditID:     "search-" + uuid.NewString(),
		Raw:         req.Query,
		Norm:        norm,
		Tokens:      textnorm.Tokenize(norm),
		Filters:     req.Filters,
		Mode:        ParseMode(req.Mode),
		UseFuzzy:    req.Fuzzy,
		UseName:     req.UseName,
		UseContent:  req.UseContent,
		UseSemantic: req.UseSemantic,
		Weights:     ResolveWeights(req.Weights, DefaultWeights(n)),
		Boost:       ResolveBoostWeights(req.Weights),
		Rarity:      1.0,
		Audit:       req.Audit,
		Profiling:   req.Profiling,
		StartedAt:   now,
	}
	if qc.Mode == ModeFlexible && model != nil {
		qc.Rarity = model.RarityFactor(qc.Tokens)
	}
	return qc
}

// UniqueTokens returns the distinct query tokens.
func (qc *QueryContext) UniqueTokens() map[string]struct{} {
	set := make(map[string]struct{}, len(qc.Tokens))
	for _, t := range qc.Tokens {
		set[t] = struct{}{}
	}
	return set
}

// Map renders the context for the audit log and exports.
func (qc *QueryContext) Map() map[string]any {
	tokens := qc.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	return map[string]any{
		"audit_id":         qc.AuditID,
		"query_raw":        qc.Raw,
		"query_norm":       qc.Norm,
		"query_tokens":     tokens,
		"filters":          qc.Filters,
		"mode":             string(qc.Mode),
		"use_fuzzy":        qc.UseFuzzy,
		"use_name":         qc.UseName,
		"use_content":      qc.UseContent,
		"use_semantic":     qc.UseSemantic,
		"weights":          qc.Weights,
		"boost_weights":    qc.Boost,
		"idf_query_factor": qc.Rarity,
		"include_debug":    qc.Audit,
		"profiling":        qc.Profiling,
	}
}
