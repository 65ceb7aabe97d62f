package audit

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kurtbrian03/docrank/internal/domain"
)

// Metadata heads an audit export.
type Metadata struct {
	EngineVersion    string `json:"engine_version"`
	GeneratedAt      string `json:"generated_at"`
	IndexedDocuments int    `json:"indexed_documents"`
	AuditEvents      int    `json:"audit_events"`
	ResultRows       int    `json:"result_rows"`
}

// ScoreSummary aggregates the final and boosting scores of a result set.
type ScoreSummary struct {
	FinalAvg    float64 `json:"score_final_avg"`
	FinalMax    float64 `json:"score_final_max"`
	FinalMin    float64 `json:"score_final_min"`
	BoostingAvg float64 `json:"score_boosting_avg"`
}

// Payload is the audit export. It doubles as the snapshot format read back
// by the diff engine.
type Payload struct {
	Metadata     Metadata        `json:"metadata"`
	QueryContext map[string]any  `json:"query_context"`
	AuditLog     []Event         `json:"audit_log"`
	Results      []domain.Result `json:"resultados_scores"`
	Summary      ScoreSummary    `json:"resumen_scores"`
	Performance  *Performance    `json:"performance_metrics,omitempty"`
}

// Summarize computes the score summary of results.
func Summarize(results []domain.Result) ScoreSummary {
	if len(results) == 0 {
		return ScoreSummary{}
	}
	var sumFinal, sumBoost float64
	maxFinal, minFinal := results[0].FinalScore(), results[0].FinalScore()
	for _, r := range results {
		f := r.FinalScore()
		sumFinal += f
		maxFinal = max(maxFinal, f)
		minFinal = min(minFinal, f)
		if r.ScoreBreakdown != nil {
			sumBoost += r.Boosting
		}
	}
	n := float64(len(results))
	return ScoreSummary{
		FinalAvg:    round(sumFinal/n, 6),
		FinalMax:    round(maxFinal, 6),
		FinalMin:    round(minFinal, 6),
		BoostingAvg: round(sumBoost/n, 6),
	}
}

// TermCount is one row of a frequency ranking.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// SearchStats aggregates search events for dashboards.
type SearchStats struct {
	TopQueries []TermCount `json:"top_queries"`
	TopTypes   []TermCount `json:"top_types"`
	TopFolders []TermCount `json:"top_folders"`
}

// StatsLimit is the number of rows kept per ranking.
const StatsLimit = 10

// BuildSearchStats ranks the most frequent queries, top-result types and
// top-result folders across search events.
func BuildSearchStats(events []Event) SearchStats {
	queries := map[string]int{}
	types := map[string]int{}
	folders := map[string]int{}
	for _, e := range events {
		if e.Kind != EventSearch {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(payloadString(e.Payload, "query"))); q != "" {
			queries[q]++
		}
		if v := payloadString(e.Payload, "top_type"); v != "" {
			types[v]++
		}
		if v := payloadString(e.Payload, "top_folder"); v != "" {
			folders[v]++
		}
	}
	return SearchStats{
		TopQueries: topCounts(queries, StatsLimit),
		TopTypes:   topCounts(types, StatsLimit),
		TopFolders: topCounts(folders, StatsLimit),
	}
}

func payloadString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func topCounts(counts map[string]int, limit int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, n := range counts {
		out = append(out, TermCount{Term: term, Count: n})
	}
	slices.SortFunc(out, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
