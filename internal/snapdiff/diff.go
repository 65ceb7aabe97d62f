package snapdiff

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"time"
)

// Components are the score components compared per document.
var Components = []string{
	"score_exact",
	"score_fuzzy",
	"score_semantic",
	"score_tokens",
	"score_temporal",
	"score_estructural",
	"score_boosting",
}

// older exports used these names
var componentAliases = map[string][]string{
	"score_exact":    {"score_exacto"},
	"score_semantic": {"score_semantico"},
}

// Document statuses.
const (
	StatusCommon  = "common"
	StatusNew     = "new"
	StatusRemoved = "removed"
)

// DefaultTopN is the default length of the volatility list.
const DefaultTopN = 20

// Metadata describes the two compared snapshots.
type Metadata struct {
	ComparedAt  string `json:"compared_at"`
	SnapshotA   string `json:"snapshot_a"`
	SnapshotB   string `json:"snapshot_b"`
	RowsA       int    `json:"rows_a"`
	RowsB       int    `json:"rows_b"`
	CommonDocs  int    `json:"common_docs"`
	NewDocs     int    `json:"new_docs"`
	RemovedDocs int    `json:"removed_docs"`
}

// RankingSummary counts rank movements of common documents.
type RankingSummary struct {
	UpCount   int     `json:"up_count"`
	DownCount int     `json:"down_count"`
	SameCount int     `json:"same_count"`
	UpPct     float64 `json:"up_pct"`
	DownPct   float64 `json:"down_pct"`
	SamePct   float64 `json:"same_pct"`
}

// Summary aggregates a diff. Score maps avg_delta_score_final and
// avg_delta_<component> to their means over common documents.
type Summary struct {
	Ranking RankingSummary     `json:"ranking"`
	Score   map[string]float64 `json:"score"`
}

// AvgDeltaFinal returns the mean final-score delta.
func (s Summary) AvgDeltaFinal() float64 {
	return s.Score["avg_delta_score_final"]
}

// ComponentDelta is one component of a common document in both snapshots.
type ComponentDelta struct {
	A     float64
	B     float64
	Delta float64
}

// Document is one aligned row. Positions and deltas are nil when the
// document is missing from one side.
type Document struct {
	Ruta            string
	Status          string
	PosA            *int
	PosB            *int
	DeltaPos        *int
	ScoreFinalA     float64
	ScoreFinalB     float64
	DeltaScoreFinal *float64
	Components      map[string]ComponentDelta
}

// Fields flattens the document into its export columns.
func (d Document) Fields() map[string]any {
	m := map[string]any{
		"ruta":              d.Ruta,
		"status":            d.Status,
		"pos_a":             d.PosA,
		"pos_b":             d.PosB,
		"delta_pos":         d.DeltaPos,
		"score_final_a":     d.ScoreFinalA,
		"score_final_b":     d.ScoreFinalB,
		"delta_score_final": d.DeltaScoreFinal,
	}
	for name, c := range d.Components {
		m[name+"_a"] = c.A
		m[name+"_b"] = c.B
		m["delta_"+name] = c.Delta
	}
	return m
}

// MarshalJSON writes the flat column layout.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Fields())
}

// Diff is the comparison of snapshot A (before) with snapshot B (after).
type Diff struct {
	Metadata       Metadata   `json:"metadata"`
	Summary        Summary    `json:"summary"`
	Documents      []Document `json:"documents"`
	TopRankChanges []Document `json:"top_rank_changes"`
}

// Options tune Compare.
type Options struct {
	TopN int
	Now  time.Time
}

// Compare aligns a and b by document key and computes rank and score
// deltas. Positive delta_pos means the document moved up in b.
func Compare(a, b *Snapshot, opts Options) *Diff {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	topN := opts.TopN
	if topN == 0 {
		topN = DefaultTopN
	}
	topN = max(1, topN)

	var common, added, removed []string
	for k := range a.byKey {
		if _, ok := b.byKey[k]; ok {
			common = append(common, k)
		} else {
			removed = append(removed, k)
		}
	}
	for k := range b.byKey {
		if _, ok := a.byKey[k]; !ok {
			added = append(added, k)
		}
	}
	slices.Sort(common)
	slices.Sort(added)
	slices.Sort(removed)

	var rs RankingSummary
	finalDeltas := make([]float64, 0, len(common))
	compDeltas := make(map[string][]float64, len(Components))
	docs := make([]Document, 0, len(common)+len(added)+len(removed))

	for _, k := range common {
		ra, rb := a.byKey[k], b.byKey[k]
		deltaPos := ra.pos - rb.pos
		switch {
		case deltaPos > 0:
			rs.UpCount++
		case deltaPos < 0:
			rs.DownCount++
		default:
			rs.SameCount++
		}

		fa, fb := ra.row.FinalScore(), rb.row.FinalScore()
		delta := round(fb-fa, 6)
		finalDeltas = append(finalDeltas, delta)

		doc := Document{
			Ruta:            k,
			Status:          StatusCommon,
			PosA:            intPtr(ra.pos),
			PosB:            intPtr(rb.pos),
			DeltaPos:        intPtr(deltaPos),
			ScoreFinalA:     fa,
			ScoreFinalB:     fb,
			DeltaScoreFinal: &delta,
			Components:      make(map[string]ComponentDelta, len(Components)),
		}
		for _, name := range Components {
			ca, cb := ra.row.Component(name), rb.row.Component(name)
			cd := round(cb-ca, 6)
			doc.Components[name] = ComponentDelta{A: ca, B: cb, Delta: cd}
			compDeltas[name] = append(compDeltas[name], cd)
		}
		docs = append(docs, doc)
	}

	for _, k := range added {
		rb := b.byKey[k]
		docs = append(docs, Document{
			Ruta:        k,
			Status:      StatusNew,
			PosB:        intPtr(rb.pos),
			ScoreFinalB: rb.row.FinalScore(),
		})
	}
	for _, k := range removed {
		ra := a.byKey[k]
		docs = append(docs, Document{
			Ruta:        k,
			Status:      StatusRemoved,
			PosA:        intPtr(ra.pos),
			ScoreFinalA: ra.row.FinalScore(),
		})
	}

	if n := len(common); n > 0 {
		rs.UpPct = round(float64(rs.UpCount)/float64(n)*100, 4)
		rs.DownPct = round(float64(rs.DownCount)/float64(n)*100, 4)
		rs.SamePct = round(float64(rs.SameCount)/float64(n)*100, 4)
	}

	score := map[string]float64{"avg_delta_score_final": mean(finalDeltas)}
	for _, name := range Components {
		score["avg_delta_"+name] = mean(compDeltas[name])
	}

	var top []Document
	for _, d := range docs {
		if d.Status == StatusCommon {
			top = append(top, d)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return absInt(*top[i].DeltaPos) > absInt(*top[j].DeltaPos)
	})
	if len(top) > topN {
		top = top[:topN]
	}

	return &Diff{
		Metadata: Metadata{
			ComparedAt:  opts.Now.UTC().Format(time.RFC3339Nano),
			SnapshotA:   a.Name,
			SnapshotB:   b.Name,
			RowsA:       len(a.Rows),
			RowsB:       len(b.Rows),
			CommonDocs:  len(common),
			NewDocs:     len(added),
			RemovedDocs: len(removed),
		},
		Summary:        Summary{Ranking: rs, Score: score},
		Documents:      docs,
		TopRankChanges: top,
	}
}

// CompareFiles loads both snapshots and compares them.
func CompareFiles(pathA, pathB, nameA, nameB string, topN int) (*Diff, error) {
	a, err := Load(pathA, nameA)
	if err != nil {
		return nil, err
	}
	b, err := Load(pathB, nameB)
	if err != nil {
		return nil, err
	}
	return Compare(a, b, Options{TopN: topN}), nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round(sum/float64(len(values)), 6)
}

func intPtr(v int) *int {
	return &v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
