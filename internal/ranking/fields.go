package ranking

import (
	"sort"

	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/index"
	"github.com/kurtbrian03/docrank/internal/semantic"
	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// DefaultSemanticTopK is used when SearchSemantic gets a non-positive topK.
const DefaultSemanticTopK = 20

// SearchByName ranks documents by the best of exact and fuzzy name match.
func (e *Engine) SearchByName(query string, useFuzzy bool) []domain.Result {
	q := textnorm.Normalize(query)
	if q == "" {
		return nil
	}
	return e.rankEntries(func(en *index.Entry) float64 {
		score := ScoreExact(en, q)
		if useFuzzy {
			score = max(score, ScoreFuzzy(e.matcher, en, q))
		}
		return score
	})
}

// SearchByContent ranks documents by the content signal alone.
func (e *Engine) SearchByContent(query string) []domain.Result {
	q := textnorm.Normalize(query)
	if q == "" {
		return nil
	}
	tokens := textnorm.Tokenize(q)
	return e.rankEntries(func(en *index.Entry) float64 {
		return ScoreContent(en, q, tokens)
	})
}

// FilterByExtension lists documents with the given extension. The leading
// dot is optional.
func (e *Engine) FilterByExtension(ext string) []domain.Result {
	return e.filterEntries(Filters{Extension: ext})
}

// FilterByFolder lists documents in the given folder.
func (e *Engine) FilterByFolder(folder string) []domain.Result {
	return e.filterEntries(Filters{Folder: folder})
}

// FilterByType lists documents of the given type.
func (e *Engine) FilterByType(docType string) []domain.Result {
	return e.filterEntries(Filters{Type: docType})
}

// SearchByTags ranks documents by the share of requested tags they carry.
// Partial matches are kept.
func (e *Engine) SearchByTags(tags []string) []domain.Result {
	want := Filters{Tags: tags}.tags()
	if len(want) == 0 {
		return nil
	}
	return e.rankEntries(func(en *index.Entry) float64 {
		hits := 0
		for _, t := range want {
			for _, have := range en.Doc.Tags {
				if textnorm.Normalize(have) == t {
					hits++
					break
				}
			}
		}
		return float64(hits) / float64(len(want))
	})
}

// SearchSemantic ranks documents by TF-IDF cosine similarity. When the model
// yields nothing, the hashed bag-of-words similarity is used instead; its
// scores are not comparable with the primary ones.
func (e *Engine) SearchSemantic(query string, topK int) []domain.Result {
	if topK <= 0 {
		topK = DefaultSemanticTopK
	}
	snap := e.current()
	if snap.ix.Len() == 0 || textnorm.Normalize(query) == "" {
		return nil
	}

	scores := snap.model().Query(query)
	out := e.rankSnapshot(snap, func(en *index.Entry) float64 { return scores[en.Doc.ID] })
	if len(out) > 0 {
		if len(out) > topK {
			out = out[:topK]
		}
		return out
	}

	docs := make([]semantic.Document, 0, snap.ix.Len())
	for _, en := range snap.ix.Entries() {
		docs = append(docs, semantic.Document{ID: en.Doc.ID, Text: en.Doc.SemanticText()})
	}
	for _, m := range semantic.HashedSearch(query, docs, topK) {
		if en, ok := snap.ix.Get(m.ID); ok {
			out = append(out, newResult(en.Doc, m.Score*100))
		}
	}
	return out
}

// CombineResults merges result lists by document id, averaging relevance.
// The most recent copy of each document wins; order is by relevance, ties
// in first-seen order.
func CombineResults(lists ...[]domain.Result) []domain.Result {
	var order []string
	merged := map[string]domain.Result{}
	scores := map[string][]float64{}
	for _, list := range lists {
		for _, r := range list {
			key := r.ID
			if key == "" {
				key = r.Path
			}
			if key == "" {
				continue
			}
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = r
			scores[key] = append(scores[key], r.Relevance)
		}
	}

	out := make([]domain.Result, 0, len(order))
	for _, key := range order {
		r := merged[key]
		var sum float64
		for _, s := range scores[key] {
			sum += s
		}
		r.Relevance = round(sum/float64(len(scores[key])), 4)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out
}

func (e *Engine) rankEntries(score func(*index.Entry) float64) []domain.Result {
	return e.rankSnapshot(e.current(), score)
}

// rankSnapshot keeps entries with a positive score, best first, ties in
// corpus order.
func (e *Engine) rankSnapshot(snap *snapshot, score func(*index.Entry) float64) []domain.Result {
	type hit struct {
		entry *index.Entry
		score float64
	}
	var hits []hit
	for _, en := range snap.ix.Entries() {
		if s := score(en); s > 0 {
			hits = append(hits, hit{en, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]domain.Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, newResult(h.entry.Doc, h.score*100))
	}
	return out
}

func (e *Engine) filterEntries(f Filters) []domain.Result {
	var out []domain.Result
	for _, en := range e.current().ix.Entries() {
		if f.Matches(en.Doc) {
			out = append(out, newResult(en.Doc, 100))
		}
	}
	return out
}
