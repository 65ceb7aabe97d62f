// Package semantic provides the vector-space similarity model used as the
// semantic ranking signal, plus a hashed bag-of-words fallback.
package semantic

import (
	"math"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// QueryCacheSize bounds the per-model query similarity cache.
const QueryCacheSize = 256

// Document is one unit of text fed to the model.
type Document struct {
	ID   string
	Text string
}

// Config holds the vectorizer hyperparameters.
type Config struct {
	MaxFeatures int
	MaxDF       float64
	MinDF       int
}

// ConfigFor returns the hyperparameters for a corpus of n documents.
// Larger corpora prune common terms harder and keep a larger vocabulary.
func ConfigFor(n int) Config {
	switch {
	case n <= 5:
		return Config{MaxFeatures: 1200, MaxDF: 1.0, MinDF: 1}
	case n <= 80:
		return Config{MaxFeatures: 3000, MaxDF: 0.96, MinDF: 1}
	case n <= 2000:
		return Config{MaxFeatures: 5000, MaxDF: 0.92, MinDF: 2}
	default:
		return Config{MaxFeatures: 10000, MaxDF: 0.88, MinDF: 3}
	}
}

type posting struct {
	doc    int
	weight float64
}

// Model is a TF-IDF model over unigrams and bigrams with sublinear term
// frequency, smoothed IDF and L2-normalized vectors. A built Model is
// immutable and safe for concurrent use.
type Model struct {
	cfg      Config
	docIDs   []string
	vocab    map[string]int
	idf      []float64
	maxIDF   float64
	postings [][]posting
	cache    *lru.Cache[string, map[string]float64]
}

// Build fits a model over docs. An empty corpus, or one whose vocabulary is
// empty after pruning, yields an empty model that scores everything 0.
func Build(docs []Document) *Model {
	m := &Model{cfg: ConfigFor(len(docs))}
	cache, err := lru.New[string, map[string]float64](QueryCacheSize)
	if err == nil {
		m.cache = cache
	}
	if len(docs) == 0 {
		return m
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	total := make(map[string]int)
	for i, d := range docs {
		c := termCounts(d.Text)
		counts[i] = c
		for term, n := range c {
			df[term]++
			total[term] += n
		}
	}

	terms := m.selectTerms(len(docs), df, total)
	if len(terms) == 0 {
		return m
	}

	m.docIDs = make([]string, len(docs))
	m.vocab = make(map[string]int, len(terms))
	m.idf = make([]float64, len(terms))
	m.postings = make([][]posting, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		m.vocab[term] = i
		m.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
		m.maxIDF = max(m.maxIDF, m.idf[i])
	}

	for i, d := range docs {
		m.docIDs[i] = d.ID
		vec := m.vectorize(counts[i])
		for term, w := range vec {
			m.postings[term] = append(m.postings[term], posting{doc: i, weight: w})
		}
	}
	return m
}

// selectTerms applies the document-frequency bounds and then keeps the
// MaxFeatures most frequent terms. Ties are broken lexically.
func (m *Model) selectTerms(nDocs int, df, total map[string]int) []string {
	maxCount := m.cfg.MaxDF * float64(nDocs)
	terms := make([]string, 0, len(df))
	for term, n := range df {
		if float64(n) > maxCount || n < m.cfg.MinDF {
			continue
		}
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if m.cfg.MaxFeatures > 0 && len(terms) > m.cfg.MaxFeatures {
		terms = terms[:m.cfg.MaxFeatures]
	}
	slices.Sort(terms)
	return terms
}

// vectorize maps raw counts to a normalized sparse vector over the vocabulary.
func (m *Model) vectorize(counts map[string]int) map[int]float64 {
	vec := make(map[int]float64, len(counts))
	var norm float64
	for term, c := range counts {
		idx, ok := m.vocab[term]
		if !ok {
			continue
		}
		w := (1 + math.Log(float64(c))) * m.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

// Empty reports whether the model has no vocabulary.
func (m *Model) Empty() bool {
	return m == nil || len(m.vocab) == 0
}

// Len returns the number of documents the model was fit on.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.docIDs)
}

// Config returns the hyperparameters the model was built with.
func (m *Model) Config() Config {
	if m == nil {
		return Config{}
	}
	return m.cfg
}

// Query returns the cosine similarity in [0,1] of text against every document
// with a positive score. Documents absent from the map score 0. The returned
// map is shared and must not be modified.
func (m *Model) Query(text string) map[string]float64 {
	if m.Empty() || strings.TrimSpace(text) == "" {
		return nil
	}
	if m.cache != nil {
		if hit, ok := m.cache.Get(text); ok {
			return hit
		}
	}

	qv := m.vectorize(termCounts(text))
	scores := make(map[string]float64)
	if len(qv) > 0 {
		acc := make(map[int]float64)
		for term, qw := range qv {
			for _, p := range m.postings[term] {
				acc[p.doc] += qw * p.weight
			}
		}
		for doc, s := range acc {
			if s > 0 {
				scores[m.docIDs[doc]] = min(1, s)
			}
		}
	}

	if m.cache != nil {
		m.cache.Add(text, scores)
	}
	return scores
}

// IDF returns a copy of the term → inverse document frequency map.
func (m *Model) IDF() map[string]float64 {
	if m.Empty() {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m.vocab))
	for term, idx := range m.vocab {
		out[term] = m.idf[idx]
	}
	return out
}

// RarityFactor scores how rare the query tokens are in the corpus, centered
// near 1.0 and clamped to [0.82, 1.20].
func (m *Model) RarityFactor(tokens []string) float64 {
	if len(tokens) == 0 || m.Empty() {
		return 1.0
	}
	var known []float64
	for _, tok := range tokens {
		if idx, ok := m.vocab[tok]; ok && m.idf[idx] > 0 {
			known = append(known, m.idf[idx])
		}
	}
	if len(known) == 0 {
		return 0.95
	}
	if m.maxIDF <= 0 {
		return 1.0
	}
	rarity := median(known) / m.maxIDF
	return max(0.82, min(1.20, 0.9+rarity*0.3))
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// analyze lowercases and splits text into words of two or more characters,
// then emits the unigrams followed by the bigrams.
func analyze(text string) []string {
	var words []string
	for _, tok := range textnorm.Tokenize(text) {
		if utf8.RuneCountInString(tok) >= 2 {
			words = append(words, tok)
		}
	}
	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, term := range analyze(text) {
		counts[term]++
	}
	return counts
}
