package semantic

import (
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// DefaultEmbeddingDim is the bucket count of the hashed embedding.
const DefaultEmbeddingDim = 512

// Match is one hit of a similarity search.
type Match struct {
	ID    string
	Score float64
}

// HashedEmbedding buckets token counts by hash and L2-normalizes the result.
// Collisions make it lossy; its scores are not comparable with Model.Query.
func HashedEmbedding(text string, dim int) []float64 {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	vec := make([]float64, dim)
	for _, tok := range textnorm.Tokenize(text) {
		vec[xxhash.Sum64String(tok)%uint64(dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// HashedSearch ranks docs by hashed-embedding cosine against query. Only
// positive matches are returned, best first, ties in input order.
func HashedSearch(query string, docs []Document, topK int) []Match {
	qv := HashedEmbedding(query, DefaultEmbeddingDim)
	var matches []Match
	for _, d := range docs {
		dv := HashedEmbedding(d.Text, DefaultEmbeddingDim)
		var dot float64
		for i := range qv {
			dot += qv[i] * dv[i]
		}
		if dot > 0 {
			matches = append(matches, Match{ID: d.ID, Score: min(1, dot)})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
