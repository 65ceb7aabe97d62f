package ranking

import (
	"math"
	"slices"
	"time"
)

// BenchmarkReport summarizes repeated search latencies.
type BenchmarkReport struct {
	Queries int     `json:"queries"`
	MeanMS  float64 `json:"mean_ms"`
	P95MS   float64 `json:"p95_ms"`
	MaxMS   float64 `json:"max_ms"`
	MinMS   float64 `json:"min_ms"`
	Results int     `json:"results"`
}

// Benchmark runs every query repetitions times with name, content and
// semantic signals enabled and reports the latency distribution.
func Benchmark(e *Engine, queries []string, filters Filters, repetitions int, mode string) BenchmarkReport {
	repetitions = max(1, repetitions)
	var samples []float64
	total := 0
	for range repetitions {
		for _, q := range queries {
			req := NewRequest(q)
			req.Filters = filters
			req.UseSemantic = true
			req.Mode = mode

			start := time.Now()
			resp := e.Search(req)
			samples = append(samples, float64(time.Since(start))/float64(time.Millisecond))
			total += len(resp.Results)
		}
	}
	if len(samples) == 0 {
		return BenchmarkReport{}
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	slices.Sort(samples)
	return BenchmarkReport{
		Queries: len(samples),
		MeanMS:  round(sum/float64(len(samples)), 4),
		P95MS:   round(percentile(samples, 95), 4),
		MaxMS:   round(samples[len(samples)-1], 4),
		MinMS:   round(samples[0], 4),
		Results: total,
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
