package audit

import (
	"math"
	"time"
)

// Phase names of a profiled search.
const (
	PhasePrepareCorpus = "prepare_corpus_ms"
	PhaseFuzzy         = "fuzzy_ms"
	PhaseTFIDF         = "tfidf_ms"
	PhaseSemantic      = "semantic_ms"
	PhaseTokens        = "tokens_ms"
	PhaseTemporal      = "temporal_ms"
	PhaseStructural    = "structural_ms"
	PhaseBoosting      = "boosting_ms"
	PhaseRanking       = "ranking_ms"
	PhaseAudit         = "audit_ms"
)

// Phases lists every phase in report order.
var Phases = []string{
	PhasePrepareCorpus, PhaseFuzzy, PhaseTFIDF, PhaseSemantic, PhaseTokens,
	PhaseTemporal, PhaseStructural, PhaseBoosting, PhaseRanking, PhaseAudit,
}

// Performance is the timing breakdown of one profiled search.
type Performance struct {
	Timestamp     string             `json:"timestamp"`
	EngineVersion string             `json:"version_motor"`
	TotalTimeMS   float64            `json:"total_time_ms"`
	Components    map[string]float64 `json:"components"`
}

// Profiler accumulates wall-clock time per phase. Phases interleave per
// document, so each phase keeps its own running total. A disabled Profiler
// records nothing and never reads the clock.
type Profiler struct {
	enabled bool
	totals  map[string]time.Duration
}

// NewProfiler creates a profiler.
func NewProfiler(enabled bool) *Profiler {
	p := &Profiler{enabled: enabled}
	if enabled {
		p.totals = make(map[string]time.Duration, len(Phases))
	}
	return p
}

// Enabled reports whether timings are recorded.
func (p *Profiler) Enabled() bool {
	return p != nil && p.enabled
}

// Start returns the start mark for a phase.
func (p *Profiler) Start() time.Time {
	if !p.Enabled() {
		return time.Time{}
	}
	return time.Now()
}

// Stop adds the time elapsed since start to phase.
func (p *Profiler) Stop(phase string, start time.Time) {
	if !p.Enabled() {
		return
	}
	p.totals[phase] += time.Since(start)
}

// Total returns the accumulated time of phase.
func (p *Profiler) Total(phase string) time.Duration {
	if !p.Enabled() {
		return 0
	}
	return p.totals[phase]
}

// Performance renders the breakdown. Every phase is present, zero when unused.
func (p *Profiler) Performance(now time.Time, total time.Duration) *Performance {
	components := make(map[string]float64, len(Phases))
	for _, phase := range Phases {
		components[phase] = round(millis(p.Total(phase)), 4)
	}
	return &Performance{
		Timestamp:     now.UTC().Format(time.RFC3339Nano),
		EngineVersion: EngineVersion,
		TotalTimeMS:   round(millis(total), 4),
		Components:    components,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
