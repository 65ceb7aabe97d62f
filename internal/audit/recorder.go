// Package audit records what the ranking engine did: a bounded event log,
// the last query context and results, per-phase timings, and their exports.
package audit

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/gammazero/deque"

	"github.com/kurtbrian03/docrank/internal/domain"
)

// EngineVersion is stamped on every export.
const EngineVersion = "2.2.0"

// DefaultCapacity is the default number of events retained.
const DefaultCapacity = 2000

// Event kinds.
const (
	EventIndexBuild      = "index_build"
	EventSearch          = "search"
	EventSearchAudit     = "search_audit"
	EventSearchProfiling = "search_profiling"
)

// Event is one entry of the audit log.
type Event struct {
	Kind      string         `json:"event_kind"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// Recorder holds the bounded event log and the state of the last search.
// It is safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	capacity    int
	events      deque.Deque[Event]
	lastContext map[string]any
	lastResults []domain.Result
	lastPerf    *Performance
}

// NewRecorder creates a recorder that keeps at most capacity events.
// A non-positive capacity falls back to DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{capacity: capacity}
}

// Capacity returns the maximum number of retained events.
func (r *Recorder) Capacity() int {
	return r.capacity
}

// Record appends an event, evicting the oldest ones beyond capacity.
func (r *Recorder) Record(kind string, at time.Time, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.PushBack(Event{Kind: kind, Timestamp: at.UTC(), Payload: payload})
	for r.events.Len() > r.capacity {
		r.events.PopFront()
	}
}

// Len returns the number of retained events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events.Len()
}

// Events returns up to limit of the most recent events, oldest first.
// A non-positive limit returns nothing.
func (r *Recorder) Events(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		return nil
	}
	n := r.events.Len()
	start := max(0, n-limit)
	out := make([]Event, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, r.events.At(i))
	}
	return out
}

// SetLastSearch replaces the state of the last completed search. perf is nil
// when the search was not profiled.
func (r *Recorder) SetLastSearch(queryContext map[string]any, results []domain.Result, perf *Performance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastContext = queryContext
	r.lastResults = results
	r.lastPerf = perf
}

// ClearPerformance forgets the last performance breakdown.
func (r *Recorder) ClearPerformance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastPerf = nil
}

// LastQueryContext returns a copy of the last query context.
func (r *Recorder) LastQueryContext() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.lastContext)
}

// LastResults returns a copy of the last ranked results.
func (r *Recorder) LastResults() []domain.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lastResults)
}

// LastPerformance returns the last profiling breakdown, or nil.
func (r *Recorder) LastPerformance() *Performance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastPerf == nil {
		return nil
	}
	p := *r.lastPerf
	p.Components = maps.Clone(r.lastPerf.Components)
	return &p
}

// Payload assembles the full audit export.
func (r *Recorder) Payload(indexedDocuments int, now time.Time) *Payload {
	events := r.Events(r.capacity)
	r.mu.Lock()
	results := slices.Clone(r.lastResults)
	ctx := maps.Clone(r.lastContext)
	r.mu.Unlock()
	if ctx == nil {
		ctx = map[string]any{}
	}
	if results == nil {
		results = []domain.Result{}
	}
	if events == nil {
		events = []Event{}
	}

	return &Payload{
		Metadata: Metadata{
			EngineVersion:    EngineVersion,
			GeneratedAt:      now.UTC().Format(time.RFC3339Nano),
			IndexedDocuments: indexedDocuments,
			AuditEvents:      len(events),
			ResultRows:       len(results),
		},
		QueryContext: ctx,
		AuditLog:     events,
		Results:      results,
		Summary:      Summarize(results),
		Performance:  r.LastPerformance(),
	}
}
