// Package ranking is the hybrid relevance engine: it resolves a query
// context, filters candidates from the current index snapshot, scores them
// with seven signals and a contextual boost, and records what it did.
package ranking

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kurtbrian03/docrank/internal/audit"
	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/fulltext"
	"github.com/kurtbrian03/docrank/internal/fuzzy"
	"github.com/kurtbrian03/docrank/internal/index"
	"github.com/kurtbrian03/docrank/internal/semantic"
)

// Observer receives engine telemetry.
type Observer interface {
	BuildCompleted(stats index.BuildStats)
	SearchCompleted(mode Mode, results int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) BuildCompleted(index.BuildStats)          {}
func (nopObserver) SearchCompleted(Mode, int, time.Duration) {}

// Config wires the engine collaborators. Zero values select defaults.
type Config struct {
	Extractor index.Extractor
	Matcher   fuzzy.Matcher
	Recorder  *audit.Recorder
	Observer  Observer
	Clock     func() time.Time
}

// snapshot is one immutable build of the index with its derived models.
// The semantic model and full-text index are built at most once, on demand.
type snapshot struct {
	ix      *index.Index
	stats   index.BuildStats
	builtAt time.Time

	semOnce sync.Once
	sem     *semantic.Model

	// ftMu guards retirement against in-flight full-text searches.
	ftMu    sync.RWMutex
	retired bool
	ftOnce  sync.Once
	ft      *fulltext.Index
	ftErr   error
}

// errSnapshotRetired is returned by a snapshot replaced while a caller
// still held it.
var errSnapshotRetired = errors.New("snapshot retired")

func (s *snapshot) model() *semantic.Model {
	s.semOnce.Do(func() {
		entries := s.ix.Entries()
		docs := make([]semantic.Document, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, semantic.Document{ID: e.Doc.ID, Text: e.Doc.SemanticText()})
		}
		s.sem = semantic.Build(docs)
		slog.Info("Semantic model built", "documents", len(docs), "empty", s.sem.Empty())
	})
	return s.sem
}

func (s *snapshot) searchFullText(q fulltext.Query) (*fulltext.Result, error) {
	s.ftMu.RLock()
	defer s.ftMu.RUnlock()
	if s.retired {
		return nil, errSnapshotRetired
	}
	s.ftOnce.Do(func() {
		entries := s.ix.Entries()
		docs := make([]*domain.Document, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, e.Doc)
		}
		s.ft, s.ftErr = fulltext.Build(docs)
	})
	if s.ftErr != nil {
		return nil, s.ftErr
	}
	return s.ft.Search(q)
}

// release closes the full-text index once no search is using it. A released
// snapshot answers only errSnapshotRetired to full-text searches.
func (s *snapshot) release() {
	if s == nil {
		return
	}
	s.ftMu.Lock()
	defer s.ftMu.Unlock()
	if s.retired {
		return
	}
	s.retired = true
	if s.ft != nil {
		if err := s.ft.Close(); err != nil {
			slog.Warn("Failed to close full-text index", "error", err)
		}
	}
}

// Engine ranks documents. Rebuilds are serialized and publish a complete new
// snapshot; searches read whichever snapshot is current and never block on
// a rebuild in progress.
type Engine struct {
	mu      sync.Mutex
	records []domain.Record
	snap    atomic.Pointer[snapshot]

	extractor index.Extractor
	matcher   fuzzy.Matcher
	recorder  *audit.Recorder
	observer  Observer
	now       func() time.Time
}

// NewEngine creates an engine over records. The index is built lazily on
// the first query.
func NewEngine(records []domain.Record, cfg Config) *Engine {
	e := &Engine{
		records:   records,
		extractor: cfg.Extractor,
		matcher:   cfg.Matcher,
		recorder:  cfg.Recorder,
		observer:  cfg.Observer,
		now:       cfg.Clock,
	}
	if e.matcher == nil {
		e.matcher = fuzzy.Default()
	}
	if e.recorder == nil {
		e.recorder = audit.NewRecorder(audit.DefaultCapacity)
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Recorder returns the audit recorder.
func (e *Engine) Recorder() *audit.Recorder {
	return e.recorder
}

// Load replaces the raw corpus and rebuilds the index.
func (e *Engine) Load(records []domain.Record) index.BuildStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = records
	return e.rebuildLocked().stats
}

// Rebuild rebuilds the index from the last loaded corpus.
func (e *Engine) Rebuild() index.BuildStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildLocked().stats
}

// Invalidate drops the current snapshot; the next query rebuilds it.
func (e *Engine) Invalidate() {
	e.snap.Swap(nil).release()
}

// Len returns the number of documents in the current snapshot, or 0 when
// none has been built.
func (e *Engine) Len() int {
	if s := e.snap.Load(); s != nil {
		return s.ix.Len()
	}
	return 0
}

// BuildStats returns the stats of the current snapshot.
func (e *Engine) BuildStats() index.BuildStats {
	if s := e.snap.Load(); s != nil {
		return s.stats
	}
	return index.BuildStats{}
}

func (e *Engine) current() *snapshot {
	if s := e.snap.Load(); s != nil {
		return s
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s := e.snap.Load(); s != nil {
		return s
	}
	return e.rebuildLocked()
}

func (e *Engine) rebuildLocked() *snapshot {
	ix, stats := index.Build(e.records, e.extractor)
	s := &snapshot{ix: ix, stats: stats, builtAt: e.now()}
	e.snap.Swap(s).release()

	slog.Info("Index built",
		"documents", stats.Documents,
		"failed", stats.Failed,
		"extracted", stats.Extracted,
		"duration_ms", durationMS(stats.Duration))
	e.recorder.Record(audit.EventIndexBuild, s.builtAt, map[string]any{
		"documents":   stats.Documents,
		"failed":      stats.Failed,
		"extracted":   stats.Extracted,
		"collisions":  stats.Collisions,
		"duration_ms": durationMS(stats.Duration),
	})
	e.observer.BuildCompleted(stats)
	return s
}

// Response is the outcome of a Search.
type Response struct {
	Results     []domain.Result
	Context     *QueryContext
	Candidates  int
	Performance *audit.Performance
	Elapsed     time.Duration
}

type ranked struct {
	entry *index.Entry
	sig   Signals
}

// Search ranks the current snapshot against req. It never fails: problems
// in individual documents or models reduce to zero contributions.
func (e *Engine) Search(req Request) *Response {
	wall := time.Now()
	now := e.now()
	snap := e.current()
	prof := audit.NewProfiler(req.Profiling)

	var model *semantic.Model
	if ParseMode(req.Mode) == ModeFlexible && req.Query != "" {
		model = snap.model()
	}
	qc := NewQueryContext(req, snap.ix.Len(), model, now)
	resp := &Response{Context: qc, Results: []domain.Result{}}

	t := prof.Start()
	var candidates []*index.Entry
	for _, en := range snap.ix.Entries() {
		if qc.Filters.Matches(en.Doc) {
			candidates = append(candidates, en)
		}
	}
	prof.Stop(audit.PhasePrepareCorpus, t)
	resp.Candidates = len(candidates)

	if len(candidates) == 0 || qc.Norm == "" {
		for _, en := range candidates {
			resp.Results = append(resp.Results, newResult(en.Doc, 100))
		}
		e.recorder.ClearPerformance()
		resp.Elapsed = time.Since(wall)
		return resp
	}

	var semScores map[string]float64
	if qc.UseSemantic && qc.Mode != ModeStrict {
		t = prof.Start()
		semScores = snap.model().Query(qc.Raw)
		prof.Stop(audit.PhaseTFIDF, t)
	}

	s := &scorer{
		ix:       snap.ix,
		qc:       qc,
		unique:   qc.UniqueTokens(),
		semantic: semScores,
		matcher:  e.matcher,
		now:      now,
		prof:     prof,
	}
	hits := make([]ranked, 0, len(candidates))
	for _, en := range candidates {
		sig := s.score(en)
		if sig.Final > 0 {
			hits = append(hits, ranked{entry: en, sig: sig})
		}
	}

	t = prof.Start()
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sig.Final > hits[j].sig.Final })
	if req.TopK > 0 && len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	prof.Stop(audit.PhaseRanking, t)

	resp.Elapsed = time.Since(wall)
	e.recordSearch(qc, len(candidates), hits, resp.Elapsed)

	t = prof.Start()
	for _, h := range hits {
		r := newResult(h.entry.Doc, h.sig.Final*100)
		if req.Audit {
			r.ScoreBreakdown = breakdown(h.sig)
		}
		resp.Results = append(resp.Results, r)
	}
	if req.Audit {
		e.recorder.Record(audit.EventSearchAudit, e.now(), map[string]any{
			"audit_id":      qc.AuditID,
			"query":         qc.Raw,
			"mode":          string(qc.Mode),
			"weights":       qc.Weights,
			"boost_weights": qc.Boost,
			"results":       len(resp.Results),
		})
	}
	prof.Stop(audit.PhaseAudit, t)

	ctxMap := qc.Map()
	if req.Profiling {
		resp.Performance = prof.Performance(e.now(), resp.Elapsed)
		e.recorder.Record(audit.EventSearchProfiling, e.now(), map[string]any{
			"audit_id":            qc.AuditID,
			"query":               qc.Raw,
			"performance_metrics": resp.Performance,
		})
		ctxMap["performance_metrics"] = resp.Performance
	}
	e.recorder.SetLastSearch(ctxMap, resp.Results, resp.Performance)
	e.observer.SearchCompleted(qc.Mode, len(resp.Results), resp.Elapsed)
	return resp
}

func (e *Engine) recordSearch(qc *QueryContext, candidates int, hits []ranked, elapsed time.Duration) {
	payload := map[string]any{
		"audit_id":     qc.AuditID,
		"query":        qc.Raw,
		"mode":         string(qc.Mode),
		"filters":      qc.Filters,
		"use_semantic": qc.UseSemantic,
		"candidates":   candidates,
		"results":      len(hits),
		"duration_ms":  durationMS(elapsed),
		"idf_factor":   round(qc.Rarity, 4),
	}
	if len(hits) > 0 {
		payload["top_type"] = hits[0].entry.Doc.Type
		payload["top_folder"] = hits[0].entry.Doc.Folder
	}
	e.recorder.Record(audit.EventSearch, e.now(), payload)
	slog.Info("Search completed",
		"query", qc.Raw,
		"mode", qc.Mode,
		"candidates", candidates,
		"results", len(hits),
		"duration_ms", durationMS(elapsed))
}

func breakdown(sig Signals) *domain.ScoreBreakdown {
	return &domain.ScoreBreakdown{
		Exact:        round(sig.Exact*100, 4),
		Fuzzy:        round(sig.Fuzzy*100, 4),
		Semantic:     round(sig.Semantic*100, 4),
		Tokens:       round(sig.Tokens*100, 4),
		ContentScore: round(sig.Content*100, 4),
		Temporal:     round(sig.Temporal*100, 4),
		Structural:   round(sig.Structural*100, 4),
		Boosting:     round(sig.Boost, 4),
		Final:        round(sig.Final*100, 4),
	}
}

func newResult(d *domain.Document, relevance float64) domain.Result {
	return domain.Result{Document: *d, Relevance: round(max(0, relevance), 4)}
}

// LastQueryContext returns the serialized context of the last ranked search.
func (e *Engine) LastQueryContext() map[string]any {
	return e.recorder.LastQueryContext()
}

// LastPerformance returns the breakdown of the last profiled search, or nil.
func (e *Engine) LastPerformance() *audit.Performance {
	return e.recorder.LastPerformance()
}

// AuditLog returns up to limit of the most recent audit events.
func (e *Engine) AuditLog(limit int) []audit.Event {
	return e.recorder.Events(limit)
}

// SearchStats ranks the most frequent queries and top-result types and
// folders across the retained search events.
func (e *Engine) SearchStats() audit.SearchStats {
	return audit.BuildSearchStats(e.recorder.Events(e.recorder.Capacity()))
}

// AuditPayload assembles the audit export of the current state.
func (e *Engine) AuditPayload() *audit.Payload {
	return e.recorder.Payload(e.Len(), e.now())
}

// ExportAuditJSON writes the audit export as JSON.
func (e *Engine) ExportAuditJSON(path string) error {
	return audit.ExportJSON(path, e.AuditPayload())
}

// ExportAuditCSV writes the component scores of the last search as CSV.
func (e *Engine) ExportAuditCSV(path string) error {
	return audit.ExportCSV(path, e.recorder.LastResults())
}

// ExportPerformanceJSON writes the last performance breakdown as JSON.
func (e *Engine) ExportPerformanceJSON(path string) error {
	return audit.ExportPerformanceJSON(path, e.recorder.LastPerformance())
}

// ExportPerformanceCSV writes the last performance breakdown as CSV.
func (e *Engine) ExportPerformanceCSV(path string) error {
	return audit.ExportPerformanceCSV(path, e.recorder.LastPerformance())
}

// SearchFullText runs a keyword query against the snapshot's full-text index.
// A snapshot replaced mid-call is retried against the new one.
func (e *Engine) SearchFullText(text string, filters Filters, size int) (*fulltext.Result, error) {
	q := fulltext.Query{Text: text, Filters: filters.FullTextFilters(), Size: size}
	for attempt := 0; ; attempt++ {
		res, err := e.current().searchFullText(q)
		if errors.Is(err, errSnapshotRetired) && attempt < fullTextRetries {
			continue
		}
		return res, err
	}
}

const fullTextRetries = 3

func durationMS(d time.Duration) float64 {
	return round(float64(d)/float64(time.Millisecond), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
