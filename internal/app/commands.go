package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kurtbrian03/docrank/internal/config"
	"github.com/kurtbrian03/docrank/internal/docsearch"
	"github.com/kurtbrian03/docrank/internal/ranking"
	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

// ErrPolicyFailed is returned by RunCI when a snapshot diff breaches the
// regression policy.
var ErrPolicyFailed = errors.New("ranking regression policy failed")

// SearchOptions configures a one-shot search.
type SearchOptions struct {
	Query     string
	Filters   map[string]string
	Audit     bool
	Profiling bool
	JSON      bool
	AuditJSON string // audit export path, optional
	AuditCSV  string // audit CSV export path, optional
}

// RunSearch loads the corpus, runs one search and prints the ranking.
func RunSearch(ctx context.Context, settings *config.EngineSettings, opts SearchOptions, out io.Writer) error {
	if err := config.ValidateEngineSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if settings.CorpusPath == "" {
		return fmt.Errorf("a corpus file is required")
	}

	svc, err := docsearch.NewService(settings, ranking.Config{})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	raw := make(map[string]any, len(opts.Filters))
	for k, v := range opts.Filters {
		raw[k] = v
	}
	req := svc.NewRequest(opts.Query)
	req.Filters = ranking.ParseFilters(raw)
	if strings.TrimSpace(opts.Query) == "" && req.Filters.Empty() {
		return fmt.Errorf("query cannot be empty unless a filter is set")
	}
	req.Audit = opts.Audit || opts.AuditJSON != "" || opts.AuditCSV != ""
	req.Profiling = opts.Profiling

	engine := svc.Engine()
	resp := engine.Search(req)

	if opts.AuditJSON != "" {
		if err := engine.ExportAuditJSON(opts.AuditJSON); err != nil {
			return err
		}
	}
	if opts.AuditCSV != "" {
		if err := engine.ExportAuditCSV(opts.AuditCSV); err != nil {
			return err
		}
	}

	if opts.JSON {
		return writeJSON(out, resp.Results)
	}

	if len(resp.Results) == 0 {
		_, err := fmt.Fprintf(out, "No results for %q (%d candidates)\n", opts.Query, resp.Candidates)
		return err
	}
	for i, r := range resp.Results {
		if _, err := fmt.Fprintf(out, "%3d. %6.2f  %s  %s\n", i+1, r.Relevance, r.Name, r.Path); err != nil {
			return err
		}
	}
	if resp.Performance != nil {
		_, err := fmt.Fprintf(out, "total_time_ms=%.3f\n", resp.Performance.TotalTimeMS)
		return err
	}
	return nil
}

// DiffOptions configures a snapshot comparison.
type DiffOptions struct {
	SnapshotA string
	SnapshotB string
	NameA     string
	NameB     string
	JSON      bool
	Write     bool // write reports to the CI output directory
}

// RunDiff compares two audit exports and prints the report.
func RunDiff(settings *config.CISettings, opts DiffOptions, out io.Writer) (*snapdiff.Diff, error) {
	nameA, nameB := opts.NameA, opts.NameB
	if nameA == "" {
		nameA = opts.SnapshotA
	}
	if nameB == "" {
		nameB = opts.SnapshotB
	}

	d, err := snapdiff.CompareFiles(opts.SnapshotA, opts.SnapshotB, nameA, nameB, settings.TopN)
	if err != nil {
		return nil, err
	}

	if opts.Write {
		if err := snapdiff.WriteReports(settings.OutDir, d); err != nil {
			return nil, err
		}
	}

	if opts.JSON {
		return d, writeJSON(out, d)
	}
	_, err = io.WriteString(out, snapdiff.Report(d))
	return d, err
}

// RunCI compares two audit exports, writes the reports and applies the
// regression policy. A breach returns an error wrapping ErrPolicyFailed.
func RunCI(settings *config.CISettings, snapshotA, snapshotB string, out io.Writer) error {
	if err := config.ValidateCISettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	d, err := RunDiff(settings, DiffOptions{
		SnapshotA: snapshotA,
		SnapshotB: snapshotB,
		NameA:     "baseline",
		NameB:     "candidate",
		Write:     true,
	}, out)
	if err != nil {
		return err
	}

	ok, message := PolicyFromSettings(*settings).Evaluate(d)
	if _, err := fmt.Fprintln(out, message); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPolicyFailed, message)
	}
	return nil
}

// RunBenchmark loads the corpus and reports search latencies over queries.
func RunBenchmark(ctx context.Context, settings *config.EngineSettings, queries []string, repetitions int, out io.Writer) error {
	if len(queries) == 0 {
		return fmt.Errorf("at least one query is required")
	}
	if settings.CorpusPath == "" {
		return fmt.Errorf("a corpus file is required")
	}

	svc, err := docsearch.NewService(settings, ranking.Config{})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	report := ranking.Benchmark(svc.Engine(), queries, ranking.Filters{}, repetitions, settings.DefaultMode)
	return writeJSON(out, report)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
