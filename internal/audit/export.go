package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/kurtbrian03/docrank/internal/domain"
)

// LockFilename is the lock taken in an export directory while writing.
const LockFilename = ".docrank-export.lock"

// LockTimeout bounds how long an export waits for the directory lock.
var LockTimeout = 5 * time.Second

// ErrExportLocked indicates another process holds the export directory lock.
var ErrExportLocked = errors.New("export directory is locked by another process")

// AuditCSVColumns is the header of the audit CSV export.
var AuditCSVColumns = []string{
	"ruta", "score_exact", "score_fuzzy", "score_semantic", "score_tokens",
	"score_temporal", "score_estructural", "score_boosting", "score_final",
}

// ExportJSON writes an audit payload as indented JSON.
func ExportJSON(path string, payload *Payload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}
	return WriteFile(path, data)
}

// ExportCSV writes one row of component scores per result.
func ExportCSV(path string, results []domain.Result) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, AuditCSVColumns)
	for _, r := range results {
		b := r.ScoreBreakdown
		if b == nil {
			b = &domain.ScoreBreakdown{Final: r.Relevance}
		}
		rows = append(rows, []string{
			r.Path,
			formatFloat(b.Exact), formatFloat(b.Fuzzy), formatFloat(b.Semantic),
			formatFloat(b.Tokens), formatFloat(b.Temporal), formatFloat(b.Structural),
			formatFloat(b.Boosting), formatFloat(b.Final),
		})
	}
	return WriteCSV(path, rows)
}

// ExportPerformanceJSON writes a performance breakdown. A nil breakdown is
// written as an empty object.
func ExportPerformanceJSON(path string, perf *Performance) error {
	var v any = map[string]any{}
	if perf != nil {
		v = perf
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal performance metrics: %w", err)
	}
	return WriteFile(path, data)
}

// ExportPerformanceCSV writes one row per phase.
func ExportPerformanceCSV(path string, perf *Performance) error {
	rows := [][]string{{"component", "time_ms"}}
	if perf != nil {
		for _, phase := range Phases {
			if v, ok := perf.Components[phase]; ok {
				rows = append(rows, []string{phase, formatFloat(v)})
			}
		}
	}
	return WriteCSV(path, rows)
}

// WriteCSV encodes rows and writes them like WriteFile.
func WriteCSV(path string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	return WriteFile(path, buf.Bytes())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteFile writes data atomically while holding the lock of the parent
// directory. The directory is created when missing.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	unlock, err := lockDir(dir)
	if err != nil {
		return err
	}
	defer unlock()

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export %s: %w", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename export %s: %w", path, err)
	}
	slog.Info("Export written", "path", path, "bytes", len(data))
	return nil
}

func lockDir(dir string) (func(), error) {
	l := flock.New(filepath.Join(dir, LockFilename))
	deadline := time.Now().Add(LockTimeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire export lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrExportLocked, dir)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
