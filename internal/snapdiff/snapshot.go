// Package snapdiff compares two exported audit snapshots and evaluates the
// CI regression policy over the result.
package snapdiff

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kurtbrian03/docrank/internal/textnorm"
)

var (
	// ErrSnapshotNotFound indicates the snapshot file does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidSnapshot indicates the snapshot is not a JSON object.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// ResultsKey is the payload key holding the ranked rows.
const ResultsKey = "resultados_scores"

// Row is one ranked result as read back from an export.
type Row map[string]any

// Key returns the alignment key of the row: its path, else its id.
func (r Row) Key() string {
	for _, k := range []string{"ruta", "id"} {
		if s := strings.TrimSpace(textnorm.ToString(r[k])); s != "" {
			return s
		}
	}
	return ""
}

// FinalScore returns score_final, falling back to the relevance.
func (r Row) FinalScore() float64 {
	return r.float("score_final", "relevance", "relevancia")
}

// Component returns a score component, 0 when absent.
func (r Row) Component(name string) float64 {
	return r.float(append([]string{name}, componentAliases[name]...)...)
}

func (r Row) float(keys ...string) float64 {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return textnorm.ToFloat(v)
		}
	}
	return 0
}

type indexedRow struct {
	pos int
	row Row
}

// Snapshot is a loaded audit export.
type Snapshot struct {
	Name string
	Rows []Row

	byKey map[string]indexedRow
}

// NewSnapshot indexes rows by key. Positions are 1-based over all rows; rows
// without a key keep their position slot but cannot be aligned. A repeated
// key keeps its last occurrence.
func NewSnapshot(name string, rows []Row) *Snapshot {
	s := &Snapshot{Name: name, Rows: rows, byKey: make(map[string]indexedRow, len(rows))}
	for i, row := range rows {
		if k := row.Key(); k != "" {
			s.byKey[k] = indexedRow{pos: i + 1, row: row}
		}
	}
	return s
}

// Load reads an audit export from path.
func Load(path, name string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Parse(data, name)
}

// Parse decodes an audit export. Anything but a JSON object is rejected;
// non-object entries of the results list are skipped.
func Parse(data []byte, name string) (*Snapshot, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, name, err)
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrInvalidSnapshot, name)
	}

	list, _ := obj[ResultsKey].([]any)
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, Row(m))
		}
	}
	return NewSnapshot(name, rows), nil
}
