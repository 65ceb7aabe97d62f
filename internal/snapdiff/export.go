package snapdiff

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kurtbrian03/docrank/internal/audit"
)

// Report file names written by WriteReports.
const (
	ReportJSON = "ci_audit_diff.json"
	ReportCSV  = "ci_audit_diff.csv"
	ReportTXT  = "ci_audit_diff.txt"
)

// CSVColumns returns the diff CSV header.
func CSVColumns() []string {
	cols := []string{
		"ruta", "status", "pos_a", "pos_b", "delta_pos",
		"score_final_a", "score_final_b", "delta_score_final",
	}
	for _, name := range Components {
		cols = append(cols, name+"_a", name+"_b", "delta_"+name)
	}
	return cols
}

// ExportJSON writes the diff as indented JSON.
func ExportJSON(path string, d *Diff) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diff: %w", err)
	}
	return audit.WriteFile(path, data)
}

// ExportCSV writes one row per aligned document. Missing values are empty.
func ExportCSV(path string, d *Diff) error {
	cols := CSVColumns()
	rows := [][]string{cols}
	for _, doc := range d.Documents {
		fields := doc.Fields()
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = formatCell(fields[c])
		}
		rows = append(rows, row)
	}
	return audit.WriteCSV(path, rows)
}

// ExportTXT writes a short human-readable report.
func ExportTXT(path string, d *Diff) error {
	return audit.WriteFile(path, []byte(Report(d)))
}

// Report renders the text report.
func Report(d *Diff) string {
	m, r := d.Metadata, d.Summary.Ranking
	lines := []string{
		"AUDIT DIFF SNAPSHOTS",
		"Snapshot A: " + m.SnapshotA,
		"Snapshot B: " + m.SnapshotB,
		"Compared at: " + m.ComparedAt,
		"",
		fmt.Sprintf("Common docs: %d", m.CommonDocs),
		fmt.Sprintf("New docs: %d", m.NewDocs),
		fmt.Sprintf("Removed docs: %d", m.RemovedDocs),
		"",
		fmt.Sprintf("Up: %d (%s%%)", r.UpCount, formatFloat(r.UpPct)),
		fmt.Sprintf("Down: %d (%s%%)", r.DownCount, formatFloat(r.DownPct)),
		fmt.Sprintf("Same: %d (%s%%)", r.SameCount, formatFloat(r.SamePct)),
		"Avg delta score final: " + formatFloat(d.Summary.AvgDeltaFinal()),
		"",
		"Top rank changes:",
	}
	for _, doc := range d.TopRankChanges {
		lines = append(lines, fmt.Sprintf("- %s | pos_A=%s | pos_B=%s | delta_pos=%s",
			doc.Ruta, formatCell(doc.PosA), formatCell(doc.PosB), formatCell(doc.DeltaPos)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteReports writes the JSON, CSV and TXT reports into dir.
func WriteReports(dir string, d *Diff) error {
	if err := ExportJSON(filepath.Join(dir, ReportJSON), d); err != nil {
		return err
	}
	if err := ExportCSV(filepath.Join(dir, ReportCSV), d); err != nil {
		return err
	}
	return ExportTXT(filepath.Join(dir, ReportTXT), d)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case *float64:
		if x == nil {
			return ""
		}
		return formatFloat(*x)
	case float64:
		return formatFloat(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
