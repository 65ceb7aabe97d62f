package docsearch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func TestSearchHandler_NotReady(t *testing.T) {
	svc := setupService(t, nil)
	result, _, err := NewSearchHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Query: "factura"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result when service not ready")
	}
}

func TestSearchHandler_Validation(t *testing.T) {
	svc := setupService(t, testRecords())
	handler := NewSearchHandler(svc)

	tests := []struct {
		name string
		args SearchArgument
	}{
		{"empty query without filters", SearchArgument{}},
		{"blank query with ALL filter", SearchArgument{Query: "  ", Type: "ALL"}},
		{"negative top_k", SearchArgument{Query: "factura", TopK: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, tt.args)
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if !result.IsError {
				t.Errorf("Expected error result, got %q", resultText(t, result))
			}
		})
	}
}

func TestSearchHandler_Query(t *testing.T) {
	svc := setupService(t, testRecords())
	result, _, err := NewSearchHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Query: "factura acme"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected error result: %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "### 1. factura_acme_enero.pdf") {
		t.Errorf("Expected acme invoice first, got:\n%s", text)
	}
	if strings.Contains(text, "**Scores**") {
		t.Error("Expected no score breakdown without audit")
	}
}

func TestSearchHandler_AuditAndProfiling(t *testing.T) {
	svc := setupService(t, testRecords())
	result, _, err := NewSearchHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{
		Query:     "factura",
		Audit:     true,
		Profiling: true,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "**Scores**") {
		t.Errorf("Expected score breakdown, got:\n%s", text)
	}
	if !strings.Contains(text, "Total time:") {
		t.Errorf("Expected total time, got:\n%s", text)
	}
}

func TestSearchHandler_BrowseByFilter(t *testing.T) {
	svc := setupService(t, testRecords())
	result, _, err := NewSearchHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Type: "Receta"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "receta.txt") || strings.Contains(text, "factura") {
		t.Errorf("Expected only the prescription, got:\n%s", text)
	}
	if !strings.Contains(text, "**Relevance**: 100.00") {
		t.Errorf("Expected browse relevance 100, got:\n%s", text)
	}
}

func TestSearchHandler_StrictNoMatch(t *testing.T) {
	svc := setupService(t, testRecords())
	result, _, err := NewSearchHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Query: "zzzz", Mode: "estricto"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatal("No results is not an error")
	}
	if text := resultText(t, result); !strings.Contains(text, "No results found") {
		t.Errorf("Expected no results, got:\n%s", text)
	}
}

func TestFullTextHandler(t *testing.T) {
	svc := setupService(t, testRecords())
	handler := NewFullTextHandler(svc)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, FullTextArgument{Query: ""})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error for empty query")
	}

	result, _, err = handler.Handle(context.Background(), &mcp.CallToolRequest{}, FullTextArgument{Query: "factura"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	text := resultText(t, result)
	if result.IsError || !strings.Contains(text, "Found") {
		t.Errorf("Expected matches, got:\n%s", text)
	}
}

func TestExportHandler(t *testing.T) {
	svc := setupService(t, testRecords())
	req := svc.NewRequest("factura")
	req.Audit = true
	req.Profiling = true
	svc.Engine().Search(req)

	handler := NewExportHandler(svc)
	tests := []struct {
		name     string
		args     ExportArgument
		wantFile string
		wantErr  bool
	}{
		{"default audit json", ExportArgument{}, "audit.json", false},
		{"audit csv", ExportArgument{Format: "CSV"}, "audit.csv", false},
		{"performance json", ExportArgument{Kind: "performance", Filename: "perf.json"}, "perf.json", false},
		{"performance csv", ExportArgument{Kind: "performance", Format: "csv"}, "performance.csv", false},
		{"unknown kind", ExportArgument{Kind: "metrics"}, "", true},
		{"unknown format", ExportArgument{Format: "xml"}, "", true},
		{"path traversal", ExportArgument{Filename: "../audit.json"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, tt.args)
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if result.IsError != tt.wantErr {
				t.Fatalf("IsError = %v, want %v: %s", result.IsError, tt.wantErr, resultText(t, result))
			}
			if tt.wantFile == "" {
				return
			}
			path := filepath.Join(svc.GetSettings().ExportDir, tt.wantFile)
			if _, err := os.Stat(path); err != nil {
				t.Errorf("Expected %s to exist: %v", path, err)
			}
		})
	}
}

func TestAuditLogHandler(t *testing.T) {
	svc := setupService(t, testRecords())
	svc.Engine().Search(svc.NewRequest("factura"))
	svc.Engine().Search(svc.NewRequest("Factura"))
	svc.Engine().Search(svc.NewRequest("receta"))

	handler := NewAuditLogHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, AuditLogArgument{Limit: 2})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	var out AuditLogResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("Failed to decode audit log: %v", err)
	}
	if len(out.Events) != 2 {
		t.Errorf("len(Events) = %d, want 2", len(out.Events))
	}
	if len(out.Stats.TopQueries) == 0 || out.Stats.TopQueries[0].Term != "factura" || out.Stats.TopQueries[0].Count != 2 {
		t.Errorf("TopQueries = %+v, want factura x2 first", out.Stats.TopQueries)
	}
	if out.Last == nil {
		t.Error("Expected last query context")
	}

	result, _, _ = handler.Handle(context.Background(), &mcp.CallToolRequest{}, AuditLogArgument{Limit: -1})
	if !result.IsError {
		t.Error("Expected error for negative limit")
	}
}

func TestCompareHandler(t *testing.T) {
	svc := setupService(t, testRecords())
	req := svc.NewRequest("factura")
	req.Audit = true
	svc.Engine().Search(req)
	for _, name := range []string{"a.json", "b.json"} {
		path, err := svc.ExportPath(name)
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.Engine().ExportAuditJSON(path); err != nil {
			t.Fatalf("ExportAuditJSON failed: %v", err)
		}
	}

	handler := NewCompareHandler(svc, snapdiff.DefaultPolicy)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, CompareArgument{
		SnapshotA:    "a.json",
		SnapshotB:    "b.json",
		WriteReports: true,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("Expected identical snapshots to pass, got:\n%s", text)
	}
	if !strings.Contains(text, "CI OK") {
		t.Errorf("Expected CI OK, got:\n%s", text)
	}
	for _, name := range []string{snapdiff.ReportJSON, snapdiff.ReportCSV, snapdiff.ReportTXT} {
		if _, err := os.Stat(filepath.Join(svc.GetSettings().ExportDir, name)); err != nil {
			t.Errorf("Expected report %s: %v", name, err)
		}
	}
}

func TestCompareHandler_Errors(t *testing.T) {
	svc := setupService(t, nil)
	handler := NewCompareHandler(svc, snapdiff.DefaultPolicy)

	tests := []struct {
		name string
		args CompareArgument
	}{
		{"missing snapshot names", CompareArgument{SnapshotA: "a.json"}},
		{"negative top_n", CompareArgument{SnapshotA: "a.json", SnapshotB: "b.json", TopN: -1}},
		{"missing files", CompareArgument{SnapshotA: "a.json", SnapshotB: "b.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, tt.args)
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if !result.IsError {
				t.Errorf("Expected error result, got %q", resultText(t, result))
			}
		})
	}
}

func TestReindexHandler(t *testing.T) {
	svc := setupService(t, nil)
	handler := NewReindexHandler(svc)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReindexArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error without corpus path")
	}

	corpusPath := filepath.Join(t.TempDir(), "corpus.yaml")
	data := "- hash: a\n  nombre_archivo: a.txt\n  contenido_extraido: alpha\n"
	if err := os.WriteFile(corpusPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	svc.settings.CorpusPath = corpusPath

	result, _, err = handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReindexArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected error: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "Indexed 1 documents") {
		t.Errorf("Unexpected reindex text: %s", text)
	}
	if !svc.IsReady() {
		t.Error("Expected service ready after reindex")
	}
}

func TestToolDefinitions(t *testing.T) {
	svc := setupService(t, nil)
	names := map[string]bool{}
	for _, tool := range []*mcp.Tool{
		NewSearchHandler(svc).GetToolDefinition(),
		NewFullTextHandler(svc).GetToolDefinition(),
		NewExportHandler(svc).GetToolDefinition(),
		NewAuditLogHandler(svc).GetToolDefinition(),
		NewCompareHandler(svc, snapdiff.DefaultPolicy).GetToolDefinition(),
		NewReindexHandler(svc).GetToolDefinition(),
	} {
		if tool.Name == "" || tool.Description == "" {
			t.Errorf("Incomplete tool definition: %+v", tool)
		}
		if names[tool.Name] {
			t.Errorf("Duplicate tool name %q", tool.Name)
		}
		names[tool.Name] = true
	}
}
