package docsearch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

// CompareArgument defines snapshot comparison parameters.
type CompareArgument struct {
	SnapshotA             string   `json:"snapshot_a" jsonschema_description:"Baseline audit export (relative paths resolve inside the export directory)"`
	SnapshotB             string   `json:"snapshot_b" jsonschema_description:"Candidate audit export (relative paths resolve inside the export directory)"`
	TopN                  int      `json:"top_n,omitempty" jsonschema_description:"Number of largest rank changes to list (default: 20)"`
	MaxDownPct            *float64 `json:"max_down_pct,omitempty" jsonschema_description:"Fail when more than this percentage of common documents moved down"`
	MaxNegativeDeltaScore *float64 `json:"max_negative_delta_score,omitempty" jsonschema_description:"Fail when the average final score dropped by more than this"`
	WriteReports          bool     `json:"write_reports,omitempty" jsonschema_description:"Write JSON, CSV and TXT reports to the export directory"`
}

// CompareHandler handles the snapshot comparison MCP tool.
type CompareHandler struct {
	service *Service
	policy  snapdiff.Policy
}

// NewCompareHandler creates a new comparison handler that evaluates policy
// unless a call overrides its thresholds.
func NewCompareHandler(service *Service, policy snapdiff.Policy) *CompareHandler {
	return &CompareHandler{
		service: service,
		policy:  policy,
	}
}

// Handle compares two snapshots and evaluates the regression policy.
func (h *CompareHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CompareArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.SnapshotA) == "" || strings.TrimSpace(args.SnapshotB) == "" {
		return errorResult("Both snapshot_a and snapshot_b are required"), nil, nil
	}
	if args.TopN < 0 {
		return errorResult("top_n cannot be negative"), nil, nil
	}

	policy := h.policy
	if args.MaxDownPct != nil {
		policy.MaxDownPct = *args.MaxDownPct
	}
	if args.MaxNegativeDeltaScore != nil {
		policy.MaxNegativeDeltaScore = *args.MaxNegativeDeltaScore
	}

	pathA := h.resolve(args.SnapshotA)
	pathB := h.resolve(args.SnapshotB)
	d, err := snapdiff.CompareFiles(pathA, pathB, filepath.Base(pathA), filepath.Base(pathB), args.TopN)
	if err != nil {
		return errorResult(fmt.Sprintf("Comparison failed: %v", err)), nil, nil
	}

	ok, message := policy.Evaluate(d)

	var sb strings.Builder
	sb.WriteString(snapdiff.Report(d))
	sb.WriteString("\n")
	sb.WriteString(message)
	sb.WriteString("\n")

	if args.WriteReports {
		dir := h.service.GetSettings().ExportDir
		if err := snapdiff.WriteReports(dir, d); err != nil {
			return errorResult(fmt.Sprintf("Failed to write reports: %v", err)), nil, nil
		}
		sb.WriteString(fmt.Sprintf("Reports written to %s\n", dir))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
		IsError: !ok,
	}, nil, nil
}

func (h *CompareHandler) resolve(path string) string {
	path = strings.TrimSpace(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.service.GetSettings().ExportDir, path)
}

// GetToolDefinition returns the MCP tool definition.
func (h *CompareHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "compare_snapshots",
		Description: "Diff two audit exports by document path and check the ranking regression policy",
	}
}

// RegisterCompareTool registers the comparison tool with an MCP server.
func RegisterCompareTool(server *mcp.Server, service *Service, policy snapdiff.Policy) {
	handler := NewCompareHandler(service, policy)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
