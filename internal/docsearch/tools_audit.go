package docsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/audit"
)

// Export kinds and formats.
const (
	ExportKindAudit       = "audit"
	ExportKindPerformance = "performance"
	ExportFormatJSON      = "json"
	ExportFormatCSV       = "csv"
)

// ExportArgument defines export parameters.
type ExportArgument struct {
	Kind     string `json:"kind,omitempty" jsonschema_description:"What to export: audit (default) or performance"`
	Format   string `json:"format,omitempty" jsonschema_description:"Output format: json (default) or csv"`
	Filename string `json:"filename,omitempty" jsonschema_description:"File name inside the export directory"`
}

// ExportHandler handles the audit export MCP tool.
type ExportHandler struct {
	service *Service
}

// NewExportHandler creates a new export handler.
func NewExportHandler(service *Service) *ExportHandler {
	return &ExportHandler{
		service: service,
	}
}

// Handle writes the requested export and reports its location.
func (h *ExportHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ExportArgument) (*mcp.CallToolResult, any, error) {
	kind := strings.ToLower(strings.TrimSpace(args.Kind))
	if kind == "" {
		kind = ExportKindAudit
	}
	format := strings.ToLower(strings.TrimSpace(args.Format))
	if format == "" {
		format = ExportFormatJSON
	}

	var export func(string) error
	engine := h.service.Engine()
	switch {
	case kind == ExportKindAudit && format == ExportFormatJSON:
		export = engine.ExportAuditJSON
	case kind == ExportKindAudit && format == ExportFormatCSV:
		export = engine.ExportAuditCSV
	case kind == ExportKindPerformance && format == ExportFormatJSON:
		export = engine.ExportPerformanceJSON
	case kind == ExportKindPerformance && format == ExportFormatCSV:
		export = engine.ExportPerformanceCSV
	default:
		return errorResult(fmt.Sprintf("Unsupported export: kind=%q format=%q", args.Kind, args.Format)), nil, nil
	}

	filename := args.Filename
	if filename == "" {
		filename = fmt.Sprintf("%s.%s", kind, format)
	}
	path, err := h.service.ExportPath(filename)
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid file name: %v", err)), nil, nil
	}

	if err := export(path); err != nil {
		return errorResult(fmt.Sprintf("Export failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Exported %s %s to %s", kind, format, path)), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ExportHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "export_audit",
		Description: "Export the last search audit or performance breakdown as JSON or CSV",
	}
}

// RegisterExportTool registers the export tool with an MCP server.
func RegisterExportTool(server *mcp.Server, service *Service) {
	handler := NewExportHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// AuditLogArgument defines audit log parameters.
type AuditLogArgument struct {
	Limit int `json:"limit,omitempty" jsonschema_description:"Number of most recent events to return (default: 20)"`
}

// AuditLogResult is the structured audit log view.
type AuditLogResult struct {
	Events []audit.Event     `json:"events"`
	Stats  audit.SearchStats `json:"stats"`
	Last   map[string]any    `json:"last_query_context,omitempty"`
}

// DefaultAuditLogLimit is the number of events returned when no limit is given.
const DefaultAuditLogLimit = 20

// AuditLogHandler handles the audit log MCP tool.
type AuditLogHandler struct {
	service *Service
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(service *Service) *AuditLogHandler {
	return &AuditLogHandler{
		service: service,
	}
}

// Handle returns recent audit events and aggregated search statistics.
func (h *AuditLogHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AuditLogArgument) (*mcp.CallToolResult, any, error) {
	if args.Limit < 0 {
		return errorResult("limit cannot be negative"), nil, nil
	}
	limit := args.Limit
	if limit == 0 {
		limit = DefaultAuditLogLimit
	}

	engine := h.service.Engine()
	out := AuditLogResult{
		Events: engine.AuditLog(limit),
		Stats:  engine.SearchStats(),
		Last:   engine.LastQueryContext(),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to encode audit log: %v", err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *AuditLogHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "audit_log",
		Description: "Show recent index and search audit events with the most frequent queries",
	}
}

// RegisterAuditLogTool registers the audit log tool with an MCP server.
func RegisterAuditLogTool(server *mcp.Server, service *Service) {
	handler := NewAuditLogHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
