package docsearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/ranking"
)

// FullTextArgument defines keyword search parameters.
type FullTextArgument struct {
	Query     string `json:"query" jsonschema_description:"Keyword query over names, paths, tags and content"`
	Type      string `json:"type,omitempty" jsonschema_description:"Filter by document type"`
	Extension string `json:"extension,omitempty" jsonschema_description:"Filter by file extension"`
	Provider  string `json:"provider,omitempty" jsonschema_description:"Filter by provider"`
	Hospital  string `json:"hospital,omitempty" jsonschema_description:"Filter by hospital"`
	Year      string `json:"year,omitempty" jsonschema_description:"Filter by year"`
	Limit     int    `json:"limit,omitempty" jsonschema_description:"Maximum number of hits (default: 20)"`
}

// FullTextHandler handles the keyword search MCP tool.
type FullTextHandler struct {
	service *Service
}

// NewFullTextHandler creates a new keyword search handler.
func NewFullTextHandler(service *Service) *FullTextHandler {
	return &FullTextHandler{
		service: service,
	}
}

// Handle runs a keyword query and returns matching documents with highlights.
func (h *FullTextHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FullTextArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult("Search is not available. No document corpus has been loaded yet."), nil, nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	filters := ranking.Filters{
		Type:      args.Type,
		Extension: args.Extension,
		Provider:  args.Provider,
		Hospital:  args.Hospital,
		Year:      args.Year,
	}
	res, err := h.service.Engine().SearchFullText(args.Query, filters, args.Limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %v", err)), nil, nil
	}

	if len(res.Hits) == 0 {
		return textResult(fmt.Sprintf("No results found for query: %s", args.Query)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d matches for '%s' (showing %d):\n\n", res.Total, args.Query, len(res.Hits)))
	for i, hit := range res.Hits {
		name := hit.Path
		if name == "" {
			name = hit.ID
		}
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, name))
		sb.WriteString(fmt.Sprintf("**Score**: %.4f\n", hit.Score))
		for _, f := range hit.Fragments {
			sb.WriteString(fmt.Sprintf("> %s\n", strings.TrimSpace(f)))
		}
		sb.WriteString("\n")
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *FullTextHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_fulltext",
		Description: "Keyword search over indexed documents with highlighted fragments",
	}
}

// RegisterFullTextTool registers the keyword search tool with an MCP server.
func RegisterFullTextTool(server *mcp.Server, service *Service) {
	handler := NewFullTextHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
