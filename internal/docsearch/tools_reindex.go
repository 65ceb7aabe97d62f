package docsearch

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgument takes no parameters.
type ReindexArgument struct{}

// ReindexHandler handles the reindex MCP tool.
type ReindexHandler struct {
	service *Service
}

// NewReindexHandler creates a new reindex handler.
func NewReindexHandler(service *Service) *ReindexHandler {
	return &ReindexHandler{
		service: service,
	}
}

// Handle reloads the corpus file and rebuilds the index.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgument) (*mcp.CallToolResult, any, error) {
	stats, err := h.service.Reindex(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Reindex failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Indexed %d documents (%d failed, %d re-extracted, %d id collisions) in %d ms",
		stats.Documents, stats.Failed, stats.Extracted, stats.Collisions, stats.Duration.Milliseconds())), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReindexHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reindex",
		Description: "Reload the document corpus and rebuild the search index",
	}
}

// RegisterReindexTool registers the reindex tool with an MCP server.
func RegisterReindexTool(server *mcp.Server, service *Service) {
	handler := NewReindexHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
