package docsearch

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

// RegisterTools registers every document search tool with an MCP server.
func RegisterTools(server *mcp.Server, service *Service, policy snapdiff.Policy) {
	RegisterSearchTool(server, service)
	RegisterFullTextTool(server, service)
	RegisterExportTool(server, service)
	RegisterAuditLogTool(server, service)
	RegisterCompareTool(server, service, policy)
	RegisterReindexTool(server, service)
}
