package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/docsearch"
	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name         string
	Version      string
	DocSearchSvc *docsearch.Service
	Policy       snapdiff.Policy
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.DocSearchSvc != nil {
		docsearch.RegisterTools(s, cfg.DocSearchSvc, cfg.Policy)
	}

	return s
}
