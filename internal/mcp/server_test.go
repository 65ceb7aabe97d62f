package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/config"
	"github.com/kurtbrian03/docrank/internal/docsearch"
	"github.com/kurtbrian03/docrank/internal/ranking"
	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

func TestCreateServer(t *testing.T) {
	cfg := ServerConfig{
		Name:    "test-server",
		Version: "1.0.0",
	}

	server := CreateServer(cfg)
	if server == nil {
		t.Fatal("Expected server to be created")
	}
}

func TestCreateServer_EmptyConfig(t *testing.T) {
	server := CreateServer(ServerConfig{})
	if server == nil {
		t.Fatal("Expected server to be created even with empty config")
	}
}

func newDocSearchService(t *testing.T) *docsearch.Service {
	t.Helper()
	settings := &config.EngineSettings{
		AuditCapacity:   10,
		DefaultMode:     "flexible",
		TopK:            20,
		Semantic:        true,
		Fuzzy:           true,
		MaxContentBytes: 1024,
		ExportDir:       filepath.Join(t.TempDir(), "exports"),
	}
	svc, err := docsearch.NewService(settings, ranking.Config{})
	if err != nil {
		t.Fatalf("Failed to create docsearch service: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Failed to close service: %v", err)
		}
	})
	return svc
}

func TestCreateServer_ToolsRegistered(t *testing.T) {
	server := CreateServer(ServerConfig{
		Name:         "test-server",
		Version:      "1.0.0",
		DocSearchSvc: newDocSearchService(t),
		Policy:       snapdiff.DefaultPolicy,
	})

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"search_documents", "search_fulltext", "export_audit", "audit_log", "compare_snapshots", "reindex"} {
		if !got[name] {
			t.Errorf("Expected tool %q to be registered, got %v", name, got)
		}
	}
}
