package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/kurtbrian03/docrank/internal/config"
	"github.com/kurtbrian03/docrank/internal/docsearch"
	mcputil "github.com/kurtbrian03/docrank/internal/mcp"
	"github.com/kurtbrian03/docrank/internal/metrics"
	"github.com/kurtbrian03/docrank/internal/ranking"
	"github.com/kurtbrian03/docrank/internal/snapdiff"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings, *prometheus.Registry) error
	CreateServer      func(*config.Settings, *prometheus.Registry, string) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// SetupLogging installs the stderr text handler as the default logger.
// Stdout stays free for the stdio transport and command output.
func SetupLogging() {
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	SetupLogging()

	slog.Info("Starting docrank MCP server", "version", version)
	config.Log(settings)

	reg := metrics.NewRegistry()
	mcpServer, cleanup, err := params.CreateServer(settings, reg, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if settings.Transport == "stdio" {
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}
	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings, reg)
}

// CreateMCPServer creates the MCP server with the document search tools.
// A corpus that fails to load leaves search disabled until a reindex.
func CreateMCPServer(settings *config.Settings, reg *prometheus.Registry, version string) (*mcp.Server, func(), error) {
	m := metrics.NewMetrics()
	if reg != nil {
		if err := m.Register(reg); err != nil {
			return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	svc, err := docsearch.NewService(&settings.Engine, ranking.Config{Observer: m})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create document search service: %w", err)
	}

	if err := svc.Initialize(context.Background()); err != nil {
		slog.Error("Corpus initialization failed", "error", err)
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close document search service", "error", err)
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:         "docrank",
		Version:      version,
		DocSearchSvc: svc,
		Policy:       PolicyFromSettings(settings.CI),
	})

	return server, cleanup, nil
}

// PolicyFromSettings builds the regression policy from CI settings.
func PolicyFromSettings(ci config.CISettings) snapdiff.Policy {
	return snapdiff.Policy{
		MaxDownPct:            ci.MaxDownPct,
		MaxNegativeDeltaScore: ci.MaxNegativeDeltaScore,
	}
}
