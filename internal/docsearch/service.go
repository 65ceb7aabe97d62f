// Package docsearch exposes the ranking engine as MCP tools.
package docsearch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kurtbrian03/docrank/internal/audit"
	"github.com/kurtbrian03/docrank/internal/config"
	"github.com/kurtbrian03/docrank/internal/corpus"
	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/index"
	"github.com/kurtbrian03/docrank/internal/ranking"
)

// Service owns the ranking engine and the corpus it was loaded from.
type Service struct {
	settings *config.EngineSettings
	engine   *ranking.Engine
	weights  map[string]float64
	ready    bool
	mu       sync.RWMutex
}

// NewService creates a service. cfg wires engine collaborators; a missing
// recorder keeps settings.AuditCapacity events and a missing extractor
// reads plain text up to settings.MaxContentBytes.
func NewService(settings *config.EngineSettings, cfg ranking.Config) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	if settings.ExportDir != "" {
		if err := os.MkdirAll(settings.ExportDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	var weights map[string]float64
	if settings.WeightsFile != "" {
		w, err := ranking.LoadWeightsFile(settings.WeightsFile)
		if err != nil {
			return nil, err
		}
		weights = w
	}

	if cfg.Recorder == nil {
		cfg.Recorder = audit.NewRecorder(settings.AuditCapacity)
	}
	if cfg.Extractor == nil {
		cfg.Extractor = index.NewPlainTextExtractor(settings.MaxContentBytes)
	}

	return &Service{
		settings: settings,
		engine:   ranking.NewEngine(nil, cfg),
		weights:  weights,
	}, nil
}

// Initialize loads the configured corpus and builds the index. Without a
// corpus path the service stays not ready.
func (s *Service) Initialize(ctx context.Context) error {
	if s.settings.CorpusPath == "" {
		slog.Warn("No corpus configured, search disabled until reindex")
		return nil
	}
	_, err := s.Reindex(ctx)
	return err
}

// Reindex reloads the corpus file and rebuilds the index.
func (s *Service) Reindex(ctx context.Context) (index.BuildStats, error) {
	if err := ctx.Err(); err != nil {
		return index.BuildStats{}, err
	}
	if s.settings.CorpusPath == "" {
		return index.BuildStats{}, fmt.Errorf("no corpus path configured")
	}
	records, err := corpus.Load(s.settings.CorpusPath)
	if err != nil {
		return index.BuildStats{}, err
	}
	return s.Load(records), nil
}

// Load replaces the corpus with records and marks the service ready.
func (s *Service) Load(records []domain.Record) index.BuildStats {
	stats := s.engine.Load(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	slog.Info("Documents ready", "count", stats.Documents, "failed", stats.Failed)
	return stats
}

// IsReady returns true once a corpus has been loaded.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Engine returns the ranking engine.
func (s *Service) Engine() *ranking.Engine {
	return s.engine
}

// GetSettings returns the service settings.
func (s *Service) GetSettings() *config.EngineSettings {
	return s.settings
}

// NewRequest builds a search request with the configured defaults applied.
func (s *Service) NewRequest(query string) ranking.Request {
	req := ranking.NewRequest(query)
	req.Mode = s.settings.DefaultMode
	req.TopK = s.settings.TopK
	req.UseSemantic = s.settings.Semantic
	req.Fuzzy = s.settings.Fuzzy
	req.Weights = s.weights
	return req
}

// ExportPath resolves name inside the export directory.
func (s *Service) ExportPath(name string) (string, error) {
	if err := validateFilename(name); err != nil {
		return "", err
	}
	return filepath.Join(s.settings.ExportDir, name), nil
}

// Close releases all resources.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Invalidate()
	s.ready = false
	return nil
}

// validateFilename accepts a bare file name only.
func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute paths are not allowed")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("file name must not contain path separators")
	}
	return nil
}
