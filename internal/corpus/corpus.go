// Package corpus loads raw document records from JSON or YAML files.
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kurtbrian03/docrank/internal/domain"
)

// wrapperKeys are accepted when the file holds an object instead of a list.
var wrapperKeys = []string{"documents", "documentos"}

// Load reads records from path. JSON is used for .json files and for content
// starting with '[' or '{'; everything else is parsed as YAML. The file may
// hold a list of records or an object wrapping one under "documents".
func Load(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	records, err := Parse(data, isJSON(path, data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	slog.Info("Corpus loaded", "path", path, "records", len(records))
	return records, nil
}

// Parse decodes records from data.
func Parse(data []byte, asJSON bool) ([]domain.Record, error) {
	var raw any
	if asJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	if raw == nil {
		return nil, nil
	}

	if obj, ok := raw.(map[string]any); ok {
		found := false
		for _, k := range wrapperKeys {
			if v, ok := obj[k]; ok {
				raw, found = v, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("object has none of the keys %v", wrapperKeys)
		}
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of records, got %T", raw)
	}
	records := make([]domain.Record, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			// the index builder counts nil records as failures
			slog.Warn("Skipping non-object corpus entry", "position", i)
			records = append(records, nil)
			continue
		}
		records = append(records, domain.Record(m))
	}
	return records, nil
}

func isJSON(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return true
	case ".yaml", ".yml":
		return false
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}
