// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file holds one secret: the filename is the key name and the trimmed
// contents are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// Key files read from the secrets directory.
const (
	AnnotatorAPIKey = "annotator-api-key"
	Neo4jPassword   = "neo4j-password"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are
// logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills credentials that cfg leaves empty. Values already set by the
// config file or environment win.
func Apply(cfg *types.Config, secrets map[string]string) {
	if cfg.Annotator.APIKey == "" {
		cfg.Annotator.APIKey = secrets[AnnotatorAPIKey]
	}
	if cfg.Ontology.Neo4j.Password == "" {
		cfg.Ontology.Neo4j.Password = secrets[Neo4jPassword]
	}
}
