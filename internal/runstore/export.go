// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ontomap/internal/issues"
)

// Export is a whole run as written by ExportYAML and ExportJSON.
type Export struct {
	Summary Summary        `json:"summary" yaml:"summary"`
	Results []Row          `json:"results" yaml:"results"`
	Issues  []issues.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// ExportRun collects a run's summary, results and issues.
func (s *Store) ExportRun(ctx context.Context, runID string) (Export, error) {
	sum, err := s.Summary(ctx, runID)
	if err != nil {
		return Export{}, err
	}
	rows, err := s.Results(ctx, QueryOptions{RunID: runID, Limit: -1})
	if err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	list, err := s.Issues(ctx, runID)
	if err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	return Export{Summary: sum, Results: rows, Issues: list}, nil
}

// ExportYAML writes a run as YAML.
func (s *Store) ExportYAML(ctx context.Context, runID string, w io.Writer) error {
	exp, err := s.ExportRun(ctx, runID)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes a run as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, runID string, w io.Writer) error {
	exp, err := s.ExportRun(ctx, runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
