// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/pkg/types"
)

const defaultLimit = 1000

// QueryOptions filters stored results.
type QueryOptions struct {
	RunID string

	// MappingType filters by cascade stage.
	MappingType types.MappingType

	// Text matches code or keyword, case-insensitively, as a substring.
	Text string

	// Limit caps the row count. Zero uses the default; negative means no
	// limit.
	Limit int
}

// Row is one stored result.
type Row struct {
	RunID        string            `json:"run_id" yaml:"-"`
	Source       string            `json:"source" yaml:"source"`
	SourceFile   string            `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Line         int               `json:"line,omitempty" yaml:"line,omitempty"`
	ExternalCode string            `json:"external_code,omitempty" yaml:"external_code,omitempty"`
	Keyword      string            `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	GeneSymbol   string            `json:"gene_symbol" yaml:"gene_symbol"`
	GeneID       int               `json:"gene_id" yaml:"gene_id"`
	EvidenceCode string            `json:"evidence_code" yaml:"evidence_code"`
	MappingType  types.MappingType `json:"mapping_type" yaml:"mapping_type"`
	URIs         []string          `json:"uris,omitempty" yaml:"uris,omitempty"`
	Trail        string            `json:"trail,omitempty" yaml:"trail,omitempty"`
}

// Results returns stored results matching opts in input order.
func (s *Store) Results(ctx context.Context, opts QueryOptions) ([]Row, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT run_id, source, source_file, line, external_code, keyword,
			gene_symbol, gene_id, evidence_code, mapping_type, uris, trail
		FROM results WHERE 1=1`)

	if opts.RunID != "" {
		qb.WriteString(` AND run_id = ?`)
		args = append(args, opts.RunID)
	}
	if opts.MappingType != "" {
		qb.WriteString(` AND mapping_type = ?`)
		args = append(args, string(opts.MappingType))
	}
	if opts.Text != "" {
		qb.WriteString(` AND (lower(external_code) LIKE ? OR lower(keyword) LIKE ?)`)
		pattern := "%" + strings.ToLower(opts.Text) + "%"
		args = append(args, pattern, pattern)
	}
	qb.WriteString(` ORDER BY rowid LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r                             Row
			mappingType                   string
			sourceFile, code, kw, urisRaw sql.NullString
			evidence, trail, symbol       sql.NullString
			line, geneID                  sql.NullInt64
		)
		if err := rows.Scan(
			&r.RunID, &r.Source, &sourceFile, &line, &code, &kw,
			&symbol, &geneID, &evidence, &mappingType, &urisRaw, &trail,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.SourceFile = sourceFile.String
		r.Line = int(line.Int64)
		r.ExternalCode = code.String
		r.Keyword = kw.String
		r.GeneSymbol = symbol.String
		r.GeneID = int(geneID.Int64)
		r.EvidenceCode = evidence.String
		r.MappingType = types.MappingType(mappingType)
		r.Trail = trail.String
		if urisRaw.Valid {
			json.Unmarshal([]byte(urisRaw.String), &r.URIs)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Unresolved returns the run's UNRESOLVED results.
func (s *Store) Unresolved(ctx context.Context, runID string) ([]Row, error) {
	return s.Results(ctx, QueryOptions{RunID: runID, MappingType: types.MappingUnresolved, Limit: -1})
}

// Issues returns the issues stored for a run.
func (s *Store) Issues(ctx context.Context, runID string) ([]issues.Issue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, source, line, key, message FROM issues WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	var out []issues.Issue
	for rows.Next() {
		var (
			is                   issues.Issue
			kind                 string
			source, key, message sql.NullString
			line                 sql.NullInt64
		)
		if err := rows.Scan(&kind, &source, &line, &key, &message); err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		is.Kind = issues.Kind(kind)
		is.Source = source.String
		is.Line = int(line.Int64)
		is.Key = key.String
		is.Message = message.String
		out = append(out, is)
	}
	return out, rows.Err()
}

// Summary counts a run's results by mapping type and its issues by kind.
type Summary struct {
	Run    Run                       `json:"run" yaml:"run"`
	ByType map[types.MappingType]int `json:"by_type" yaml:"by_type"`
	Issues map[issues.Kind]int       `json:"issues" yaml:"issues"`
}

// Total returns the number of stored results.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.ByType {
		n += c
	}
	return n
}

// Resolved returns the number of results with a mapping.
func (s Summary) Resolved() int {
	return s.Total() - s.ByType[types.MappingUnresolved]
}

// Summary returns the counts for one run.
func (s *Store) Summary(ctx context.Context, runID string) (Summary, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Run: run, ByType: make(map[types.MappingType]int), Issues: make(map[issues.Kind]int)}

	if err := s.countInto(ctx,
		`SELECT mapping_type, count(*) FROM results WHERE run_id = ? GROUP BY mapping_type`, runID,
		func(k string, n int) { sum.ByType[types.MappingType(k)] = n },
	); err != nil {
		return Summary{}, err
	}
	if err := s.countInto(ctx,
		`SELECT kind, count(*) FROM issues WHERE run_id = ? GROUP BY kind`, runID,
		func(k string, n int) { sum.Issues[issues.Kind(k)] = n },
	); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Store) countInto(ctx context.Context, query, runID string, set func(string, int)) error {
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("counting: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning count: %w", err)
		}
		set(key, n)
	}
	return rows.Err()
}
