// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources parses external disease/gene association files into
// types.ExternalRecord values. Each database format has one adapter behind
// the Source interface; adapters only parse, they never resolve.
package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// Source parses one external file format.
type Source interface {
	// Name returns the database name written to SourceDatabase.
	Name() string

	// Parse reads r and calls emit for every record. Rows that cannot be
	// parsed are reported to the adapter's OnRowError and skipped. An
	// error from emit stops parsing and is returned.
	Parse(r io.Reader, emit func(types.ExternalRecord) error) error
}

// RowError describes a structurally malformed input row.
type RowError struct {
	Source string
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Source, e.Line, e.Reason)
}

// Options configure an adapter.
type Options struct {
	// Scorer assigns ExternalRecord.Score from the raw disease text. Nil
	// uses the adapter's default.
	Scorer Scorer

	// OnRowError receives malformed rows. Nil drops them silently.
	OnRowError func(*RowError)

	// IncludeInferred keeps rows a source marks as inferred rather than
	// curated (CTD inference rows).
	IncludeInferred bool
}

func (o Options) rowError(source string, line int, format string, args ...any) {
	if o.OnRowError != nil {
		o.OnRowError(&RowError{Source: source, Line: line, Reason: fmt.Sprintf(format, args...)})
	}
}

func (o Options) score(raw string, fallback Scorer) string {
	if o.Scorer != nil {
		return o.Scorer(raw)
	}
	if fallback != nil {
		return fallback(raw)
	}
	return ""
}

// Constructor builds an adapter.
type Constructor func(Options) Source

// registry maps lowercase source names to adapters.
var registry = map[string]Constructor{
	"omim": func(o Options) Source { return &OMIM{opts: o} },
	"ctd":  func(o Options) Source { return &CTD{opts: o} },
	"rgd":  func(o Options) Source { return &RGD{opts: o} },
	"gwas": func(o Options) Source { return &GWAS{opts: o} },
	"dga":  func(o Options) Source { return &DGA{opts: o} },
}

// ErrUnknownSource is returned by New for unregistered names.
var ErrUnknownSource = errors.New("unknown source")

// New returns the adapter registered under name.
func New(name string, opts Options) (Source, error) {
	c, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q (known: %s): %w", name, strings.Join(Names(), ", "), ErrUnknownSource)
	}
	return c(opts), nil
}

// Names lists the registered sources, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// evidenceCodes is the recognized GO-style evidence code set.
var evidenceCodes = map[string]bool{
	"EXP": true, "IDA": true, "IPI": true, "IMP": true, "IGI": true, "IEP": true,
	"HTP": true, "HDA": true, "HMP": true, "HGI": true, "HEP": true,
	"ISS": true, "ISO": true, "ISA": true, "ISM": true, "IGC": true, "RCA": true,
	"IBA": true, "IBD": true, "IKR": true, "IRD": true,
	"TAS": true, "NAS": true, "IC": true, "ND": true, "IEA": true,
	"IAGP": true, "IPM": true, "QTM": true, "IED": true,
}

// ValidEvidence reports whether code is a recognized evidence code.
func ValidEvidence(code string) bool {
	return evidenceCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// tsvReader returns a tab-separated reader tolerant of ragged rows and
// stray quotes.
func tsvReader(r io.Reader, comment rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// eachRow calls fn for every row of a TSV with its 1-based line number.
func eachRow(cr *csv.Reader, fn func(line int, cols []string) error) error {
	for {
		cols, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if err := fn(line, cols); err != nil {
			return err
		}
	}
}

// headerIndex maps header names (case-insensitive, trimmed) to columns.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "#")))] = i
	}
	return idx
}

func field(cols []string, i int) string {
	if i < 0 || i >= len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[i])
}

// splitList splits sep-separated values, dropping blanks and "-".
func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" && p != "-" {
			out = append(out, p)
		}
	}
	return out
}

// ParseFile opens path and parses it with src, stamping SourceFile on every
// record.
func ParseFile(src Source, path string, emit func(types.ExternalRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s input: %w", src.Name(), err)
	}
	defer f.Close()
	return src.Parse(f, func(rec types.ExternalRecord) error {
		rec.SourceFile = path
		return emit(rec)
	})
}
