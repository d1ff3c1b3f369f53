// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curation loads the manual mapping table: curated keys (external
// codes or free-text phrases) mapped to ontology terms, validated against
// the ontology when loaded.
//
// The file is tab separated, one entry per line:
//
//	key <TAB> uri|uri... <TAB> label|label... [<TAB> note]
//
// A "#version: <v>" comment names the table version; other lines starting
// with "#" and blank lines are ignored.
package curation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/internal/ontology"
	"github.com/pdiddy/ontomap/internal/textnorm"
	"github.com/pdiddy/ontomap/pkg/types"
)

const (
	versionPrefix = "#version:"
	listSep       = "|"
)

// MalformedRowError reports a row with the wrong number of columns. It
// stops the load.
type MalformedRowError struct {
	Source  string
	Line    int
	Columns int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s:%d: expected 3 or 4 tab-separated columns, got %d", e.Source, e.Line, e.Columns)
}

// Entry is one accepted mapping.
type Entry struct {
	Key    string
	URIs   []string
	Labels []string
	Note   string
	Line   int
}

// Table maps lowercase keys to curated URIs. It is read-only after Load.
type Table struct {
	Version  string
	entries  map[string]Entry
	rejected int
}

// Load reads a table from r. Entries that fail validation against gw are
// rejected, recorded in col and skipped; a nil gw skips validation. Only a
// malformed row or a read failure returns an error.
func Load(r io.Reader, source string, gw ontology.Gateway, col *issues.Collector) (*Table, error) {
	t := &Table{entries: make(map[string]Entry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if v, ok := strings.CutPrefix(line, versionPrefix); ok {
				t.Version = strings.TrimSpace(v)
			}
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < 3 || len(cols) > 4 {
			return nil, &MalformedRowError{Source: source, Line: lineNo, Columns: len(cols)}
		}

		e := Entry{
			Key:    textnorm.Key(cols[0]),
			URIs:   splitList(cols[1]),
			Labels: splitList(cols[2]),
			Line:   lineNo,
		}
		if len(cols) == 4 {
			e.Note = strings.TrimSpace(cols[3])
		}

		if err := validate(e, gw); err != nil {
			t.rejected++
			col.Add(issues.Issue{
				Kind:    issues.Validation,
				Source:  source,
				Line:    lineNo,
				Key:     e.Key,
				Message: err.Error(),
			})
			continue
		}

		if prev, dup := t.entries[e.Key]; dup {
			col.Add(issues.Issue{
				Kind:    issues.Validation,
				Source:  source,
				Line:    lineNo,
				Key:     e.Key,
				Message: fmt.Sprintf("duplicate key, merged with line %d", prev.Line),
			})
			e.URIs, e.Labels = mergeURIs(prev, e)
			e.Line = prev.Line
		} else {
			e.URIs, e.Labels = mergeURIs(e)
		}
		t.entries[e.Key] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return t, nil
}

// LoadFile opens path and loads the table from it.
func LoadFile(path string, gw ontology.Gateway, col *issues.Collector) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manual mapping table: %w", err)
	}
	defer f.Close()
	return Load(f, path, gw, col)
}

// validate checks an entry against the ontology. Each URI must be known,
// not obsolete, and carry the expected label (compared case-insensitively).
func validate(e Entry, gw ontology.Gateway) error {
	if e.Key == "" {
		return errors.New("empty key")
	}
	if len(e.URIs) == 0 {
		return errors.New("no URIs")
	}
	if len(e.Labels) != len(e.URIs) {
		return fmt.Errorf("%d URIs but %d expected labels", len(e.URIs), len(e.Labels))
	}
	if gw == nil {
		return nil
	}
	var errs []error
	for i, uri := range e.URIs {
		term, ok := gw.Term(uri)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("unknown term %s", uri))
		case term.Obsolete || gw.IsObsolete(uri):
			errs = append(errs, fmt.Errorf("obsolete term %s", uri))
		case !strings.EqualFold(strings.TrimSpace(term.Label), e.Labels[i]):
			errs = append(errs, fmt.Errorf("label mismatch for %s: expected %q, ontology has %q", uri, e.Labels[i], term.Label))
		}
	}
	return errors.Join(errs...)
}

// mergeURIs returns the sorted, unique URIs of entries with the label of
// each URI at the same index. The first label seen for a URI wins.
func mergeURIs(entries ...Entry) ([]string, []string) {
	labelOf := make(map[string]string)
	var lists [][]string
	for _, e := range entries {
		lists = append(lists, e.URIs)
		for i, uri := range e.URIs {
			if _, ok := labelOf[uri]; !ok && i < len(e.Labels) {
				labelOf[uri] = e.Labels[i]
			}
		}
	}
	uris := types.URISet(lists...)
	labels := make([]string, len(uris))
	for i, uri := range uris {
		labels[i] = labelOf[uri]
	}
	return uris, labels
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Lookup returns the URIs curated for key, compared case-insensitively.
func (t *Table) Lookup(key string) []string {
	e, ok := t.entries[textnorm.Key(key)]
	if !ok {
		return nil
	}
	return append([]string(nil), e.URIs...)
}

// Entry returns the accepted entry for key.
func (t *Table) Entry(key string) (Entry, bool) {
	e, ok := t.entries[textnorm.Key(key)]
	return e, ok
}

// Len returns the number of accepted entries.
func (t *Table) Len() int { return len(t.entries) }

// Rejected returns the number of rows that failed validation.
func (t *Table) Rejected() int { return t.rejected }

// New builds a table from key -> URIs without validation.
func New(entries map[string][]string) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for k, uris := range entries {
		key := textnorm.Key(k)
		t.entries[key] = Entry{Key: key, URIs: types.URISet(uris)}
	}
	return t
}
