// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xref builds the cross-reference index: external code (e.g.
// "OMIM:104300") to the ontology terms that declare it. The index is built
// once per run from an ontology export and is read-only afterwards, so
// lookups need no locking.
package xref

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pdiddy/ontomap/internal/ontology"
)

// Options tune index building.
type Options struct {
	// PrefixAliases canonicalizes code prefixes (default ontology.DefaultPrefixAliases).
	PrefixAliases map[string]string

	// Prefixes, when non-empty, restricts the index to these canonical prefixes.
	Prefixes []string
}

// Stats summarizes a build.
type Stats struct {
	Terms    int // term blocks scanned
	Indexed  int // terms that contributed at least one code
	Obsolete int // terms skipped as obsolete
	Unknown  int // terms skipped because the gateway does not know them
	Codes    int // distinct codes in the index
}

// Index maps external codes to sets of term URIs. No obsolete URI is ever
// present.
type Index struct {
	entries map[string][]string
	aliases map[string]string
	stats   Stats
}

// Build streams an OBO export once. Terms marked obsolete in the export, or
// reported obsolete or unknown by the gateway, are skipped. A nil gateway
// only applies the export's own obsolete flags.
func Build(r io.Reader, gw ontology.Gateway, opts Options) (*Index, error) {
	aliases := opts.PrefixAliases
	if aliases == nil {
		aliases = ontology.DefaultPrefixAliases
	}
	allowed := make(map[string]bool, len(opts.Prefixes))
	for _, p := range opts.Prefixes {
		allowed[ontology.CodePrefix(ontology.NormalizeCode(p+":x", aliases))] = true
	}

	idx := &Index{entries: make(map[string][]string), aliases: aliases}
	sets := make(map[string]map[string]struct{})

	err := ontology.ParseOBO(r, func(s ontology.Stanza) error {
		idx.stats.Terms++
		if len(s.Xrefs) == 0 {
			return nil
		}
		uri := s.URI()
		if s.Obsolete {
			idx.stats.Obsolete++
			return nil
		}
		if gw != nil {
			if _, known := gw.Term(uri); !known {
				idx.stats.Unknown++
				return nil
			}
			if gw.IsObsolete(uri) {
				idx.stats.Obsolete++
				return nil
			}
		}

		added := false
		for _, x := range s.Xrefs {
			code := ontology.NormalizeCode(x, aliases)
			if len(allowed) > 0 && !allowed[ontology.CodePrefix(code)] {
				continue
			}
			set, ok := sets[code]
			if !ok {
				set = make(map[string]struct{})
				sets[code] = set
			}
			set[uri] = struct{}{}
			added = true
		}
		if added {
			idx.stats.Indexed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building cross-reference index: %w", err)
	}

	for code, set := range sets {
		uris := make([]string, 0, len(set))
		for u := range set {
			uris = append(uris, u)
		}
		sort.Strings(uris)
		idx.entries[code] = uris
	}
	idx.stats.Codes = len(idx.entries)
	return idx, nil
}

// BuildFile opens path and builds the index from it.
func BuildFile(path string, gw ontology.Gateway, opts Options) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ontology export: %w", err)
	}
	defer f.Close()
	return Build(f, gw, opts)
}

// New builds an index from an explicit code -> URIs map. Used to seed
// indices from other sources and in tests.
func New(entries map[string][]string) *Index {
	idx := &Index{entries: make(map[string][]string, len(entries)), aliases: ontology.DefaultPrefixAliases}
	for code, uris := range entries {
		code = ontology.NormalizeCode(code, idx.aliases)
		seen := make(map[string]bool)
		var set []string
		for _, u := range append(idx.entries[code], uris...) {
			if !seen[u] {
				seen[u] = true
				set = append(set, u)
			}
		}
		sort.Strings(set)
		idx.entries[code] = set
	}
	idx.stats.Codes = len(idx.entries)
	return idx
}

// Lookup returns the URIs cross-referencing code, sorted, or nil.
func (idx *Index) Lookup(code string) []string {
	uris := idx.entries[ontology.NormalizeCode(code, idx.aliases)]
	if len(uris) == 0 {
		return nil
	}
	return append([]string(nil), uris...)
}

// Len returns the number of distinct codes.
func (idx *Index) Len() int { return len(idx.entries) }

// Stats returns build statistics.
func (idx *Index) Stats() Stats { return idx.stats }

// Codes returns every indexed code, sorted.
func (idx *Index) Codes() []string {
	codes := make([]string, 0, len(idx.entries))
	for c := range idx.entries {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
