// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// OMIM parses morbidmap.txt: phenotype, gene symbols, gene MIM number,
// cytogenetic location.
type OMIM struct {
	opts Options
}

// Name returns "OMIM".
func (s *OMIM) Name() string { return "OMIM" }

var (
	// "Alzheimer disease, type 1, 104300 (3)"
	phenoWithMIM = regexp.MustCompile(`^(.*?),\s*(\d{6})\s*\((\d)\)\s*$`)
	// "Alzheimer disease, susceptibility to (2)"
	phenoKeyOnly = regexp.MustCompile(`^(.*?)\s*\((\d)\)\s*$`)
)

// Phenotype splits an OMIM phenotype field into its description, phenotype
// MIM number (may be empty) and mapping key.
func Phenotype(field string) (text, mim, key string, ok bool) {
	field = strings.TrimSpace(field)
	if m := phenoWithMIM.FindStringSubmatch(field); m != nil {
		return strings.TrimSpace(m[1]), m[2], m[3], true
	}
	if m := phenoKeyOnly.FindStringSubmatch(field); m != nil {
		return strings.TrimSpace(m[1]), "", m[2], true
	}
	return "", "", "", false
}

// Parse implements Source.
func (s *OMIM) Parse(r io.Reader, emit func(types.ExternalRecord) error) error {
	return eachRow(tsvReader(r, '#'), func(line int, cols []string) error {
		if len(cols) < 3 {
			s.opts.rowError(s.Name(), line, "expected at least 3 columns, got %d", len(cols))
			return nil
		}
		text, mim, key, ok := Phenotype(cols[0])
		if !ok || text == "" {
			s.opts.rowError(s.Name(), line, "unparsable phenotype %q", cols[0])
			return nil
		}
		symbols := splitList(cols[1], ",")
		if len(symbols) == 0 {
			s.opts.rowError(s.Name(), line, "no gene symbol")
			return nil
		}

		rec := types.ExternalRecord{
			SourceDatabase:  s.Name(),
			FreeTextKeyword: text,
			GeneSymbol:      symbols[0],
			Taxon:           "human",
			EvidenceCode:    "TAS",
			Comment:         "OMIM mapping key " + key,
			DatabaseLink:    field(cols, 2),
			Score:           s.opts.score(text, OMIMScorer),
			Line:            line,
		}
		if mim != "" {
			rec.ExternalCode = "OMIM:" + mim
		}
		return emit(rec)
	})
}
