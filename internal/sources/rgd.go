// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// RGD parses GAF 2.x disease annotation files published by RGD (one file
// per species). Rows qualified NOT are skipped.
type RGD struct {
	opts Options
}

// Name returns "RGD".
func (s *RGD) Name() string { return "RGD" }

// GAF 2.x columns.
const (
	gafDB = iota
	gafObjectID
	gafSymbol
	gafQualifier
	gafTermID
	gafReference
	gafEvidence
	gafWithFrom
	gafAspect
	gafName
	gafSynonym
	gafType
	gafTaxon
	gafMinColumns
)

// Parse implements Source.
func (s *RGD) Parse(r io.Reader, emit func(types.ExternalRecord) error) error {
	return eachRow(tsvReader(r, '!'), func(line int, cols []string) error {
		if len(cols) < gafMinColumns {
			s.opts.rowError(s.Name(), line, "expected at least %d GAF columns, got %d", gafMinColumns, len(cols))
			return nil
		}
		if strings.Contains(strings.ToUpper(field(cols, gafQualifier)), "NOT") {
			return nil
		}
		termID := field(cols, gafTermID)
		if termID == "" {
			s.opts.rowError(s.Name(), line, "missing term id")
			return nil
		}
		taxon, ok := gafTaxonName(field(cols, gafTaxon))
		if !ok {
			s.opts.rowError(s.Name(), line, "unknown taxon %q", cols[gafTaxon])
			return nil
		}

		var pmids []string
		for _, ref := range splitList(field(cols, gafReference), "|") {
			if id, ok := strings.CutPrefix(ref, "PMID:"); ok {
				pmids = append(pmids, id)
			}
		}

		rec := types.ExternalRecord{
			SourceDatabase: s.Name(),
			ExternalCode:   termID,
			GeneSymbol:     field(cols, gafSymbol),
			Taxon:          taxon,
			EvidenceCode:   field(cols, gafEvidence),
			Comment:        field(cols, gafWithFrom),
			DatabaseLink:   field(cols, gafDB) + ":" + field(cols, gafObjectID),
			PubMedIDs:      pmids,
			Score:          s.opts.score(field(cols, gafQualifier), nil),
			Line:           line,
		}
		return emit(rec)
	})
}

// gafTaxonName reads "taxon:10116" (first taxon when two are given).
func gafTaxonName(s string) (string, bool) {
	s, _, _ = strings.Cut(s, "|")
	id, err := strconv.Atoi(strings.TrimPrefix(s, "taxon:"))
	if err != nil {
		return "", false
	}
	name := types.TaxonName(id)
	return name, name != ""
}
