// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pdiddy/ontomap/pkg/types"
)

// DGA parses the Disease and Gene Annotations export: a headed TSV with
// GeneID, GeneSymbol, DOID, DiseaseName, PubMedID and GeneRIF columns.
type DGA struct {
	opts Options
}

// Name returns "DGA".
func (s *DGA) Name() string { return "DGA" }

var dgaRequired = []string{"GENEID", "DOID", "DISEASENAME"}

// Parse implements Source.
func (s *DGA) Parse(r io.Reader, emit func(types.ExternalRecord) error) error {
	var idx map[string]int
	col := func(cols []string, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return field(cols, i)
	}

	return eachRow(tsvReader(r, '#'), func(line int, cols []string) error {
		if idx == nil {
			idx = headerIndex(cols)
			for _, name := range dgaRequired {
				if _, ok := idx[name]; !ok {
					return fmt.Errorf("DGA header at line %d has no %s column", line, name)
				}
			}
			return nil
		}

		geneID, err := strconv.Atoi(col(cols, "GENEID"))
		if err != nil {
			s.opts.rowError(s.Name(), line, "bad GeneID %q", col(cols, "GENEID"))
			return nil
		}
		code := col(cols, "DOID")
		name := col(cols, "DISEASENAME")
		if code == "" && name == "" {
			s.opts.rowError(s.Name(), line, "neither DOID nor disease name")
			return nil
		}

		rec := types.ExternalRecord{
			SourceDatabase:  s.Name(),
			ExternalCode:    code,
			FreeTextKeyword: name,
			SubjectGeneID:   geneID,
			GeneSymbol:      col(cols, "GENESYMBOL"),
			Taxon:           "human",
			EvidenceCode:    "TAS",
			Comment:         col(cols, "GENERIF"),
			DatabaseLink:    col(cols, "PUBMEDID"),
			PubMedIDs:       splitList(col(cols, "PUBMEDID"), ","),
			Score:           s.opts.score(name, nil),
			Line:            line,
		}
		return emit(rec)
	})
}
