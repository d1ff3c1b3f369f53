// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// GWAS parses the GWAS Catalog associations TSV. Columns are located by
// header name. Each reported gene becomes its own record.
type GWAS struct {
	opts Options
}

// Name returns "GWAS".
func (s *GWAS) Name() string { return "GWAS" }

// skippedGWASGenes are placeholders the catalog uses instead of a symbol.
var skippedGWASGenes = map[string]bool{"NR": true, "INTERGENIC": true, "NA": true}

// Parse implements Source.
func (s *GWAS) Parse(r io.Reader, emit func(types.ExternalRecord) error) error {
	var idx map[string]int
	col := func(cols []string, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return field(cols, i)
	}

	return eachRow(tsvReader(r, 0), func(line int, cols []string) error {
		if idx == nil {
			idx = headerIndex(cols)
			if _, ok := idx["DISEASE/TRAIT"]; !ok {
				return fmt.Errorf("GWAS header at line %d has no DISEASE/TRAIT column", line)
			}
			return nil
		}

		trait := col(cols, "DISEASE/TRAIT")
		if trait == "" {
			s.opts.rowError(s.Name(), line, "empty DISEASE/TRAIT")
			return nil
		}
		genes := splitList(col(cols, "REPORTED GENE(S)"), ",")
		if len(genes) == 0 {
			s.opts.rowError(s.Name(), line, "no reported gene")
			return nil
		}

		pubmed := splitList(col(cols, "PUBMEDID"), ",")
		for _, g := range genes {
			if skippedGWASGenes[strings.ToUpper(g)] {
				continue
			}
			rec := types.ExternalRecord{
				SourceDatabase:  s.Name(),
				FreeTextKeyword: trait,
				GeneSymbol:      g,
				Taxon:           "human",
				EvidenceCode:    "IAGP",
				Comment:         col(cols, "STRONGEST SNP-RISK ALLELE"),
				DatabaseLink:    col(cols, "SNPS"),
				PubMedIDs:       pubmed,
				Score:           s.opts.score(col(cols, "P-VALUE"), PValueScorer),
				Line:            line,
			}
			if err := emit(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
