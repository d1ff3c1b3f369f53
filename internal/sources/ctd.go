// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// CTD parses CTD_genes_diseases.tsv: GeneSymbol, GeneID, DiseaseName,
// DiseaseID, DirectEvidence, InferenceChemicalName, InferenceScore,
// OmimIDs, PubMedIDs. Rows without direct evidence are inferred through a
// chemical and are skipped unless IncludeInferred is set.
type CTD struct {
	opts Options
}

// Name returns "CTD".
func (s *CTD) Name() string { return "CTD" }

const (
	ctdSymbol = iota
	ctdGeneID
	ctdDiseaseName
	ctdDiseaseID
	ctdDirectEvidence
	ctdInferenceChemical
	ctdInferenceScore
	ctdOmimIDs
	ctdPubMedIDs
	ctdColumns
)

// Parse implements Source.
func (s *CTD) Parse(r io.Reader, emit func(types.ExternalRecord) error) error {
	return eachRow(tsvReader(r, '#'), func(line int, cols []string) error {
		if len(cols) < ctdColumns-1 {
			s.opts.rowError(s.Name(), line, "expected %d columns, got %d", ctdColumns, len(cols))
			return nil
		}
		geneID, err := strconv.Atoi(field(cols, ctdGeneID))
		if err != nil {
			s.opts.rowError(s.Name(), line, "bad GeneID %q", cols[ctdGeneID])
			return nil
		}

		direct := field(cols, ctdDirectEvidence)
		evidence := "TAS"
		comment := direct
		if direct == "" {
			if !s.opts.IncludeInferred {
				return nil
			}
			evidence = "IEA"
			comment = "inferred via " + field(cols, ctdInferenceChemical)
		}

		rec := types.ExternalRecord{
			SourceDatabase:  s.Name(),
			ExternalCode:    field(cols, ctdDiseaseID),
			FreeTextKeyword: field(cols, ctdDiseaseName),
			SubjectGeneID:   geneID,
			GeneSymbol:      field(cols, ctdSymbol),
			Taxon:           "human",
			EvidenceCode:    evidence,
			Comment:         comment,
			DatabaseLink:    strings.TrimPrefix(field(cols, ctdDiseaseID), "MESH:"),
			PubMedIDs:       splitList(field(cols, ctdPubMedIDs), "|"),
			Score:           s.opts.score(field(cols, ctdInferenceScore), nil),
			Line:            line,
		}
		return emit(rec)
	})
}
