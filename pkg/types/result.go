// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"strings"
)

// MappingType records which cascade stage produced a resolution.
type MappingType string

const (
	MappingXref            MappingType = "XREF"
	MappingInferredXref    MappingType = "INFERRED_XREF"
	MappingCurated         MappingType = "CURATED"
	MappingInferredCurated MappingType = "INFERRED_CURATED"
	MappingAnnotator       MappingType = "ANNOTATOR"
	MappingAnnotatorMod    MappingType = "ANNOTATOR_MODIFIED"
	MappingUnresolved      MappingType = "UNRESOLVED"
)

// MappingTypes lists every mapping type in cascade order.
var MappingTypes = []MappingType{
	MappingXref,
	MappingInferredXref,
	MappingCurated,
	MappingInferredCurated,
	MappingAnnotator,
	MappingAnnotatorMod,
	MappingUnresolved,
}

// Valid reports whether m is one of MappingTypes.
func (m MappingType) Valid() bool {
	for _, t := range MappingTypes {
		if m == t {
			return true
		}
	}
	return false
}

// TermRef references an ontology term. The ontology gateway owns terms;
// everything else only holds URIs.
type TermRef struct {
	URI      string `json:"uri" yaml:"uri"`
	Label    string `json:"label" yaml:"label"`
	Obsolete bool   `json:"obsolete,omitempty" yaml:"obsolete,omitempty"`
}

// ResolutionResult is the outcome of resolving one ExternalRecord.
type ResolutionResult struct {
	Record ExternalRecord `json:"record" yaml:"record"`

	// MatchedURIs is sorted and free of duplicates. Empty iff MappingType
	// is UNRESOLVED.
	MatchedURIs []string `json:"matched_uris" yaml:"matched_uris"`

	MappingType MappingType `json:"mapping_type" yaml:"mapping_type"`

	// OriginalPhraseTrail lists the code and phrases tried, in order.
	OriginalPhraseTrail string `json:"original_phrase_trail" yaml:"original_phrase_trail"`
}

// Resolved reports whether any URI was matched.
func (r ResolutionResult) Resolved() bool {
	return r.MappingType != MappingUnresolved && len(r.MatchedURIs) > 0
}

// JoinedURIs returns the matched URIs joined with ";".
func (r ResolutionResult) JoinedURIs() string {
	return strings.Join(r.MatchedURIs, ";")
}

// URISet returns a sorted copy of uris without duplicates or blanks.
func URISet(uris ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range uris {
		for _, u := range list {
			if u == "" {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
