// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"strconv"
	"strings"
)

// Scorer derives a source-specific confidence from the raw disease text of
// a row. Scorers belong to adapters; the resolution cascade never sees the
// markers they read.
type Scorer func(raw string) string

// Marker keys understood by MarkerScorer.
const (
	MarkerProvisional = "?"
	MarkerBraces      = "{"
	MarkerBrackets    = "["
	MarkerDefault     = "default"
)

// OMIMMarkers is the default OMIM table: a leading "?" marks a provisional
// gene/phenotype relationship, braces a susceptibility or multifactorial
// disorder, brackets a non-disease trait.
var OMIMMarkers = map[string]string{
	MarkerProvisional: "provisional",
	MarkerBraces:      "susceptibility",
	MarkerBrackets:    "nondisease",
}

// MarkerScorer builds a scorer from a marker -> score table. Present
// markers are reported in the order ?, {, [ joined with ","; text with no
// marker scores as the "default" entry.
func MarkerScorer(table map[string]string) Scorer {
	return func(raw string) string {
		raw = strings.TrimSpace(raw)
		var parts []string
		if strings.HasPrefix(raw, "?") {
			if s := table[MarkerProvisional]; s != "" {
				parts = append(parts, s)
			}
		}
		if strings.Contains(raw, "{") {
			if s := table[MarkerBraces]; s != "" {
				parts = append(parts, s)
			}
		}
		if strings.Contains(raw, "[") {
			if s := table[MarkerBrackets]; s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return table[MarkerDefault]
		}
		return strings.Join(parts, ",")
	}
}

// OMIMScorer applies OMIMMarkers.
var OMIMScorer = MarkerScorer(OMIMMarkers)

// PValueScorer passes a p-value through when it parses as a number.
func PValueScorer(raw string) string {
	raw = strings.TrimSpace(raw)
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return ""
	}
	return raw
}

// ScorerFor builds the scorer configured for a source: a marker table when
// one is given, else nil so the adapter default applies.
func ScorerFor(table map[string]string) Scorer {
	if len(table) == 0 {
		return nil
	}
	return MarkerScorer(table)
}
