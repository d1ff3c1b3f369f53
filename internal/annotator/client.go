// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotator wraps the external text-to-ontology annotation service.
// Client is the raw RPC surface; Service adds bounded retries and a per-run
// cache so that each distinct phrase reaches the network at most once.
package annotator

import (
	"context"
	"errors"
)

// ErrServiceUnavailable is returned when every retry of a call failed with a
// transient error. Service degrades it to "no candidates".
var ErrServiceUnavailable = errors.New("annotator service unavailable")

// Match conditions reported by the service.
const (
	MatchPref = "PREF"
	MatchSyn  = "SYN"
)

// DefaultAcceptedMatchTypes are the match conditions accepted for a top
// candidate when none are configured.
var DefaultAcceptedMatchTypes = []string{MatchPref, MatchSyn}

// Candidate is one ranked match returned for a phrase.
type Candidate struct {
	URI       string `json:"uri" yaml:"uri"`
	Label     string `json:"label" yaml:"label"`
	MatchType string `json:"match_type" yaml:"match_type"`
	Ontology  string `json:"ontology,omitempty" yaml:"ontology,omitempty"`
	Obsolete  bool   `json:"obsolete,omitempty" yaml:"obsolete,omitempty"`

	// Whole reports that the match spans the entire phrase.
	Whole bool `json:"whole,omitempty" yaml:"whole,omitempty"`
}

// Client is the annotation service RPC. Both calls are idempotent and safe
// to retry; transient failures are marked with httputil.Transient or are
// network errors.
type Client interface {
	// Search returns candidates for phrase, best first.
	Search(ctx context.Context, phrase string) ([]Candidate, error)

	// FindLabel returns the preferred label of code in a vocabulary, or ""
	// when the service does not know it.
	FindLabel(ctx context.Context, vocabularyID, code string) (string, error)
}
