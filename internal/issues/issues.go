// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package issues collects non-fatal problems found during a run (skipped
// rows, rejected table entries, ambiguous picks, degraded service calls)
// so they can be reported together at the end.
package issues

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Kind classifies an issue.
type Kind string

const (
	Structural Kind = "structural"
	Validation Kind = "validation"
	Ambiguity  Kind = "ambiguity"
	Service    Kind = "service"
)

// Issue is one recorded problem.
type Issue struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Source  string `json:"source" yaml:"source"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	loc := i.Source
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", i.Source, i.Line)
	}
	if i.Key != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", i.Kind, loc, i.Key, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Kind, loc, i.Message)
}

// Collector is safe for concurrent use. A nil *Collector discards issues.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records an issue.
func (c *Collector) Add(i Issue) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, i)
}

// Addf records an issue with a formatted message.
func (c *Collector) Addf(kind Kind, source string, line int, format string, args ...any) {
	c.Add(Issue{Kind: kind, Source: source, Line: line, Message: fmt.Sprintf(format, args...)})
}

// All returns a copy of the recorded issues in insertion order.
func (c *Collector) All() []Issue {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Issue(nil), c.issues...)
}

// Len returns the number of recorded issues.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

// Counts returns the number of issues per kind.
func (c *Collector) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, i := range c.All() {
		counts[i.Kind]++
	}
	return counts
}

// PrintSummary writes per-kind counts followed by up to limit issues
// (all when limit <= 0).
func (c *Collector) PrintSummary(w io.Writer, limit int) {
	all := c.All()
	if len(all) == 0 {
		fmt.Fprintf(w, "Issues: none\n")
		return
	}

	counts := c.Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fmt.Fprintf(w, "Issues: %d\n", len(all))
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-11s %d\n", k, counts[Kind(k)])
	}

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	for _, i := range all[:limit] {
		fmt.Fprintf(w, "  %s\n", i)
	}
	if limit < len(all) {
		fmt.Fprintf(w, "  ... %d more\n", len(all)-limit)
	}
}
