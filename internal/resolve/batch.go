// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/pdiddy/ontomap/internal/genes"
	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/internal/metrics"
	"github.com/pdiddy/ontomap/internal/sources"
	"github.com/pdiddy/ontomap/pkg/types"
)

// GeneLinker establishes the subject gene of a record. genes.Linker
// implements it.
type GeneLinker interface {
	Link(rec types.ExternalRecord) (types.ExternalRecord, *genes.Ambiguity, error)
}

// ResultSink receives results in input order. output.Sink implements it.
type ResultSink interface {
	Write(res types.ResolutionResult) error
	Ambiguous(rec types.ExternalRecord, detail string) error
}

// ResultStore persists a run's results. runstore.Store implements it.
type ResultStore interface {
	SaveResults(ctx context.Context, runID string, results []types.ResolutionResult) error
}

// Skip reasons.
const (
	SkipNoDesignation = "no_designation"
	SkipBadEvidence   = "bad_evidence"
	SkipNoGene        = "no_gene"
)

// BatchSummary holds the outcome of one input file.
type BatchSummary struct {
	Source     string
	Read       int
	RowErrors  int
	Skipped    map[string]int
	Ambiguous  int
	ByType     map[types.MappingType]int
	Resolved   int
	Unresolved int
}

func newSummary(source string) BatchSummary {
	return BatchSummary{Source: source, Skipped: make(map[string]int), ByType: make(map[types.MappingType]int)}
}

// Total returns the number of records resolved (resolved or not).
func (s BatchSummary) Total() int { return s.Resolved + s.Unresolved }

// SkippedTotal returns the number of records dropped before resolution.
func (s BatchSummary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Print writes a human-readable summary.
func (s BatchSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n%s summary: %d rows read, %d malformed, %d skipped, %d resolved, %d unresolved\n",
		s.Source, s.Read, s.RowErrors, s.SkippedTotal(), s.Resolved, s.Unresolved)
	for _, mt := range types.MappingTypes {
		if n := s.ByType[mt]; n > 0 {
			fmt.Fprintf(w, "  %-19s %d\n", mt, n)
		}
	}
	reasons := make([]string, 0, len(s.Skipped))
	for r := range s.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  skipped %-11s %d\n", r, s.Skipped[r])
	}
	if s.Ambiguous > 0 {
		fmt.Fprintf(w, "  ambiguous genes     %d\n", s.Ambiguous)
	}
}

// Batch resolves whole input files: parse, link genes, validate evidence,
// resolve, write.
type Batch struct {
	Engine *Engine
	Linker GeneLinker
	Sink   ResultSink

	// Store and RunID are optional.
	Store ResultStore
	RunID string

	Issues  *issues.Collector
	Metrics *metrics.Recorder
	Logger  *slog.Logger

	// Out receives progress lines; nil discards them.
	Out io.Writer

	Workers int

	rowErrors int
}

// Run processes one file. Only failure to read the file, a sink or store
// failure, or cancellation returns an error; row-level problems are
// counted, collected as issues and skipped.
func (b *Batch) Run(ctx context.Context, src sources.Source, path string) (BatchSummary, error) {
	sum := newSummary(src.Name())
	out := b.Out
	if out == nil {
		out = io.Discard
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	startRowErrors := b.rowErrors
	var records []types.ExternalRecord
	err := sources.ParseFile(src, path, func(rec types.ExternalRecord) error {
		sum.Read++
		if rec, ok := b.prepare(rec, &sum, logger); ok {
			records = append(records, rec)
		}
		return nil
	})
	sum.RowErrors = b.rowErrors - startRowErrors
	if err != nil {
		return sum, err
	}
	fmt.Fprintf(out, "%s: %d records to resolve (%d skipped)\n", src.Name(), len(records), sum.SkippedTotal())

	// On cancellation the completed results are still written and saved.
	results, resolveErr := b.Engine.ResolveAll(ctx, records, b.Workers)

	for _, res := range results {
		if res.Resolved() {
			sum.Resolved++
		} else {
			sum.Unresolved++
		}
		sum.ByType[res.MappingType]++
		if err := b.Sink.Write(res); err != nil {
			return sum, fmt.Errorf("writing result: %w", err)
		}
	}
	if b.Store != nil && b.RunID != "" && len(results) > 0 {
		if err := b.Store.SaveResults(context.WithoutCancel(ctx), b.RunID, results); err != nil {
			return sum, err
		}
	}
	if resolveErr != nil {
		return sum, fmt.Errorf("resolving %s: %w (%d of %d records completed)", src.Name(), resolveErr, len(results), len(records))
	}
	return sum, nil
}

// prepare validates a parsed record and binds its gene. Rejected records
// are counted, recorded and dropped.
func (b *Batch) prepare(rec types.ExternalRecord, sum *BatchSummary, logger *slog.Logger) (types.ExternalRecord, bool) {
	skip := func(reason string, kind issues.Kind, msg string) (types.ExternalRecord, bool) {
		sum.Skipped[reason]++
		b.Metrics.ObserveSkipped(reason)
		b.Issues.Add(issues.Issue{Kind: kind, Source: rec.SourceFile, Line: rec.Line, Key: rec.Key(), Message: msg})
		return rec, false
	}

	if !rec.HasDesignation() {
		return skip(SkipNoDesignation, issues.Structural, "no disease code or description")
	}
	if !sources.ValidEvidence(rec.EvidenceCode) {
		return skip(SkipBadEvidence, issues.Validation, fmt.Sprintf("unrecognized evidence code %q", rec.EvidenceCode))
	}

	if b.Linker != nil {
		linked, amb, err := b.Linker.Link(rec)
		if err != nil {
			if errors.Is(err, genes.ErrGeneNotFound) {
				return skip(SkipNoGene, issues.Validation, err.Error())
			}
			return skip(SkipNoGene, issues.Structural, err.Error())
		}
		rec = linked
		if amb != nil {
			sum.Ambiguous++
			b.Metrics.ObserveAmbiguous()
			b.Issues.Add(issues.Issue{Kind: issues.Ambiguity, Source: rec.SourceFile, Line: rec.Line, Key: rec.Key(), Message: amb.String()})
			if err := b.Sink.Ambiguous(rec, amb.String()); err != nil {
				logger.Error("writing ambiguity audit row", "record", rec.Key(), "error", err)
			}
		}
	}
	return rec, true
}

// RowError records a malformed input row as a structural issue. Pass it as
// sources.Options.OnRowError for sources read through this batch.
func (b *Batch) RowError(e *sources.RowError) {
	b.rowErrors++
	if b.Logger != nil {
		b.Logger.Warn("skipping malformed row", "source", e.Source, "line", e.Line, "reason", e.Reason)
	}
	b.Issues.Add(issues.Issue{Kind: issues.Structural, Source: e.Source, Line: e.Line, Message: e.Reason})
}
