// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps external disease designations to ontology terms.
// The Engine runs an ordered cascade (cross-reference, inferred
// cross-reference, curated table, inferred curated, annotator, modified
// annotator search, label retry) and stops at the first stage that yields
// a non-obsolete term.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/ontomap/internal/annotator"
	"github.com/pdiddy/ontomap/internal/metrics"
	"github.com/pdiddy/ontomap/internal/ontology"
	"github.com/pdiddy/ontomap/internal/textnorm"
	"github.com/pdiddy/ontomap/pkg/types"
)

// CodeIndex answers code -> URIs lookups. xref.Index implements it.
type CodeIndex interface {
	Lookup(code string) []string
}

// CuratedTable answers case-insensitive key -> URIs lookups.
// curation.Table implements it.
type CuratedTable interface {
	Lookup(key string) []string
}

// Annotator is the retrying, caching annotation service. Calls never fail;
// an unavailable service yields no candidates. annotator.Service
// implements it.
type Annotator interface {
	Search(ctx context.Context, phrase string) []annotator.Candidate
	FindLabel(ctx context.Context, vocabularyID, code string) string
}

// Config wires an Engine. Xref, Curated and Gateway are required; the rest
// may be nil or empty.
type Config struct {
	Xref    CodeIndex
	Curated CuratedTable
	Gateway ontology.Gateway

	// Secondary is the code-addressed disease vocabulary used to infer
	// parents and labels (MEDIC).
	Secondary ontology.CodeVocabulary

	Annotator Annotator

	// AcceptedMatchTypes defaults to annotator.DefaultAcceptedMatchTypes.
	AcceptedMatchTypes []string

	// IgnoreURIs are never accepted from the annotator.
	IgnoreURIs []string

	// StopWords drive the modified search (default textnorm.DefaultStopWords).
	StopWords []string

	// DirectPrefixes lists code prefixes that already name target terms
	// (e.g. DOID, HP). Such a code resolves as XREF to its own URI when the
	// index has no entry and the gateway knows the term.
	DirectPrefixes []string

	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Engine resolves records. Its indices are read-only; the only mutable
// state is the annotator cache, which guards itself, so Resolve is safe to
// call concurrently.
type Engine struct {
	xref      CodeIndex
	curated   CuratedTable
	gw        ontology.Gateway
	secondary ontology.CodeVocabulary
	ann       Annotator

	accepted  map[string]bool
	ignore    map[string]bool
	direct    map[string]bool
	stopWords []string

	logger  *slog.Logger
	metrics *metrics.Recorder
}

// New builds an engine from cfg.
func New(cfg Config) *Engine {
	e := &Engine{
		xref:      cfg.Xref,
		curated:   cfg.Curated,
		gw:        cfg.Gateway,
		secondary: cfg.Secondary,
		ann:       cfg.Annotator,
		accepted:  make(map[string]bool),
		ignore:    make(map[string]bool),
		direct:    make(map[string]bool),
		stopWords: cfg.StopWords,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	accepted := cfg.AcceptedMatchTypes
	if len(accepted) == 0 {
		accepted = annotator.DefaultAcceptedMatchTypes
	}
	for _, m := range accepted {
		e.accepted[strings.ToUpper(m)] = true
	}
	for _, u := range cfg.IgnoreURIs {
		e.ignore[u] = true
	}
	for _, p := range cfg.DirectPrefixes {
		e.direct[ontology.CodePrefix(ontology.NormalizeCode(p+":x", nil))] = true
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// attempt carries the per-record state of one cascade run.
type attempt struct {
	ctx     context.Context
	rec     types.ExternalRecord
	code    string
	keyword string
	trail   textnorm.Trail

	secondaryURI string
	parentCodes  []string
	label        string
	labelLoaded  bool
}

// Resolve runs the cascade for one record. It never fails: a record no
// stage can map comes back UNRESOLVED. Given the same indices and cache
// state it returns the same result.
func (e *Engine) Resolve(ctx context.Context, rec types.ExternalRecord) types.ResolutionResult {
	a := &attempt{
		ctx:     ctx,
		rec:     rec,
		code:    strings.TrimSpace(rec.ExternalCode),
		keyword: strings.TrimSpace(rec.FreeTextKeyword),
	}
	mt, uris := e.cascade(a)
	res := types.ResolutionResult{
		Record:              rec,
		MatchedURIs:         uris,
		MappingType:         mt,
		OriginalPhraseTrail: a.trail.String(),
	}
	e.metrics.ObserveResult(rec.SourceDatabase, mt)
	e.logger.Debug("resolved", "record", rec.Key(), "mapping", mt, "uris", len(uris))
	return res
}

func (e *Engine) cascade(a *attempt) (types.MappingType, []string) {
	if a.code != "" {
		a.trail.Add(a.code)

		if uris := e.live(e.xref.Lookup(a.code)); len(uris) > 0 {
			return types.MappingXref, uris
		}
		if uris := e.directTerm(a.code); len(uris) > 0 {
			return types.MappingXref, uris
		}

		e.loadParents(a)
		if uris := e.lookupAll(e.xref, a.parentCodes); len(uris) > 0 {
			return types.MappingInferredXref, uris
		}
	}

	key := a.code
	if key == "" {
		key = a.keyword
	}
	if key != "" {
		if uris := e.live(e.curated.Lookup(key)); len(uris) > 0 {
			return types.MappingCurated, uris
		}
	}
	if uris := e.lookupAll(e.curated, a.parentCodes); len(uris) > 0 {
		return types.MappingInferredCurated, uris
	}

	if e.ann == nil {
		return types.MappingUnresolved, nil
	}

	phrase := a.keyword
	if phrase == "" {
		phrase = e.codeLabel(a)
	}
	if mt, uris := e.annotate(a, phrase); len(uris) > 0 {
		return mt, uris
	}

	// Retry with the code's own label when it differs from the keyword.
	if a.keyword != "" {
		label := e.codeLabel(a)
		if label != "" && textnorm.Normalize(label) != textnorm.Normalize(a.keyword) {
			if mt, uris := e.annotate(a, label); len(uris) > 0 {
				return mt, uris
			}
		}
	}
	return types.MappingUnresolved, nil
}

// annotate runs the exact then the modified annotator search for phrase.
func (e *Engine) annotate(a *attempt, phrase string) (types.MappingType, []string) {
	if textnorm.Normalize(phrase) == "" {
		return types.MappingUnresolved, nil
	}
	a.trail.Add(phrase)
	if uri, ok := e.acceptTop(e.ann.Search(a.ctx, phrase)); ok {
		return types.MappingAnnotator, []string{uri}
	}

	modified := textnorm.Modify(phrase, e.stopWords)
	if modified == "" {
		return types.MappingUnresolved, nil
	}
	a.trail.Add(modified)
	if uri, ok := e.acceptTop(e.ann.Search(a.ctx, modified)); ok {
		return types.MappingAnnotatorMod, []string{uri}
	}
	return types.MappingUnresolved, nil
}

// acceptTop applies the acceptance rule to the best candidate only: it
// must not be obsolete, not ignored, and carry an accepted match type.
func (e *Engine) acceptTop(cands []annotator.Candidate) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}
	top := cands[0]
	switch {
	case top.URI == "":
		return "", false
	case top.Obsolete || e.gw.IsObsolete(top.URI):
		return "", false
	case e.ignore[top.URI]:
		return "", false
	case !e.accepted[strings.ToUpper(top.MatchType)]:
		return "", false
	}
	return top.URI, true
}

// directTerm resolves a code that already names a target term.
func (e *Engine) directTerm(code string) []string {
	code = ontology.NormalizeCode(code, nil)
	if !e.direct[ontology.CodePrefix(code)] {
		return nil
	}
	uri := ontology.CodeToURI(code)
	if _, ok := e.gw.Term(uri); !ok {
		return nil
	}
	return e.live([]string{uri})
}

// loadParents finds the code in the secondary vocabulary and collects the
// codes (own and alternative) of its immediate parents.
func (e *Engine) loadParents(a *attempt) {
	if e.secondary == nil {
		return
	}
	term, ok := e.secondary.CodeTerm(a.code)
	if !ok {
		return
	}
	a.secondaryURI = term.URI
	if !a.labelLoaded && term.Label != "" {
		a.label = term.Label
		a.labelLoaded = true
	}
	seen := make(map[string]bool)
	for _, parent := range e.secondary.Parents(term.URI) {
		for _, c := range e.secondary.Codes(parent) {
			if !seen[c] {
				seen[c] = true
				a.parentCodes = append(a.parentCodes, c)
			}
		}
	}
}

// codeLabel returns the label of the record's code: from the secondary
// vocabulary when it knows the code, else from the annotator service.
func (e *Engine) codeLabel(a *attempt) string {
	if a.labelLoaded || a.code == "" {
		return a.label
	}
	a.labelLoaded = true
	if e.secondary != nil {
		if term, ok := e.secondary.CodeTerm(a.code); ok && term.Label != "" {
			a.label = term.Label
			return a.label
		}
	}
	if e.ann != nil {
		code := ontology.NormalizeCode(a.code, nil)
		a.label = e.ann.FindLabel(a.ctx, ontology.CodePrefix(code), code)
	}
	return a.label
}

// lookupAll unions lookups of several codes.
func (e *Engine) lookupAll(idx interface{ Lookup(string) []string }, codes []string) []string {
	var all [][]string
	for _, c := range codes {
		all = append(all, idx.Lookup(c))
	}
	return e.live(types.URISet(all...))
}

// live drops obsolete URIs and returns a sorted, unique set.
func (e *Engine) live(uris []string) []string {
	if len(uris) == 0 {
		return nil
	}
	out := make([]string, 0, len(uris))
	for _, u := range uris {
		if !e.gw.IsObsolete(u) {
			out = append(out, u)
		}
	}
	return types.URISet(out)
}

// ResolveAll resolves records and returns results in input order. With
// workers <= 1 records are resolved one at a time; otherwise up to workers
// run concurrently. A cancelled context stops the batch between records and
// its error is returned with the results completed before cancellation, in
// input order. A record whose resolution overlapped the cancellation is
// left out, since its annotator stages may have been cut short.
func (e *Engine) ResolveAll(ctx context.Context, records []types.ExternalRecord, workers int) ([]types.ResolutionResult, error) {
	results := make([]types.ResolutionResult, len(records))
	if workers <= 1 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			res := e.Resolve(ctx, rec)
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			results[i] = res
		}
		return results, nil
	}

	done := make([]bool, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := e.Resolve(gctx, rec)
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = res
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		return results, nil
	}
	completed := make([]types.ResolutionResult, 0, len(results))
	for i, ok := range done {
		if ok {
			completed = append(completed, results[i])
		}
	}
	return completed, err
}
