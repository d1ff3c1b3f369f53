// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ontology is the read-only query surface over disease and
// phenotype term graphs. A Vocabulary holds one graph in memory; a Registry
// composes several behind the Gateway interface. Vocabularies are filled by
// loaders (OBO files, Neo4j) that may still be running when the first query
// arrives: until a vocabulary reports IsLoaded, queries return nothing.
package ontology

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/ontomap/pkg/types"
)

// Gateway answers term queries over one or more vocabularies.
type Gateway interface {
	Term(uri string) (types.TermRef, bool)
	FindByLabel(text string) []types.TermRef
	IsObsolete(uri string) bool
	Parents(uri string) []string
	IsLoaded() bool
}

// CodeVocabulary is a vocabulary addressed by external codes, such as MEDIC
// whose term ids are MeSH and OMIM codes.
type CodeVocabulary interface {
	CodeTerm(code string) (types.TermRef, bool)
	Codes(uri string) []string
	Parents(uri string) []string
}

// Term is one node of a vocabulary.
type Term struct {
	types.TermRef

	// Code is the term's own id ("DOID:1234", "MESH:D000544").
	Code string

	// AltCodes are alternative ids of the same term.
	AltCodes []string

	// Parents are the URIs of the term's is_a parents.
	Parents []string

	// Xrefs are codes in other systems the term declares equivalent.
	Xrefs []string
}

// Vocabulary is an in-memory term graph. It is safe for concurrent use;
// loaders write while queries read.
type Vocabulary struct {
	name string

	mu      sync.RWMutex
	terms   map[string]*Term    // uri -> term
	byLabel map[string][]string // lowercase label -> uris
	byCode  map[string]string   // code or alt code -> uri

	loaded atomic.Bool
	errMu  sync.Mutex
	err    error
}

// NewVocabulary creates an empty, not yet loaded vocabulary.
func NewVocabulary(name string) *Vocabulary {
	return &Vocabulary{
		name:    name,
		terms:   make(map[string]*Term),
		byLabel: make(map[string][]string),
		byCode:  make(map[string]string),
	}
}

// Name returns the vocabulary identifier.
func (v *Vocabulary) Name() string { return v.name }

// Add inserts or replaces a term. Codes are normalized with the default
// prefix aliases.
func (v *Vocabulary) Add(t Term) {
	if t.URI == "" {
		t.URI = CodeToURI(t.Code)
	}
	if t.Code == "" {
		t.Code = URIToCode(t.URI)
	}
	t.Code = NormalizeCode(t.Code, nil)
	alts := make([]string, len(t.AltCodes))
	for i, c := range t.AltCodes {
		alts[i] = NormalizeCode(c, nil)
	}
	t.AltCodes = alts

	v.mu.Lock()
	defer v.mu.Unlock()

	if old, ok := v.terms[t.URI]; ok {
		v.unlinkLabel(old)
	}
	term := t
	v.terms[t.URI] = &term
	if label := strings.ToLower(strings.TrimSpace(t.Label)); label != "" {
		v.byLabel[label] = append(v.byLabel[label], t.URI)
	}
	v.byCode[t.Code] = t.URI
	for _, c := range t.AltCodes {
		if _, taken := v.byCode[c]; !taken {
			v.byCode[c] = t.URI
		}
	}
}

func (v *Vocabulary) unlinkLabel(old *Term) {
	label := strings.ToLower(strings.TrimSpace(old.Label))
	uris := v.byLabel[label]
	for i, u := range uris {
		if u == old.URI {
			v.byLabel[label] = append(uris[:i], uris[i+1:]...)
			break
		}
	}
}

// MarkLoaded flips the vocabulary to loaded; queries start answering.
func (v *Vocabulary) MarkLoaded() { v.loaded.Store(true) }

// Fail records a loader failure. Err returns it afterwards.
func (v *Vocabulary) Fail(err error) {
	v.errMu.Lock()
	defer v.errMu.Unlock()
	if v.err == nil {
		v.err = fmt.Errorf("loading vocabulary %s: %w", v.name, err)
	}
}

// Err returns the loader failure, if any.
func (v *Vocabulary) Err() error {
	v.errMu.Lock()
	defer v.errMu.Unlock()
	return v.err
}

// IsLoaded reports whether the loader has finished.
func (v *Vocabulary) IsLoaded() bool { return v.loaded.Load() }

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.terms)
}

func (v *Vocabulary) get(uri string) (*Term, bool) {
	if !v.IsLoaded() {
		return nil, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	t, ok := v.terms[uri]
	return t, ok
}

// Term looks a term up by URI.
func (v *Vocabulary) Term(uri string) (types.TermRef, bool) {
	t, ok := v.get(uri)
	if !ok {
		return types.TermRef{}, false
	}
	return t.TermRef, true
}

// FindByLabel returns terms whose label equals text, ignoring case.
func (v *Vocabulary) FindByLabel(text string) []types.TermRef {
	if !v.IsLoaded() {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []types.TermRef
	for _, uri := range v.byLabel[strings.ToLower(strings.TrimSpace(text))] {
		out = append(out, v.terms[uri].TermRef)
	}
	return out
}

// IsObsolete reports whether the URI names an obsolete term. Unknown URIs
// are not obsolete.
func (v *Vocabulary) IsObsolete(uri string) bool {
	t, ok := v.get(uri)
	return ok && t.Obsolete
}

// Parents returns the is_a parents of a term.
func (v *Vocabulary) Parents(uri string) []string {
	t, ok := v.get(uri)
	if !ok {
		return nil
	}
	return append([]string(nil), t.Parents...)
}

// CodeTerm looks a term up by its own code or one of its alternative codes.
func (v *Vocabulary) CodeTerm(code string) (types.TermRef, bool) {
	if !v.IsLoaded() {
		return types.TermRef{}, false
	}
	code = NormalizeCode(code, nil)
	v.mu.RLock()
	uri, ok := v.byCode[code]
	v.mu.RUnlock()
	if !ok {
		return types.TermRef{}, false
	}
	return v.Term(uri)
}

// Codes returns the term's own code followed by its alternative codes.
func (v *Vocabulary) Codes(uri string) []string {
	t, ok := v.get(uri)
	if !ok {
		return nil
	}
	return append([]string{t.Code}, t.AltCodes...)
}

// Xrefs returns the cross-reference codes a term declares.
func (v *Vocabulary) Xrefs(uri string) []string {
	t, ok := v.get(uri)
	if !ok {
		return nil
	}
	return append([]string(nil), t.Xrefs...)
}

// Registry composes vocabularies behind the Gateway interface. A URI is
// answered by the first vocabulary that knows it.
type Registry struct {
	vocabs []*Vocabulary
}

// NewRegistry returns a registry over the given vocabularies.
func NewRegistry(vocabs ...*Vocabulary) *Registry {
	return &Registry{vocabs: vocabs}
}

// Vocabulary returns the member with the given name, or nil.
func (r *Registry) Vocabulary(name string) *Vocabulary {
	for _, v := range r.vocabs {
		if strings.EqualFold(v.Name(), name) {
			return v
		}
	}
	return nil
}

// Vocabularies returns the members in registration order.
func (r *Registry) Vocabularies() []*Vocabulary {
	return append([]*Vocabulary(nil), r.vocabs...)
}

// Term looks a URI up in every vocabulary.
func (r *Registry) Term(uri string) (types.TermRef, bool) {
	for _, v := range r.vocabs {
		if t, ok := v.Term(uri); ok {
			return t, true
		}
	}
	return types.TermRef{}, false
}

// FindByLabel collects exact label matches from every vocabulary, ordered by URI.
func (r *Registry) FindByLabel(text string) []types.TermRef {
	var out []types.TermRef
	for _, v := range r.vocabs {
		out = append(out, v.FindByLabel(text)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// IsObsolete reports whether any vocabulary marks the URI obsolete.
func (r *Registry) IsObsolete(uri string) bool {
	for _, v := range r.vocabs {
		if v.IsObsolete(uri) {
			return true
		}
	}
	return false
}

// Parents returns the parents recorded by the vocabulary that knows the URI.
func (r *Registry) Parents(uri string) []string {
	for _, v := range r.vocabs {
		if _, ok := v.get(uri); ok {
			return v.Parents(uri)
		}
	}
	return nil
}

// IsLoaded reports whether every vocabulary has finished loading.
func (r *Registry) IsLoaded() bool {
	for _, v := range r.vocabs {
		if !v.IsLoaded() {
			return false
		}
	}
	return true
}

// Err returns the first loader failure among the vocabularies.
func (r *Registry) Err() error {
	for _, v := range r.vocabs {
		if err := v.Err(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState is what WaitLoaded polls.
type LoadState interface {
	IsLoaded() bool
	Err() error
}

// WaitLoaded polls s every interval until it is loaded, a loader fails, or
// ctx is done.
func WaitLoaded(ctx context.Context, s LoadState, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.Err(); err != nil {
			return err
		}
		if s.IsLoaded() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for ontologies to load: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
