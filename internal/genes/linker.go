// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genes

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/pdiddy/ontomap/pkg/types"
)

// ErrGeneNotFound is returned when no gene can be established for a record.
var ErrGeneNotFound = errors.New("gene not found")

// Ambiguity describes a symbol that matched several genes and was resolved
// by picking the lowest NCBI id.
type Ambiguity struct {
	Species    string
	Symbol     string
	Candidates []int
	Chosen     int
}

func (a Ambiguity) String() string {
	return fmt.Sprintf("%s %s matched genes %v, chose %d", a.Species, a.Symbol, a.Candidates, a.Chosen)
}

type linkResult struct {
	gene      types.Gene
	ambiguity *Ambiguity
	err       error
}

// Linker binds records to genes. Lookups by (species, symbol) are memoized
// for the run. Safe for concurrent use.
type Linker struct {
	genes     Resolver
	overrides *Overrides
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]linkResult
}

// NewLinker returns a linker over genes. overrides and logger may be nil.
func NewLinker(genes Resolver, overrides *Overrides, logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Linker{genes: genes, overrides: overrides, logger: logger, cache: make(map[string]linkResult)}
}

// Link returns rec bound to its gene. A record that already carries an NCBI
// id is checked against the store; otherwise the symbol is looked up for the
// record's species. The override table is consulted only when the lookup
// finds zero or several genes. A remaining tie is broken by lowest id and
// reported as an Ambiguity.
func (l *Linker) Link(rec types.ExternalRecord) (types.ExternalRecord, *Ambiguity, error) {
	if rec.SubjectGeneID != 0 {
		g, ok := l.genes.FindByExternalID(rec.SubjectGeneID)
		if !ok {
			return rec, nil, fmt.Errorf("NCBI id %d: %w", rec.SubjectGeneID, ErrGeneNotFound)
		}
		return rec.WithGene(g), nil, nil
	}
	if rec.GeneSymbol == "" {
		return rec, nil, fmt.Errorf("record has neither gene id nor symbol: %w", ErrGeneNotFound)
	}

	key := symbolKey(rec.Taxon, rec.GeneSymbol)
	l.mu.Lock()
	res, ok := l.cache[key]
	l.mu.Unlock()
	if !ok {
		res = l.lookup(rec.Taxon, rec.GeneSymbol)
		l.mu.Lock()
		l.cache[key] = res
		l.mu.Unlock()
		if res.ambiguity != nil {
			l.logger.Warn("ambiguous gene symbol", "species", rec.Taxon, "symbol", rec.GeneSymbol,
				"candidates", res.ambiguity.Candidates, "chosen", res.ambiguity.Chosen)
		}
	}
	if res.err != nil {
		return rec, nil, res.err
	}
	return rec.WithGene(res.gene), res.ambiguity, nil
}

func (l *Linker) lookup(species, symbol string) linkResult {
	found := l.genes.FindBySymbolAndSpecies(symbol, species)
	if len(found) == 1 {
		return linkResult{gene: found[0]}
	}

	if id, ok := l.overrides.Chosen(species, symbol); ok {
		if g, ok := l.genes.FindByExternalID(id); ok {
			return linkResult{gene: g}
		}
		return linkResult{err: fmt.Errorf("override for %s %s names unknown NCBI id %d: %w", species, symbol, id, ErrGeneNotFound)}
	}
	if to, ok := l.overrides.Renamed(species, symbol); ok {
		found = l.genes.FindBySymbolAndSpecies(to, species)
		symbol = to
	}

	switch len(found) {
	case 0:
		return linkResult{err: fmt.Errorf("%s %s: %w", species, symbol, ErrGeneNotFound)}
	case 1:
		return linkResult{gene: found[0]}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].NCBIID < found[j].NCBIID })
	ids := make([]int, len(found))
	for i, g := range found {
		ids[i] = g.NCBIID
	}
	return linkResult{
		gene:      found[0],
		ambiguity: &Ambiguity{Species: species, Symbol: symbol, Candidates: ids, Chosen: found[0].NCBIID},
	}
}
