// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genes resolves the subject gene of an external record by NCBI id
// or by symbol and species, with a data-driven override table for
// ambiguous and renamed symbols.
package genes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// Resolver is the gene lookup surface the linker needs.
type Resolver interface {
	FindByExternalID(id int) (types.Gene, bool)
	FindBySymbolAndSpecies(symbol, species string) []types.Gene
}

// gene_info column positions.
const (
	colTaxID    = 0
	colGeneID   = 1
	colSymbol   = 2
	colSynonyms = 4
	minColumns  = 5
)

// Store is an in-memory gene table, read-only after loading.
type Store struct {
	byID      map[int]types.Gene
	bySymbol  map[string][]int
	bySynonym map[string][]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byID:      make(map[int]types.Gene),
		bySymbol:  make(map[string][]int),
		bySynonym: make(map[string][]int),
	}
}

func symbolKey(species, symbol string) string {
	return strings.ToLower(species) + "\x00" + strings.ToLower(strings.TrimSpace(symbol))
}

// Add inserts a gene and its synonyms.
func (s *Store) Add(g types.Gene, synonyms ...string) {
	s.byID[g.NCBIID] = g
	k := symbolKey(g.Taxon, g.Symbol)
	s.bySymbol[k] = append(s.bySymbol[k], g.NCBIID)
	for _, syn := range synonyms {
		if syn = strings.TrimSpace(syn); syn == "" || syn == "-" {
			continue
		}
		k := symbolKey(g.Taxon, syn)
		s.bySynonym[k] = append(s.bySynonym[k], g.NCBIID)
	}
}

// Len returns the number of genes.
func (s *Store) Len() int { return len(s.byID) }

// FindByExternalID returns the gene with the NCBI id.
func (s *Store) FindByExternalID(id int) (types.Gene, bool) {
	g, ok := s.byID[id]
	return g, ok
}

// FindBySymbolAndSpecies returns genes whose official symbol matches,
// falling back to synonyms when none does. Results are ordered by NCBI id.
func (s *Store) FindBySymbolAndSpecies(symbol, species string) []types.Gene {
	k := symbolKey(species, symbol)
	ids := s.bySymbol[k]
	if len(ids) == 0 {
		ids = s.bySynonym[k]
	}
	genes := make([]types.Gene, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			genes = append(genes, s.byID[id])
		}
	}
	sort.Slice(genes, func(i, j int) bool { return genes[i].NCBIID < genes[j].NCBIID })
	return genes
}

// LoadGeneInfo reads an NCBI gene_info TSV. Rows for taxa outside
// types.Taxa are skipped, as are rows that fail to parse; the count of
// skipped malformed rows is returned.
func LoadGeneInfo(r io.Reader) (*Store, int, error) {
	s := NewStore()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	bad := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < minColumns {
			bad++
			continue
		}
		taxID, err1 := strconv.Atoi(cols[colTaxID])
		geneID, err2 := strconv.Atoi(cols[colGeneID])
		if err1 != nil || err2 != nil {
			bad++
			continue
		}
		taxon := types.TaxonName(taxID)
		if taxon == "" {
			continue
		}
		s.Add(types.Gene{NCBIID: geneID, Symbol: cols[colSymbol], Taxon: taxon}, strings.Split(cols[colSynonyms], "|")...)
	}
	if err := scanner.Err(); err != nil {
		return nil, bad, fmt.Errorf("reading gene_info: %w", err)
	}
	return s, bad, nil
}

// LoadGeneInfoFile opens path and loads it.
func LoadGeneInfoFile(path string) (*Store, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening gene_info: %w", err)
	}
	defer f.Close()
	return LoadGeneInfo(f)
}
