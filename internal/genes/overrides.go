// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genes

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Choice pins an ambiguous or unknown symbol to one NCBI gene id.
type Choice struct {
	Species string `yaml:"species"`
	Symbol  string `yaml:"symbol"`
	NCBIID  int    `yaml:"ncbi_id"`
	Note    string `yaml:"note,omitempty"`
}

// Rename maps a source symbol to the symbol the gene store knows.
type Rename struct {
	Species string `yaml:"species"`
	Symbol  string `yaml:"symbol"`
	To      string `yaml:"to"`
	Note    string `yaml:"note,omitempty"`
}

// Overrides is the special-case table, consulted only when a symbol lookup
// finds zero or several genes. A nil *Overrides has no entries.
type Overrides struct {
	Choose []Choice `yaml:"choose"`
	Rename []Rename `yaml:"rename"`

	choose map[string]int
	rename map[string]string
}

// ParseOverrides decodes a YAML table.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing gene overrides: %w", err)
	}
	if err := o.index(); err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadOverrides reads a YAML table from path.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gene overrides: %w", err)
	}
	return ParseOverrides(data)
}

func (o *Overrides) index() error {
	o.choose = make(map[string]int, len(o.Choose))
	o.rename = make(map[string]string, len(o.Rename))
	for i, c := range o.Choose {
		if c.Species == "" || c.Symbol == "" || c.NCBIID <= 0 {
			return fmt.Errorf("gene overrides: choose entry %d needs species, symbol and ncbi_id", i+1)
		}
		o.choose[symbolKey(c.Species, c.Symbol)] = c.NCBIID
	}
	for i, r := range o.Rename {
		if r.Species == "" || r.Symbol == "" || strings.TrimSpace(r.To) == "" {
			return fmt.Errorf("gene overrides: rename entry %d needs species, symbol and to", i+1)
		}
		o.rename[symbolKey(r.Species, r.Symbol)] = strings.TrimSpace(r.To)
	}
	return nil
}

// Chosen returns the pinned gene id for (species, symbol).
func (o *Overrides) Chosen(species, symbol string) (int, bool) {
	if o == nil {
		return 0, false
	}
	id, ok := o.choose[symbolKey(species, symbol)]
	return id, ok
}

// Renamed returns the replacement symbol for (species, symbol).
func (o *Overrides) Renamed(species, symbol string) (string, bool) {
	if o == nil {
		return "", false
	}
	s, ok := o.rename[symbolKey(species, symbol)]
	return s, ok
}

// Len returns the number of entries.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Choose) + len(o.Rename)
}
