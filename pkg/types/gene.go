// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Gene is a gene known to the gene store.
type Gene struct {
	// NCBIID is the NCBI Gene identifier.
	NCBIID int `json:"ncbi_id" yaml:"ncbi_id"`

	// Symbol is the official gene symbol.
	Symbol string `json:"symbol" yaml:"symbol"`

	// Taxon is the species common name.
	Taxon string `json:"taxon" yaml:"taxon"`
}

// Taxa maps species common names to NCBI taxonomy ids.
var Taxa = map[string]int{
	"human": 9606,
	"mouse": 10090,
	"rat":   10116,
}

// TaxonName returns the common name for an NCBI taxonomy id, or "" when unknown.
func TaxonName(taxID int) string {
	for name, id := range Taxa {
		if id == taxID {
			return name
		}
	}
	return ""
}
