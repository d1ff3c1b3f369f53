// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the ontomap pipeline:
// records read from external disease/gene databases, ontology term
// references, resolution results, genes, and run configuration.
package types

import "strings"

// ExternalRecord is one row of an external disease/gene association source,
// normalized by a source adapter. Adapters build it once; nothing mutates it
// afterwards.
type ExternalRecord struct {
	// SourceDatabase names the originating database (e.g. "OMIM", "CTD").
	SourceDatabase string `json:"source_database" yaml:"source_database"`

	// ExternalCode is the disease identifier as given by the source
	// (e.g. "OMIM:104300", "MESH:D000544"). Empty when the source only
	// provides free text.
	ExternalCode string `json:"external_code,omitempty" yaml:"external_code,omitempty"`

	// FreeTextKeyword is the disease/phenotype description as given by the source.
	FreeTextKeyword string `json:"free_text_keyword,omitempty" yaml:"free_text_keyword,omitempty"`

	// SubjectGeneID is the NCBI gene id the association is about. Zero until
	// the gene linker has run.
	SubjectGeneID int `json:"subject_gene_id" yaml:"subject_gene_id"`

	// GeneSymbol is the gene symbol as given by the source.
	GeneSymbol string `json:"gene_symbol" yaml:"gene_symbol"`

	// Taxon is the species common name ("human", "mouse", "rat").
	Taxon string `json:"taxon" yaml:"taxon"`

	// EvidenceCode is a GO-style evidence code (e.g. "TAS", "IEP").
	EvidenceCode string `json:"evidence_code" yaml:"evidence_code"`

	// Comment is free-text provenance written to the output as-is.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// DatabaseLink is the accession used to build a link back to the source.
	DatabaseLink string `json:"database_link,omitempty" yaml:"database_link,omitempty"`

	// PubMedIDs lists supporting publications.
	PubMedIDs []string `json:"pubmed_ids,omitempty" yaml:"pubmed_ids,omitempty"`

	// Score is the source-specific confidence assigned by the adapter's scorer.
	Score string `json:"score,omitempty" yaml:"score,omitempty"`

	// SourceFile and Line locate the row the record was parsed from.
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Key identifies the record for logs and audit rows.
func (r ExternalRecord) Key() string {
	var b strings.Builder
	b.WriteString(r.SourceDatabase)
	b.WriteString(":")
	b.WriteString(r.GeneSymbol)
	b.WriteString(":")
	if r.ExternalCode != "" {
		b.WriteString(r.ExternalCode)
	} else {
		b.WriteString(r.FreeTextKeyword)
	}
	return b.String()
}

// HasDesignation reports whether the record carries anything to resolve.
func (r ExternalRecord) HasDesignation() bool {
	return strings.TrimSpace(r.ExternalCode) != "" || strings.TrimSpace(r.FreeTextKeyword) != ""
}

// WithGene returns a copy of the record bound to the given gene.
func (r ExternalRecord) WithGene(g Gene) ExternalRecord {
	r.SubjectGeneID = g.NCBIID
	r.GeneSymbol = g.Symbol
	if r.Taxon == "" {
		r.Taxon = g.Taxon
	}
	return r
}
