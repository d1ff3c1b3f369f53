// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes resolution results as tab-separated files: the
// primary stream with one row per resolved record, and the audit stream
// with unresolved and ambiguous cases for manual review.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pdiddy/ontomap/pkg/types"
)

// Audit row kinds.
const (
	KindUnresolved = "UNRESOLVED"
	KindAmbiguous  = "AMBIGUOUS"
)

// PrimaryHeader is the primary stream's header row.
var PrimaryHeader = []string{
	"GeneSymbol", "GeneId", "EvidenceCode", "Comments", "ExternalDatabase",
	"DatabaseLink", "MappingType", "OriginalPhrase", "Score", "PhenotypeURIs",
}

// AuditHeader is the audit stream's header row.
var AuditHeader = []string{
	"Source", "GeneSymbol", "GeneId", "ExternalCode", "Keyword", "Kind", "Detail", "OriginalPhrase",
}

// Counts tallies rows written.
type Counts struct {
	Primary    int
	Unresolved int
	Ambiguous  int
}

// Sink writes both streams. Safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	primary *csv.Writer
	audit   *csv.Writer
	closers []io.Closer
	counts  Counts
}

func tsvWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

// NewSink writes headers to both writers and returns a sink over them.
func NewSink(primary, audit io.Writer) (*Sink, error) {
	s := &Sink{primary: tsvWriter(primary), audit: tsvWriter(audit)}
	if err := s.primary.Write(PrimaryHeader); err != nil {
		return nil, fmt.Errorf("writing primary header: %w", err)
	}
	if err := s.audit.Write(AuditHeader); err != nil {
		return nil, fmt.Errorf("writing audit header: %w", err)
	}
	return s, nil
}

// Paths returns the primary and audit file paths for a run name.
func Paths(dir, name string) (primary, audit string) {
	return filepath.Join(dir, name+".tsv"), filepath.Join(dir, name+".audit.tsv")
}

// Create opens dir/<name>.tsv and dir/<name>.audit.tsv, truncating them.
func Create(dir, name string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	primaryPath, auditPath := Paths(dir, name)
	pf, err := os.Create(primaryPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", primaryPath, err)
	}
	af, err := os.Create(auditPath)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("creating %s: %w", auditPath, err)
	}
	s, err := NewSink(pf, af)
	if err != nil {
		pf.Close()
		af.Close()
		return nil, err
	}
	s.closers = []io.Closer{pf, af}
	return s, nil
}

func geneID(rec types.ExternalRecord) string {
	if rec.SubjectGeneID == 0 {
		return ""
	}
	return strconv.Itoa(rec.SubjectGeneID)
}

// Write routes a result: resolved results go to the primary stream,
// UNRESOLVED ones only to the audit stream.
func (s *Sink) Write(res types.ResolutionResult) error {
	rec := res.Record
	s.mu.Lock()
	defer s.mu.Unlock()

	if !res.Resolved() {
		s.counts.Unresolved++
		return s.audit.Write([]string{
			rec.SourceDatabase, rec.GeneSymbol, geneID(rec), rec.ExternalCode,
			rec.FreeTextKeyword, KindUnresolved, "no mapping found", res.OriginalPhraseTrail,
		})
	}

	comment := rec.Comment
	if len(rec.PubMedIDs) > 0 {
		pmids := "PMID:" + strings.Join(rec.PubMedIDs, ",PMID:")
		if comment == "" {
			comment = pmids
		} else {
			comment += " " + pmids
		}
	}
	s.counts.Primary++
	return s.primary.Write([]string{
		rec.GeneSymbol, geneID(rec), rec.EvidenceCode, comment, rec.SourceDatabase,
		rec.DatabaseLink, string(res.MappingType), res.OriginalPhraseTrail, rec.Score, res.JoinedURIs(),
	})
}

// Ambiguous writes an audit row for a record kept after a deterministic
// pick among several candidates.
func (s *Sink) Ambiguous(rec types.ExternalRecord, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Ambiguous++
	return s.audit.Write([]string{
		rec.SourceDatabase, rec.GeneSymbol, geneID(rec), rec.ExternalCode,
		rec.FreeTextKeyword, KindAmbiguous, detail, "",
	})
}

// Counts returns rows written so far.
func (s *Sink) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Flush flushes both writers.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary.Flush()
	s.audit.Flush()
	return errors.Join(s.primary.Error(), s.audit.Error())
}

// Close flushes and closes files opened by Create.
func (s *Sink) Close() error {
	err := s.Flush()
	for _, c := range s.closers {
		err = errors.Join(err, c.Close())
	}
	s.closers = nil
	return err
}
