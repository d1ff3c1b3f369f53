// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/ontomap/internal/annotator"
	"github.com/pdiddy/ontomap/internal/curation"
	"github.com/pdiddy/ontomap/internal/genes"
	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/internal/metrics"
	"github.com/pdiddy/ontomap/internal/ontology"
	"github.com/pdiddy/ontomap/internal/xref"
	"github.com/pdiddy/ontomap/pkg/types"
)

const loadPollInterval = 200 * time.Millisecond

// openOntologies starts every configured loader in the background and waits
// for all of them. The returned func releases the graph connection, if any.
func openOntologies(ctx context.Context, cfg types.OntologyConfig, w io.Writer) (*ontology.Registry, func(), error) {
	cleanup := func() {}
	var vocabs []*ontology.Vocabulary
	for _, f := range cfg.Files {
		vocabs = append(vocabs, ontology.LoadOBOFile(ctx, f.Name, f.Path))
	}

	if cfg.Neo4j.Enabled() {
		client, err := ontology.NewGraphClient(cfg.Neo4j)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { client.Close(context.Background()) }
		if err := client.Verify(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("connecting to neo4j at %s: %w", cfg.Neo4j.URI, err)
		}
		for _, name := range cfg.Neo4j.Vocabularies {
			v := ontology.NewVocabulary(name)
			ontology.LoadAsync(ctx, ontology.Neo4jLoader{Client: client}, v)
			vocabs = append(vocabs, v)
		}
	}

	reg := ontology.NewRegistry(vocabs...)
	timeout := cfg.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ontology.WaitLoaded(wctx, reg, loadPollInterval); err != nil {
		return nil, cleanup, err
	}
	for _, v := range vocabs {
		fmt.Fprintf(w, "loaded   %-6s %d terms\n", v.Name(), v.Len())
	}
	return reg, cleanup, nil
}

// secondaryVocabulary returns the configured parent-inference vocabulary,
// or nil when it is not loaded.
func secondaryVocabulary(reg *ontology.Registry, name string) ontology.CodeVocabulary {
	if name == "" {
		return nil
	}
	v := reg.Vocabulary(name)
	if v == nil {
		slog.Warn("secondary vocabulary not configured; inferred stages disabled", "name", name)
		return nil
	}
	return v
}

// directPrefixes lists the target vocabularies whose codes resolve to their
// own terms: every loaded vocabulary except the secondary one.
func directPrefixes(reg *ontology.Registry, secondary string) []string {
	var out []string
	for _, v := range reg.Vocabularies() {
		if !strings.EqualFold(v.Name(), secondary) {
			out = append(out, v.Name())
		}
	}
	return out
}

func buildXref(cfg types.XrefConfig, gw ontology.Gateway, w io.Writer) (*xref.Index, error) {
	idx, err := xref.BuildFile(cfg.Export, gw, xref.Options{PrefixAliases: cfg.PrefixAliases})
	if err != nil {
		return nil, fmt.Errorf("building cross-reference index: %w", err)
	}
	st := idx.Stats()
	fmt.Fprintf(w, "xref     %d codes from %d terms (%d obsolete, %d unknown skipped)\n",
		st.Codes, st.Terms, st.Obsolete, st.Unknown)
	return idx, nil
}

func loadCuration(cfg types.CurationConfig, gw ontology.Gateway, col *issues.Collector, w io.Writer) (*curation.Table, error) {
	table, err := curation.LoadFile(cfg.MappingFile, gw, col)
	if err != nil {
		return nil, fmt.Errorf("loading curated mappings: %w", err)
	}
	version := table.Version
	if version == "" {
		version = "unversioned"
	}
	fmt.Fprintf(w, "curation %d entries (%s, %d rejected)\n", table.Len(), version, table.Rejected())
	return table, nil
}

// openLinker loads the gene store and override table. It returns nil when
// no gene_info file is configured; records then keep the gene ids their
// source provides.
func openLinker(cfg types.GenesConfig, logger *slog.Logger, w io.Writer) (*genes.Linker, error) {
	if cfg.GeneInfoFile == "" {
		return nil, nil
	}
	store, bad, err := genes.LoadGeneInfoFile(cfg.GeneInfoFile)
	if err != nil {
		return nil, err
	}
	var overrides *genes.Overrides
	if cfg.OverridesFile != "" {
		if overrides, err = genes.LoadOverrides(cfg.OverridesFile); err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(w, "genes    %d genes (%d rows skipped), %d overrides\n", store.Len(), bad, overrides.Len())
	return genes.NewLinker(store, overrides, logger), nil
}

var errNoAPIKey = errors.New("annotator API key missing: set annotator.api_key, ONTOMAP_ANNOTATOR_API_KEY or .secrets/" +
	"annotator-api-key, or pass --no-annotator")

func newAnnotator(cfg types.AnnotatorConfig, col *issues.Collector, rec *metrics.Recorder, logger *slog.Logger) (*annotator.Service, error) {
	if cfg.APIKey == "" {
		return nil, errNoAPIKey
	}
	client := annotator.NewHTTPClient(cfg)
	return annotator.NewService(client,
		annotator.WithRetry(cfg.MaxAttempts, cfg.RetryDelay),
		annotator.WithLogger(logger),
		annotator.WithIssues(col),
		annotator.WithMetrics(rec),
	), nil
}

// printAnnotatorStats reports cache activity; a nil service prints nothing.
func printAnnotatorStats(w io.Writer, svc *annotator.Service) {
	if svc == nil {
		return
	}
	st := svc.Cache().Stats()
	fmt.Fprintf(w, "  annotator cache     %d phrases, %d labels, %d hits, %d misses\n",
		st.Phrases, st.Labels, st.Hits, st.Misses)
}
