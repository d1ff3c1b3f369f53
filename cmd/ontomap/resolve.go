// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ontomap/internal/annotator"
	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/internal/metrics"
	"github.com/pdiddy/ontomap/internal/output"
	"github.com/pdiddy/ontomap/internal/resolve"
	"github.com/pdiddy/ontomap/internal/runstore"
	"github.com/pdiddy/ontomap/internal/sources"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one source file to ontology terms",
	Long: `Resolve parses an association file with the named source adapter, links
each record to its gene, and maps its disease designation through the
resolution cascade: cross-reference, inferred cross-reference, curated
table, inferred curated, annotator, modified annotator search and label
retry. Resolved records go to <out-dir>/<name>.tsv; unresolved and
ambiguous ones to <out-dir>/<name>.audit.tsv.

Sources: ` + strings.Join(sources.Names(), ", ") + `.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("source", "", "source adapter: "+strings.Join(sources.Names(), ", "))
	resolveCmd.Flags().String("input", "", "input file to resolve")
	resolveCmd.Flags().String("name", "", "output base name (default: source name)")
	resolveCmd.Flags().String("out-dir", "", "output directory (default: output)")
	resolveCmd.Flags().String("db", "", "SQLite run store to record results in")
	resolveCmd.Flags().String("metrics-file", "", "write Prometheus text-format metrics here")
	resolveCmd.Flags().Int("workers", 0, "records resolved in parallel (default 1)")
	resolveCmd.Flags().Bool("no-annotator", false, "skip the annotator stages")
	resolveCmd.MarkFlagRequired("source")
	resolveCmd.MarkFlagRequired("input")

	viper.BindPFlag("output.dir", resolveCmd.Flags().Lookup("out-dir"))
	viper.BindPFlag("output.db_path", resolveCmd.Flags().Lookup("db"))
	viper.BindPFlag("output.metrics_file", resolveCmd.Flags().Lookup("metrics-file"))
	viper.BindPFlag("resolve.workers", resolveCmd.Flags().Lookup("workers"))

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	sourceName, _ := cmd.Flags().GetString("source")
	input, _ := cmd.Flags().GetString("input")
	name, _ := cmd.Flags().GetString("name")
	noAnnotator, _ := cmd.Flags().GetBool("no-annotator")
	if name == "" {
		name = strings.ToLower(sourceName)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := errors.Join(checkOntology(cfg.Ontology), checkConfig(cfg.Xref, cfg.Curation, cfg.Output, cfg.Resolve)); err != nil {
		return err
	}
	if !noAnnotator {
		if err := checkConfig(cfg.Annotator); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	out := cmd.OutOrStdout()
	logger := slog.Default()
	rec := metrics.New()
	col := issues.NewCollector()

	var (
		svc *annotator.Service
		ann resolve.Annotator
	)
	if !noAnnotator {
		if svc, err = newAnnotator(cfg.Annotator, col, rec, logger); err != nil {
			return err
		}
		ann = svc
	}

	reg, closeOntologies, err := openOntologies(ctx, cfg.Ontology, out)
	defer closeOntologies()
	if err != nil {
		return err
	}
	idx, err := buildXref(cfg.Xref, reg, out)
	if err != nil {
		return err
	}
	table, err := loadCuration(cfg.Curation, reg, col, out)
	if err != nil {
		return err
	}
	linker, err := openLinker(cfg.Genes, logger, out)
	if err != nil {
		return err
	}

	engine := resolve.New(resolve.Config{
		Xref:               idx,
		Curated:            table,
		Gateway:            reg,
		Secondary:          secondaryVocabulary(reg, cfg.Ontology.Secondary),
		Annotator:          ann,
		AcceptedMatchTypes: cfg.Annotator.AcceptedMatchTypes,
		IgnoreURIs:         cfg.Annotator.IgnoreURIs,
		StopWords:          cfg.Annotator.StopWords,
		DirectPrefixes:     directPrefixes(reg, cfg.Ontology.Secondary),
		Logger:             logger,
		Metrics:            rec,
	})

	sink, err := output.Create(cfg.Output.Dir, name)
	if err != nil {
		return err
	}

	batch := &resolve.Batch{
		Engine:  engine,
		Sink:    sink,
		Issues:  col,
		Metrics: rec,
		Logger:  logger,
		Out:     out,
		Workers: cfg.Resolve.Workers,
	}
	if linker != nil {
		batch.Linker = linker
	}

	var store *runstore.Store
	if cfg.Output.DBPath != "" {
		if store, err = runstore.Open(cfg.Output.DBPath); err != nil {
			sink.Close()
			return err
		}
		defer store.Close()
		run, err := store.BeginRun(ctx, sourceName, input)
		if err != nil {
			sink.Close()
			return err
		}
		batch.Store = store
		batch.RunID = run.ID
		fmt.Fprintf(out, "run      %s\n", run.ID)
	}

	srcCfg := cfg.Sources[strings.ToLower(sourceName)]
	src, err := sources.New(sourceName, sources.Options{
		Scorer:          sources.ScorerFor(srcCfg.Scores),
		IncludeInferred: srcCfg.IncludeInferred,
		OnRowError:      batch.RowError,
	})
	if err != nil {
		sink.Close()
		return err
	}

	sum, runErr := batch.Run(ctx, src, input)
	runErr = errors.Join(runErr, sink.Close())

	sum.Print(out)
	printAnnotatorStats(out, svc)
	primaryPath, auditPath := output.Paths(cfg.Output.Dir, name)
	counts := sink.Counts()
	fmt.Fprintf(out, "\nwrote %s (%d rows)\n      %s (%d unresolved, %d ambiguous)\n",
		primaryPath, counts.Primary, auditPath, counts.Unresolved, counts.Ambiguous)
	col.PrintSummary(out, 20)

	if store != nil {
		status := runstore.StatusDone
		if runErr != nil {
			status = runstore.StatusFailed
		}
		// Record the outcome even when the run was interrupted.
		bg := context.WithoutCancel(ctx)
		runErr = errors.Join(runErr,
			store.SaveIssues(bg, batch.RunID, col.All()),
			store.FinishRun(bg, batch.RunID, status))
	}

	rec.Finish(time.Since(start), time.Now())
	if cfg.Output.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}
