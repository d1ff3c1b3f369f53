// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/internal/runstore"
	"github.com/pdiddy/ontomap/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Report on runs recorded in the run store",
	Long: `Report reads the SQLite run store written by resolve --db. Without a
run id it reports the latest run. Use --runs to list all runs, --unresolved
or --search to list results, and --export to dump a run as YAML or JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("db", "", "run store path (default: output.db_path)")
	reportCmd.Flags().Bool("runs", false, "list all runs")
	reportCmd.Flags().Bool("unresolved", false, "list unresolved results")
	reportCmd.Flags().String("search", "", "list results whose code or keyword contains this text")
	reportCmd.Flags().String("type", "", "restrict listed results to one mapping type")
	reportCmd.Flags().Int("limit", 50, "maximum results to list (negative for all)")
	reportCmd.Flags().String("export", "", "export the run: yaml or json")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("output.db_path")
	}
	if dbPath == "" {
		return errors.New("no run store: pass --db or set output.db_path")
	}

	store, err := runstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if listRuns, _ := cmd.Flags().GetBool("runs"); listRuns {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		return formatRuns(out, runs)
	}

	var run runstore.Run
	if len(args) == 1 {
		run, err = store.GetRun(ctx, args[0])
	} else {
		run, err = store.LatestRun(ctx)
	}
	if err != nil {
		return err
	}

	switch format, _ := cmd.Flags().GetString("export"); format {
	case "":
	case "yaml", "yml":
		return store.ExportYAML(ctx, run.ID, out)
	case "json":
		return store.ExportJSON(ctx, run.ID, out)
	default:
		return fmt.Errorf("unsupported --export %q: use yaml or json", format)
	}

	sum, err := store.Summary(ctx, run.ID)
	if err != nil {
		return err
	}
	formatSummary(out, sum)

	opts, list, err := resultQueryFromFlags(cmd, run.ID)
	if err != nil || !list {
		return err
	}
	rows, err := store.Results(ctx, opts)
	if err != nil {
		return err
	}
	formatRows(out, rows)
	return nil
}

// resultQueryFromFlags reports whether any listing flag was given.
func resultQueryFromFlags(cmd *cobra.Command, runID string) (runstore.QueryOptions, bool, error) {
	unresolved, _ := cmd.Flags().GetBool("unresolved")
	search, _ := cmd.Flags().GetString("search")
	mappingType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := runstore.QueryOptions{RunID: runID, Text: search, Limit: limit}
	if mappingType != "" {
		mt := types.MappingType(strings.ToUpper(mappingType))
		if !mt.Valid() {
			return opts, false, fmt.Errorf("unknown mapping type %q", mappingType)
		}
		opts.MappingType = mt
	}
	if unresolved {
		opts.MappingType = types.MappingUnresolved
	}
	return opts, unresolved || search != "" || mappingType != "", nil
}

func formatRuns(w io.Writer, runs []runstore.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-6s  %-7s  %-19s  %s\n", "Run", "Source", "Status", "Started", "Input")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-6s  %-7s  %-19s  %s\n",
			r.ID, r.Source, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.Input)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

func formatSummary(w io.Writer, sum runstore.Summary) {
	fmt.Fprintf(w, "Run %s (%s, %s)\n", sum.Run.ID, sum.Run.Source, sum.Run.Status)
	fmt.Fprintf(w, "  input    %s\n", sum.Run.Input)
	fmt.Fprintf(w, "  started  %s\n", sum.Run.StartedAt.Format("2006-01-02 15:04:05"))
	if !sum.Run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  finished %s (%s)\n", sum.Run.FinishedAt.Format("2006-01-02 15:04:05"),
			sum.Run.FinishedAt.Sub(sum.Run.StartedAt).Round(1e9))
	}

	fmt.Fprintf(w, "\nResults: %d (%d resolved)\n", sum.Total(), sum.Resolved())
	for _, mt := range types.MappingTypes {
		if n := sum.ByType[mt]; n > 0 {
			fmt.Fprintf(w, "  %-18s %d\n", mt, n)
		}
	}

	if len(sum.Issues) > 0 {
		kinds := make([]string, 0, len(sum.Issues))
		for k := range sum.Issues {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		fmt.Fprintln(w, "\nIssues:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-11s %d\n", k, sum.Issues[issues.Kind(k)])
		}
	}
}

func formatRows(w io.Writer, rows []runstore.Row) {
	fmt.Fprintln(w)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintf(w, "%-6s  %-14s  %-40s  %-10s  %-18s  %s\n",
		"Line", "Code", "Keyword", "Gene", "Type", "Terms")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range rows {
		fmt.Fprintf(w, "%-6d  %-14s  %-40s  %-10s  %-18s  %s\n",
			r.Line, truncate(r.ExternalCode, 14), truncate(r.Keyword, 40), truncate(r.GeneSymbol, 10),
			r.MappingType, strings.Join(r.URIs, ","))
	}
	fmt.Fprintf(w, "\n%d results\n", len(rows))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
