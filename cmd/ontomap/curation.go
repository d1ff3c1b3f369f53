// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ontomap/internal/issues"
)

var curationCmd = &cobra.Command{
	Use:   "curation",
	Short: "Validate the curated mapping table against the ontology",
	Long: `Curation loads the configured vocabularies and the curated mapping table,
checks every entry (URIs known and not obsolete, labels matching) and
prints the rejected entries. It exits non-zero when any entry is rejected.`,
	RunE: runCuration,
}

func init() {
	curationCmd.Flags().Int("limit", 50, "maximum issues to print")
	rootCmd.AddCommand(curationCmd)
}

func runCuration(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := errors.Join(checkOntology(cfg.Ontology), checkConfig(cfg.Curation)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reg, closeOntologies, err := openOntologies(context.Background(), cfg.Ontology, out)
	defer closeOntologies()
	if err != nil {
		return err
	}

	col := issues.NewCollector()
	table, err := loadCuration(cfg.Curation, reg, col, out)
	if err != nil {
		return err
	}
	col.PrintSummary(out, limit)
	if n := table.Rejected(); n > 0 {
		return fmt.Errorf("%d curated entries rejected", n)
	}
	return nil
}
