// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ontomap/internal/ontology"
)

var xrefCmd = &cobra.Command{
	Use:   "xref [code...]",
	Short: "Build the cross-reference index and look up codes",
	Long: `Xref loads the configured vocabularies, builds the cross-reference index
from the ontology export and prints its statistics. Each code argument is
looked up and its terms printed with their labels.`,
	RunE: runXref,
}

func init() {
	rootCmd.AddCommand(xrefCmd)
}

func runXref(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := errors.Join(checkOntology(cfg.Ontology), checkConfig(cfg.Xref)); err != nil {
		return err
	}

	ctx := context.Background()
	out := cmd.OutOrStdout()
	reg, closeOntologies, err := openOntologies(ctx, cfg.Ontology, out)
	defer closeOntologies()
	if err != nil {
		return err
	}
	idx, err := buildXref(cfg.Xref, reg, out)
	if err != nil {
		return err
	}

	for _, code := range args {
		canonical := ontology.NormalizeCode(code, cfg.Xref.PrefixAliases)
		uris := idx.Lookup(code)
		if len(uris) == 0 {
			fmt.Fprintf(out, "\n%s: no terms\n", canonical)
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", canonical)
		for _, uri := range uris {
			label := ""
			if term, ok := reg.Term(uri); ok {
				label = term.Label
			}
			fmt.Fprintf(out, "  %-14s  %s\n", ontology.URIToCode(uri), label)
		}
	}
	return nil
}
