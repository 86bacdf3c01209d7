package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jordanholbrook/rcvkit/infrastructure/tabular"
)

var (
	cleanInput  string
	cleanOutput string
)

// cleanCmd normalizes raw extracts without evaluating rules.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize raw extracts into cleaned CSV tables",
	Long: `Reads raw Elections_DF, Candidates_DF, and Rounds_DF CSV files from the
input directory, runs the normalization stages (value cleaning, grid
reconstruction, identifier canonicalization, status derivation), and
writes the cleaned tables.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "Directory containing raw extract CSVs (required)")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "", "Directory for cleaned CSVs (default <input>/cleaned)")
	cleanCmd.MarkFlagRequired("input")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if cleanOutput == "" {
		cleanOutput = filepath.Join(cleanInput, "cleaned")
	}

	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	dataset, err := tabular.NewReader(logger).Read(ctx, cleanInput)
	if err != nil {
		return err
	}

	if err := pipeline.Normalize(ctx, dataset); err != nil {
		return err
	}

	if err := tabular.NewWriter(logger).Write(ctx, cleanOutput, dataset, nil); err != nil {
		return err
	}

	fmt.Printf("Cleaned %d contests (%d candidate rows, %d round rows) into %s\n",
		len(dataset.Contests), len(dataset.Candidates), len(dataset.Rounds), cleanOutput)
	return nil
}
