package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordanholbrook/rcvkit/infrastructure/tabular"
	"github.com/jordanholbrook/rcvkit/internal/stats"
)

var statsInput string

// statsCmd prints descriptive statistics without validating.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary statistics for a dataset",
	Long: `Reads a raw or cleaned dataset and prints per-collection quality counts
(rows, missing values, duplicate keys), numeric column profiles, and
ranked-choice metrics such as vote ranges and elections by year. Purely
descriptive; no validation rules run.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsInput, "input", "", "Directory containing dataset CSVs (required)")
	statsCmd.MarkFlagRequired("input")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	dataset, err := tabular.NewReader(logger).Read(ctx, statsInput)
	if err != nil {
		return err
	}

	fmt.Print(stats.Summarize(dataset).Render())
	return nil
}
