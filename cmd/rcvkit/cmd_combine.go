package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanholbrook/rcvkit/infrastructure/tabular"
)

var combinePattern string

// combineCmd merges per-jurisdiction cleaned outputs.
var combineCmd = &cobra.Command{
	Use:   "combine <root> [output]",
	Short: "Combine per-jurisdiction cleaned outputs into one dataset",
	Long: `Scans the root directory for jurisdiction directories (filtered by
--pattern), reads each one's cleaned/ tables, and merges them into
combined CSVs with a source_key column identifying the jurisdiction.
Jurisdictions missing any cleaned table are skipped with a warning.
Output defaults to combined_outputs.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCombine,
}

func init() {
	combineCmd.Flags().StringVar(&combinePattern, "pattern", "*", "Glob pattern selecting jurisdiction directories")
}

func runCombine(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	root := args[0]
	output := "combined_outputs"
	if len(args) == 2 {
		output = args[1]
	}

	stats, err := tabular.NewCombiner(logger).Combine(ctx, root, output, combinePattern)
	if err != nil {
		return err
	}

	fmt.Printf("Combined %d jurisdictions into %s\n", stats.Jurisdictions, output)

	files := make([]string, 0, len(stats.RowsWritten))
	for file := range stats.RowsWritten {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		fmt.Printf("  %s: %d rows\n", file, stats.RowsWritten[file])
	}

	if len(stats.Skipped) > 0 {
		fmt.Printf("Skipped incomplete jurisdictions: %s\n", strings.Join(stats.Skipped, ", "))
	}
	return nil
}
