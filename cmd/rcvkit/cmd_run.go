package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jordanholbrook/rcvkit/infrastructure/report"
	"github.com/jordanholbrook/rcvkit/infrastructure/tabular"
)

var (
	runInput     string
	runOutput    string
	runReportDir string
)

// runCmd chains clean and validate in a single pass.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean raw extracts and validate them in one pass",
	Long: `Reads raw extract CSVs, runs the full pipeline (normalization, rule
evaluation, tier scoring), writes the cleaned tables and per-contest
scores to the output directory, and saves a timestamped text report.
Equivalent to clean followed by validate without the intermediate read.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Directory containing raw extract CSVs (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Directory for cleaned CSVs (default <input>/cleaned)")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "reports", "Directory for validation reports")
	runCmd.MarkFlagRequired("input")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if runOutput == "" {
		runOutput = filepath.Join(runInput, "cleaned")
	}

	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	dataset, err := tabular.NewReader(logger).Read(ctx, runInput)
	if err != nil {
		return err
	}

	rpt, err := pipeline.Run(ctx, dataset)
	if err != nil {
		return err
	}

	if err := tabular.NewWriter(logger).Write(ctx, runOutput, dataset, rpt.Scores); err != nil {
		return err
	}

	reportPath := filepath.Join(runReportDir, report.Filename(rpt.GeneratedAt))
	if err := report.NewTextSink(logger).Save(ctx, rpt, reportPath); err != nil {
		return err
	}

	fmt.Print(report.Render(rpt))
	fmt.Printf("\nCleaned output in %s\nReport saved to %s\n", runOutput, reportPath)
	return nil
}
