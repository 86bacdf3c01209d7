package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jordanholbrook/rcvkit/infrastructure/report"
	"github.com/jordanholbrook/rcvkit/infrastructure/tabular"
)

var (
	validateInput     string
	validateReportDir string
)

// validateCmd scores an already-cleaned dataset.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate cleaned data and score contests into review tiers",
	Long: `Reads cleaned CSV tables, evaluates the rule suite against them, and
scores every contest into a review tier. The per-contest scores are
written back into the input directory (election_validation_scores.csv
and Elections_DF_cleaned_with_scores.csv) and a timestamped text report
lands in the report directory.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateInput, "input", "", "Directory containing cleaned CSVs (required)")
	validateCmd.Flags().StringVar(&validateReportDir, "report-dir", "reports", "Directory for validation reports")
	validateCmd.MarkFlagRequired("input")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	dataset, err := tabular.NewReader(logger).Read(ctx, validateInput)
	if err != nil {
		return err
	}

	rpt, err := pipeline.Run(ctx, dataset)
	if err != nil {
		return err
	}

	if err := tabular.NewWriter(logger).Write(ctx, validateInput, dataset, rpt.Scores); err != nil {
		return err
	}

	reportPath := filepath.Join(validateReportDir, report.Filename(rpt.GeneratedAt))
	if err := report.NewTextSink(logger).Save(ctx, rpt, reportPath); err != nil {
		return err
	}

	fmt.Print(report.Render(rpt))
	fmt.Printf("\nReport saved to %s\n", reportPath)
	return nil
}
