// Package report renders validation reports as plain text for human
// review. The rendered form mirrors what operators read after a batch
// run: the overall score, data totals, each rule's outcome with its
// findings, and the contests needing attention.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

var _ ports.ReportSink = (*TextSink)(nil)

// TextSink writes validation reports as plain text files.
type TextSink struct {
	logger *zap.Logger
}

// NewTextSink creates a TextSink. A nil logger disables logging.
func NewTextSink(logger *zap.Logger) *TextSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextSink{logger: logger}
}

// Filename returns the timestamped report file name used by default,
// e.g. validation_report_20260821_153045.txt.
func Filename(t time.Time) string {
	return "validation_report_" + t.Format("20060102_150405") + ".txt"
}

// Save renders the report and writes it to path, creating parent
// directories as needed.
func (s *TextSink) Save(ctx context.Context, report *domain.Report, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if report == nil {
		return errors.New("cannot save nil report")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(Render(report)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	s.logger.Info("validation report saved",
		zap.String("path", path),
		zap.Float64("overall_score", report.OverallScore),
		zap.Bool("passed", report.Passed()))
	return nil
}

// Render produces the plain-text form of a report. The CLI prints the
// same text to stdout that Save writes to disk.
func Render(report *domain.Report) string {
	var b strings.Builder

	fmt.Fprintln(&b, "Election Data Validation Report")
	fmt.Fprintln(&b, strings.Repeat("=", 50))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Report ID: %s\n", report.ID)
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Overall Score: %.1f/100\n\n", report.OverallScore)

	fmt.Fprintln(&b, "Data Summary:")
	fmt.Fprintf(&b, "  Total Contests: %d\n", report.TotalContests)
	fmt.Fprintf(&b, "  Total Candidate Records: %d\n", report.TotalCandidateRows)
	fmt.Fprintf(&b, "  Total Round Records: %d\n\n", report.TotalRoundRows)

	fmt.Fprintln(&b, "Validation Results:")
	fmt.Fprintln(&b, strings.Repeat("-", 20))
	for _, result := range report.Results {
		fmt.Fprintf(&b, "\n%s:\n", result.RuleName)
		fmt.Fprintf(&b, "  Status: %s\n", statusLine(result.Passed))
		fmt.Fprintf(&b, "  Score: %.1f/100\n", result.Score)
		if len(result.Issues) == 0 {
			continue
		}
		fmt.Fprintln(&b, "  Issues:")
		for _, issue := range result.Issues {
			if issue.ContestID != "" {
				fmt.Fprintf(&b, "    - [%s] %s\n", issue.ContestID, issue.Message)
			} else {
				fmt.Fprintf(&b, "    - %s\n", issue.Message)
			}
		}
	}

	if len(report.ProblematicContests) > 0 {
		fmt.Fprintln(&b, "\nProblematic Contests:")
		fmt.Fprintln(&b, strings.Repeat("-", 20))
		for _, id := range report.ProblematicContests {
			fmt.Fprintf(&b, "  - %s\n", id)
		}
	}
	return b.String()
}

func statusLine(passed bool) string {
	if passed {
		return "✓ PASSED"
	}
	return "✗ FAILED"
}
