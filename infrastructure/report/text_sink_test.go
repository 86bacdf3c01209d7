package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

func sampleReport() *domain.Report {
	return &domain.Report{
		ID:                 "7f3d2a90-1c44-4e7a-9b55-0d6f1a2b3c4d",
		GeneratedAt:        time.Date(2026, 3, 9, 14, 5, 6, 0, time.UTC),
		TotalContests:      4,
		TotalCandidateRows: 32,
		TotalRoundRows:     12,
		Results: []domain.RuleResult{
			{RuleName: "vote_consistency", Passed: true, Score: 100},
			{
				RuleName: "transfer_balance",
				Passed:   false,
				Score:    72.5,
				Issues: []domain.Issue{
					{ContestID: "ak-anchorage", Message: "round 2 transfers sum to +120"},
					{Message: "1 contest skipped: no transfer data"},
				},
			},
		},
		OverallScore:        86.3,
		ProblematicContests: []string{"ak-anchorage"},
	}
}

func TestTextSink_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", Filename(time.Now()))

	err := NewTextSink(zap.NewNop()).Save(context.Background(), sampleReport(), path)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "Election Data Validation Report")
	assert.Contains(t, text, "Report ID: 7f3d2a90-1c44-4e7a-9b55-0d6f1a2b3c4d")
	assert.Contains(t, text, "Generated: 2026-03-09T14:05:06Z")
	assert.Contains(t, text, "Overall Score: 86.3/100")
	assert.Contains(t, text, "Total Contests: 4")
	assert.Contains(t, text, "Total Candidate Records: 32")
	assert.Contains(t, text, "Total Round Records: 12")

	assert.Contains(t, text, "vote_consistency:")
	assert.Contains(t, text, "✓ PASSED")
	assert.Contains(t, text, "Score: 100.0/100")
	assert.Contains(t, text, "transfer_balance:")
	assert.Contains(t, text, "✗ FAILED")
	assert.Contains(t, text, "Score: 72.5/100")
	assert.Contains(t, text, "- [ak-anchorage] round 2 transfers sum to +120")
	assert.Contains(t, text, "- 1 contest skipped: no transfer data")

	assert.Contains(t, text, "Problematic Contests:")
	assert.Contains(t, text, "  - ak-anchorage")
}

func TestTextSink_Save_NilReport(t *testing.T) {
	err := NewTextSink(nil).Save(context.Background(), nil, filepath.Join(t.TempDir(), "r.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil report")
}

func TestTextSink_Save_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTextSink(nil).Save(ctx, sampleReport(), filepath.Join(t.TempDir(), "r.txt"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_CleanReportOmitsProblematicSection(t *testing.T) {
	rpt := sampleReport()
	rpt.Results = []domain.RuleResult{{RuleName: "vote_consistency", Passed: true, Score: 100}}
	rpt.ProblematicContests = nil

	text := Render(rpt)
	assert.NotContains(t, text, "Problematic Contests")
	assert.NotContains(t, text, "Issues:")
}

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 3, 9, 14, 5, 6, 0, time.UTC)
	assert.Equal(t, "validation_report_20260309_140506.txt", Filename(ts))
}
