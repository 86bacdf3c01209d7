package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/testutils"
)

func TestNewDataCompletenessRule(t *testing.T) {
	rule, err := NewDataCompletenessRule("data-completeness", DefaultDataCompletenessConfig())
	require.NoError(t, err)
	assert.Equal(t, "data-completeness", rule.Name())
	assert.True(t, rule.config.RequireTransferCalc)

	_, err = NewDataCompletenessRule("", DefaultDataCompletenessConfig())
	assert.ErrorIs(t, err, ErrEmptyRuleName)
}

func TestDataCompletenessRule_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		config     DataCompletenessConfig
		mutate     func(ds *domain.Dataset)
		wantPassed bool
		wantScore  float64
		wantMsgs   []string
	}{
		{
			name:       "complete dataset passes",
			config:     DefaultDataCompletenessConfig(),
			mutate:     func(ds *domain.Dataset) {},
			wantPassed: true,
			wantScore:  100,
		},
		{
			name:   "missing contest metadata",
			config: DefaultDataCompletenessConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Contests[0].Year = 0
				ds.Contests[0].State = ""
			},
			wantPassed: false,
			wantScore:  80,
			wantMsgs: []string{
				"1 missing values in contests.year",
				"1 missing values in contests.state",
			},
		},
		{
			name:   "counts aggregate across rows",
			config: DefaultDataCompletenessConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Contests[0].Office = ""
				ds.Contests[1].Office = ""
			},
			wantPassed: false,
			wantScore:  90,
			wantMsgs: []string{
				"2 missing values in contests.office",
			},
		},
		{
			name:   "missing candidate identifiers",
			config: DefaultDataCompletenessConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[0].CandidateID = ""
				ds.Candidates[1].Round = 0
			},
			wantPassed: false,
			wantScore:  80,
			wantMsgs: []string{
				"1 missing values in candidates.candidate_id",
				"1 missing values in candidates.round",
			},
		},
		{
			name:   "missing round summary contest id",
			config: DefaultDataCompletenessConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Rounds[0].ContestID = ""
			},
			wantPassed: false,
			wantScore:  90,
			wantMsgs: []string{
				"1 missing values in rounds.contest_id",
			},
		},
		{
			name:   "stale transfer deltas",
			config: DefaultDataCompletenessConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].TransferCalc = 5
			},
			wantPassed: false,
			wantScore:  90,
			wantMsgs: []string{
				"transfer deltas not computed for 1 candidate rows",
			},
		},
		{
			name:   "transfer check can be disabled",
			config: DataCompletenessConfig{RequireTransferCalc: false},
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].TransferCalc = 5
			},
			wantPassed: true,
			wantScore:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewDataCompletenessRule("data-completeness", tt.config)
			require.NoError(t, err)

			ds := testutils.CleanDataset("alpha", "beta")
			tt.mutate(ds)

			result, err := rule.Evaluate(context.Background(), ds)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPassed, result.Passed)
			assert.Equal(t, tt.wantScore, result.Score)
			require.Len(t, result.Issues, len(tt.wantMsgs))
			for i, want := range tt.wantMsgs {
				assert.Equal(t, want, result.Issues[i].Message)
				assert.Empty(t, result.Issues[i].ContestID, "completeness findings are dataset-level")
			}
		})
	}
}

func TestDataCompletenessRule_Evaluate_MissingPreviousRoundIsNotStale(t *testing.T) {
	rule, err := NewDataCompletenessRule("data-completeness", DefaultDataCompletenessConfig())
	require.NoError(t, err)

	// No round 2 row exists, so round 3's delta cannot be checked.
	ds := &domain.Dataset{
		Contests: []domain.Contest{{
			ID: "c1", State: "ME", Year: 2026, Jurisdiction: "Portland",
			Office: "Mayor", ElectionType: "general",
		}},
		Candidates: []domain.CandidateRound{
			{ContestID: "c1", CandidateID: "alice", Round: 1, Votes: 100},
			{ContestID: "c1", CandidateID: "alice", Round: 3, Votes: 50, TransferCalc: 999},
		},
		Rounds: []domain.RoundSummary{
			{ContestID: "c1", Round: 1, TotalVotes: 100},
			{ContestID: "c1", Round: 3, TotalVotes: 100},
		},
	}

	result, err := rule.Evaluate(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
}

func TestDataCompletenessRule_Evaluate_UnreconstructedDatasetReportsOnce(t *testing.T) {
	rule, err := NewDataCompletenessRule("data-completeness", DefaultDataCompletenessConfig())
	require.NoError(t, err)

	ds := testutils.CleanDataset("alpha", "beta")
	for i := range ds.Candidates {
		ds.Candidates[i].TransferCalc = 0
	}

	result, err := rule.Evaluate(context.Background(), ds)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "transfer deltas not computed for 4 candidate rows", result.Issues[0].Message)
}

func TestDataCompletenessRule_Evaluate_NilDataset(t *testing.T) {
	rule, err := NewDataCompletenessRule("data-completeness", DefaultDataCompletenessConfig())
	require.NoError(t, err)

	_, err = rule.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNilDataset)
}

func TestNewDataCompletenessFromConfig(t *testing.T) {
	rulePort, err := NewDataCompletenessFromConfig("data-completeness", map[string]any{
		"require_transfer_calc": false,
	})
	require.NoError(t, err)
	rule, ok := rulePort.(*DataCompletenessRule)
	require.True(t, ok)
	assert.False(t, rule.config.RequireTransferCalc)

	_, err = NewDataCompletenessFromConfig("", nil)
	assert.ErrorIs(t, err, ErrEmptyRuleName)
}
