package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/testutils"
)

func TestNewVoteMonotonicityRule(t *testing.T) {
	rule, err := NewVoteMonotonicityRule("vote-monotonicity", DefaultVoteMonotonicityConfig())
	require.NoError(t, err)
	assert.Equal(t, "vote-monotonicity", rule.Name())
	assert.True(t, rule.config.IgnoreEliminated)

	_, err = NewVoteMonotonicityRule("", DefaultVoteMonotonicityConfig())
	assert.ErrorIs(t, err, ErrEmptyRuleName)
}

func TestVoteMonotonicityRule_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		config     VoteMonotonicityConfig
		mutate     func(ds *domain.Dataset)
		wantPassed bool
		wantScore  float64
		wantMsg    string
	}{
		{
			name:       "eliminated candidates may lose votes",
			config:     DefaultVoteMonotonicityConfig(),
			mutate:     func(ds *domain.Dataset) {},
			wantPassed: true,
			wantScore:  100,
		},
		{
			name:   "non-eliminated candidate losing votes fails",
			config: DefaultVoteMonotonicityConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].Votes = 50
			},
			wantPassed: false,
			wantScore:  95,
			wantMsg:    "candidate alice lost votes: round 1: 60 votes, round 2: 50 votes",
		},
		{
			name:   "strict mode flags eliminated candidates too",
			config: VoteMonotonicityConfig{IgnoreEliminated: false},
			mutate: func(ds *domain.Dataset) {},
			wantPassed: false,
			wantScore:  95,
			wantMsg:    "candidate bob lost votes: round 1: 40 votes, round 2: 20 votes",
		},
		{
			name:   "flat vote counts are fine",
			config: DefaultVoteMonotonicityConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].Votes = 60
			},
			wantPassed: true,
			wantScore:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewVoteMonotonicityRule("vote-monotonicity", tt.config)
			require.NoError(t, err)

			ds := testutils.CleanDataset("ME_2026_G_Portland_01_Mayor")
			tt.mutate(ds)

			result, err := rule.Evaluate(context.Background(), ds)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPassed, result.Passed)
			assert.Equal(t, tt.wantScore, result.Score)
			if tt.wantMsg != "" {
				require.NotEmpty(t, result.Issues)
				assert.Equal(t, tt.wantMsg, result.Issues[0].Message)
			} else {
				assert.Empty(t, result.Issues)
			}
		})
	}
}

func TestVoteMonotonicityRule_Evaluate_RepeatedDropsStack(t *testing.T) {
	rule, err := NewVoteMonotonicityRule("vote-monotonicity", DefaultVoteMonotonicityConfig())
	require.NoError(t, err)

	ds := &domain.Dataset{
		Candidates: []domain.CandidateRound{
			{ContestID: "c1", CandidateID: "alice", Name: "Alice Chen", Round: 1, Votes: 100, Status: domain.StatusContinuing},
			{ContestID: "c1", CandidateID: "alice", Name: "Alice Chen", Round: 2, Votes: 90, Status: domain.StatusContinuing},
			{ContestID: "c1", CandidateID: "alice", Name: "Alice Chen", Round: 3, Votes: 80, Status: domain.StatusElected},
		},
	}

	result, err := rule.Evaluate(context.Background(), ds)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 90.0, result.Score)
	require.Len(t, result.Issues, 2)
	assert.Contains(t, result.Issues[0].Message, "round 1: 100 votes, round 2: 90 votes")
	assert.Contains(t, result.Issues[1].Message, "round 2: 90 votes, round 3: 80 votes")
}

func TestVoteMonotonicityRule_Evaluate_RowsOutOfOrder(t *testing.T) {
	// Rounds arrive shuffled; the rule must order them before comparing.
	rule, err := NewVoteMonotonicityRule("vote-monotonicity", DefaultVoteMonotonicityConfig())
	require.NoError(t, err)

	ds := &domain.Dataset{
		Candidates: []domain.CandidateRound{
			{ContestID: "c1", CandidateID: "alice", Round: 3, Votes: 120, Status: domain.StatusElected},
			{ContestID: "c1", CandidateID: "alice", Round: 1, Votes: 100, Status: domain.StatusContinuing},
			{ContestID: "c1", CandidateID: "alice", Round: 2, Votes: 110, Status: domain.StatusContinuing},
		},
	}

	result, err := rule.Evaluate(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
}

func TestVoteMonotonicityRule_Evaluate_NilDataset(t *testing.T) {
	rule, err := NewVoteMonotonicityRule("vote-monotonicity", DefaultVoteMonotonicityConfig())
	require.NoError(t, err)

	_, err = rule.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNilDataset)
}

func TestVoteMonotonicityRule_UnmarshalParameters(t *testing.T) {
	rule, err := NewVoteMonotonicityRule("vote-monotonicity", DefaultVoteMonotonicityConfig())
	require.NoError(t, err)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`ignore_eliminated: false`), &node))
	require.NoError(t, rule.UnmarshalParameters(*node.Content[0]))
	assert.False(t, rule.config.IgnoreEliminated)

	require.NoError(t, yaml.Unmarshal([]byte(`ignore_eliminated: [not, a, bool]`), &node))
	err = rule.UnmarshalParameters(*node.Content[0])
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode parameters")
}

func TestNewVoteMonotonicityFromConfig(t *testing.T) {
	rulePort, err := NewVoteMonotonicityFromConfig("vote-monotonicity", map[string]any{
		"ignore_eliminated": false,
	})
	require.NoError(t, err)
	rule, ok := rulePort.(*VoteMonotonicityRule)
	require.True(t, ok)
	assert.False(t, rule.config.IgnoreEliminated)

	rulePort, err = NewVoteMonotonicityFromConfig("vote-monotonicity", nil)
	require.NoError(t, err)
	assert.True(t, rulePort.(*VoteMonotonicityRule).config.IgnoreEliminated)

	_, err = NewVoteMonotonicityFromConfig("", nil)
	assert.ErrorIs(t, err, ErrEmptyRuleName)
}
