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

func TestNewSingleWinnerRule(t *testing.T) {
	tests := []struct {
		name      string
		ruleName  string
		config    SingleWinnerConfig
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid configuration",
			ruleName:  "single-winner",
			config:    DefaultSingleWinnerConfig(),
			wantError: false,
		},
		{
			name:      "multi-seat contest",
			ruleName:  "single-winner",
			config:    SingleWinnerConfig{ExpectedWinners: 3},
			wantError: false,
		},
		{
			name:      "empty rule name",
			ruleName:  "",
			config:    DefaultSingleWinnerConfig(),
			wantError: true,
			errorMsg:  "rule name cannot be empty",
		},
		{
			name:      "zero expected winners",
			ruleName:  "single-winner",
			config:    SingleWinnerConfig{ExpectedWinners: 0},
			wantError: true,
			errorMsg:  "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewSingleWinnerRule(tt.ruleName, tt.config)
			if tt.wantError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, rule)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, rule)
				assert.Equal(t, tt.ruleName, rule.Name())
			}
		})
	}
}

func TestSingleWinnerRule_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		config     SingleWinnerConfig
		mutate     func(ds *domain.Dataset)
		wantPassed bool
		wantScore  float64
		wantMsg    string
	}{
		{
			name:       "single winner passes",
			config:     DefaultSingleWinnerConfig(),
			mutate:     func(ds *domain.Dataset) {},
			wantPassed: true,
			wantScore:  100,
		},
		{
			name:   "no winner in final round",
			config: DefaultSingleWinnerConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].Status = domain.StatusContinuing
			},
			wantPassed: false,
			wantScore:  90,
			wantMsg:    "no winner identified in final round 2",
		},
		{
			name:   "two winners in final round",
			config: DefaultSingleWinnerConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[3].Status = domain.StatusElected
			},
			wantPassed: false,
			wantScore:  90,
			wantMsg:    "expected 1 winner(s) in final round 2, found 2: Alice Chen, Bob Ortiz",
		},
		{
			name:   "winner in earlier round does not count",
			config: DefaultSingleWinnerConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].Status = domain.StatusContinuing
				ds.Candidates[0].Status = domain.StatusElected
			},
			wantPassed: false,
			wantScore:  90,
			wantMsg:    "no winner identified in final round 2",
		},
		{
			name:   "lowercase status does not count as elected",
			config: DefaultSingleWinnerConfig(),
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[2].Status = domain.CandidateStatus("elected")
			},
			wantPassed: false,
			wantScore:  90,
			wantMsg:    "no winner identified",
		},
		{
			name:   "multi-seat expectation satisfied",
			config: SingleWinnerConfig{ExpectedWinners: 2},
			mutate: func(ds *domain.Dataset) {
				ds.Candidates[3].Status = domain.StatusElected
			},
			wantPassed: true,
			wantScore:  100,
		},
		{
			name:   "multi-seat shortfall fails",
			config: SingleWinnerConfig{ExpectedWinners: 2},
			mutate: func(ds *domain.Dataset) {},
			wantPassed: false,
			wantScore:  90,
			wantMsg:    "expected 2 winner(s) in final round 2, found 1: Alice Chen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewSingleWinnerRule("single-winner", tt.config)
			require.NoError(t, err)

			ds := testutils.CleanDataset("ME_2026_G_Portland_01_Mayor")
			tt.mutate(ds)

			result, err := rule.Evaluate(context.Background(), ds)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPassed, result.Passed)
			assert.Equal(t, tt.wantScore, result.Score)
			if tt.wantMsg != "" {
				require.NotEmpty(t, result.Issues)
				assert.Contains(t, result.Issues[0].Message, tt.wantMsg)
				assert.Equal(t, "ME_2026_G_Portland_01_Mayor", result.Issues[0].ContestID)
			} else {
				assert.Empty(t, result.Issues)
			}
		})
	}
}

func TestSingleWinnerRule_Evaluate_PenaltyPerContest(t *testing.T) {
	rule, err := NewSingleWinnerRule("single-winner", DefaultSingleWinnerConfig())
	require.NoError(t, err)

	ds := testutils.CleanDataset("alpha", "beta", "gamma")
	ds.Candidates[2].Status = domain.StatusContinuing // alpha: no winner
	ds.Candidates[7].Status = domain.StatusElected    // beta: two winners

	result, err := rule.Evaluate(context.Background(), ds)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, 80.0, result.Score)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "alpha", result.Issues[0].ContestID)
	assert.Equal(t, "beta", result.Issues[1].ContestID)
}

func TestSingleWinnerRule_Evaluate_NilDataset(t *testing.T) {
	rule, err := NewSingleWinnerRule("single-winner", DefaultSingleWinnerConfig())
	require.NoError(t, err)

	_, err = rule.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNilDataset)
}

func TestSingleWinnerRule_UnmarshalParameters(t *testing.T) {
	rule, err := NewSingleWinnerRule("single-winner", DefaultSingleWinnerConfig())
	require.NoError(t, err)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`expected_winners: 2`), &node))
	require.NoError(t, rule.UnmarshalParameters(*node.Content[0]))
	assert.Equal(t, 2, rule.config.ExpectedWinners)

	require.NoError(t, yaml.Unmarshal([]byte(`expected_winners: 0`), &node))
	err = rule.UnmarshalParameters(*node.Content[0])
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parameter validation failed")
}

func TestNewSingleWinnerFromConfig(t *testing.T) {
	rulePort, err := NewSingleWinnerFromConfig("single-winner", map[string]any{"expected_winners": 3})
	require.NoError(t, err)
	rule, ok := rulePort.(*SingleWinnerRule)
	require.True(t, ok)
	assert.Equal(t, 3, rule.config.ExpectedWinners)

	rulePort, err = NewSingleWinnerFromConfig("single-winner", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSingleWinnerConfig(), rulePort.(*SingleWinnerRule).config)

	_, err = NewSingleWinnerFromConfig("", nil)
	assert.ErrorIs(t, err, ErrEmptyRuleName)
}
