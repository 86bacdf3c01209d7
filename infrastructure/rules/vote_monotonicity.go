package rules

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

var _ ports.Rule = (*VoteMonotonicityRule)(nil)

// monotonicityPenalty is subtracted per violation. Vote drops are the
// mildest structural finding, so they cost half the standard penalty.
const monotonicityPenalty = 5.0

// VoteMonotonicityRule checks that a candidate still in the race never
// loses votes between consecutive rounds. In ranked-choice tabulation a
// continuing candidate keeps every vote they have and can only gain from
// eliminations, so any decrease points at an extraction or tabulation
// problem.
//
// The rule is stateless and safe for concurrent execution.
type VoteMonotonicityRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config VoteMonotonicityConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// VoteMonotonicityConfig defines the configuration parameters for the
// VoteMonotonicityRule.
type VoteMonotonicityConfig struct {
	// IgnoreEliminated skips decreases on rows labeled Eliminated, which
	// legitimately drop to zero when a candidate leaves the race.
	IgnoreEliminated bool `yaml:"ignore_eliminated" json:"ignore_eliminated"`
}

// DefaultVoteMonotonicityConfig returns the standard configuration:
// eliminated candidates may lose votes.
func DefaultVoteMonotonicityConfig() VoteMonotonicityConfig {
	return VoteMonotonicityConfig{IgnoreEliminated: true}
}

// NewVoteMonotonicityRule creates a VoteMonotonicityRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewVoteMonotonicityRule(name string, config VoteMonotonicityConfig) (*VoteMonotonicityRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &VoteMonotonicityRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("vote-monotonicity-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *VoteMonotonicityRule) Name() string { return r.name }

// Evaluate walks each candidate's rounds in order and reports every
// decrease on a row that is not eliminated.
func (r *VoteMonotonicityRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "VoteMonotonicityRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "vote_monotonicity"),
			attribute.String("rule.id", r.name),
			attribute.Bool("config.ignore_eliminated", r.config.IgnoreEliminated),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	byContest := dataset.CandidatesByContest()
	violations := 0
	for _, contestID := range sortedKeys(byContest) {
		byCandidate := make(map[string][]*domain.CandidateRound)
		for _, row := range byContest[contestID] {
			byCandidate[row.CandidateID] = append(byCandidate[row.CandidateID], row)
		}

		for _, candidateID := range sortedKeys(byCandidate) {
			rows := byCandidate[candidateID]
			sort.Slice(rows, func(i, j int) bool { return rows[i].Round < rows[j].Round })

			for i := 1; i < len(rows); i++ {
				if rows[i].Votes >= rows[i-1].Votes {
					continue
				}
				if r.config.IgnoreEliminated && rows[i].Status == domain.StatusEliminated {
					continue
				}
				violations++
				result.Passed = false
				result.Issues = append(result.Issues, domain.Issue{
					ContestID: contestID,
					Message: fmt.Sprintf("candidate %s lost votes: round %d: %d votes, round %d: %d votes",
						candidateID, rows[i-1].Round, rows[i-1].Votes, rows[i].Round, rows[i].Votes),
				})
			}
		}
	}

	if violations > 0 {
		score := PerfectScore - float64(violations)*monotonicityPenalty
		if score < 0 {
			score = 0
		}
		result.Score = score
	}

	span.SetAttributes(
		attribute.Bool("rule.passed", result.Passed),
		attribute.Float64("rule.score", result.Score),
		attribute.Int("rule.issues_count", len(result.Issues)),
	)
	return result, nil
}

// Validate verifies the rule is properly configured and ready to run.
func (r *VoteMonotonicityRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *VoteMonotonicityRule) UnmarshalParameters(params yaml.Node) error {
	var config VoteMonotonicityConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewVoteMonotonicityFromConfig creates a VoteMonotonicityRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewVoteMonotonicityFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultVoteMonotonicityConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewVoteMonotonicityRule(id, cfg)
}
