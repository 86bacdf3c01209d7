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

var _ ports.Rule = (*RoundSequenceRule)(nil)

// RoundSequenceRule checks that each contest's rounds form the contiguous
// sequence 1..max in the candidate collection, and that the round-summary
// collection covers exactly the same rounds. Gaps usually mean a page was
// dropped during extraction; disagreement between collections means the
// two were extracted from different tabulations.
//
// The rule is stateless and safe for concurrent execution.
type RoundSequenceRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config RoundSequenceConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// RoundSequenceConfig defines the configuration parameters for the
// RoundSequenceRule.
type RoundSequenceConfig struct {
	// RequireSummaryAgreement also checks that the round-summary
	// collection lists exactly the rounds seen in candidate rows.
	// Disable when validating candidate-only extracts.
	RequireSummaryAgreement bool `yaml:"require_summary_agreement" json:"require_summary_agreement"`
}

// DefaultRoundSequenceConfig returns the standard configuration with
// summary agreement required.
func DefaultRoundSequenceConfig() RoundSequenceConfig {
	return RoundSequenceConfig{RequireSummaryAgreement: true}
}

// NewRoundSequenceRule creates a RoundSequenceRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewRoundSequenceRule(name string, config RoundSequenceConfig) (*RoundSequenceRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &RoundSequenceRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("round-sequence-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *RoundSequenceRule) Name() string { return r.name }

// Evaluate checks round numbering for every contest with candidate rows.
// A contest that starts past round 1 collects both the start issue and
// the sequence issue, matching the double penalty such data deserves.
func (r *RoundSequenceRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "RoundSequenceRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "round_sequence"),
			attribute.String("rule.id", r.name),
			attribute.Bool("config.require_summary_agreement", r.config.RequireSummaryAgreement),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	summaryRounds := make(map[string][]int)
	for _, row := range dataset.Rounds {
		summaryRounds[row.ContestID] = append(summaryRounds[row.ContestID], row.Round)
	}

	byContest := dataset.CandidatesByContest()
	discrepancies := 0
	for _, contestID := range sortedKeys(byContest) {
		candidateRounds := distinctSorted(roundsOf(byContest[contestID]))

		if candidateRounds[0] != 1 {
			discrepancies++
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: contestID,
				Message:   fmt.Sprintf("rounds don't start from 1 (start with %d)", candidateRounds[0]),
			})
		}

		if !equalInts(candidateRounds, expectedRounds(candidateRounds[len(candidateRounds)-1])) {
			discrepancies++
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: contestID,
				Message:   fmt.Sprintf("non-sequential rounds: %v", candidateRounds),
			})
		}

		if r.config.RequireSummaryAgreement {
			summaries := distinctSorted(summaryRounds[contestID])
			if !equalInts(summaries, candidateRounds) {
				discrepancies++
				result.Passed = false
				result.Issues = append(result.Issues, domain.Issue{
					ContestID: contestID,
					Message: fmt.Sprintf("round mismatch between candidates %v and round summaries %v",
						candidateRounds, summaries),
				})
			}
		}
	}

	if discrepancies > 0 {
		result.Score = penalizedScore(discrepancies)
	}

	span.SetAttributes(
		attribute.Bool("rule.passed", result.Passed),
		attribute.Float64("rule.score", result.Score),
		attribute.Int("rule.issues_count", len(result.Issues)),
	)
	return result, nil
}

func roundsOf(rows []*domain.CandidateRound) []int {
	rounds := make([]int, len(rows))
	for i, row := range rows {
		rounds[i] = row.Round
	}
	return rounds
}

func distinctSorted(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// expectedRounds returns the sequence 1..max, or nil when max < 1.
func expectedRounds(max int) []int {
	if max < 1 {
		return nil
	}
	out := make([]int, max)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Validate verifies the rule is properly configured and ready to run.
func (r *RoundSequenceRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *RoundSequenceRule) UnmarshalParameters(params yaml.Node) error {
	var config RoundSequenceConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewRoundSequenceFromConfig creates a RoundSequenceRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewRoundSequenceFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultRoundSequenceConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewRoundSequenceRule(id, cfg)
}
