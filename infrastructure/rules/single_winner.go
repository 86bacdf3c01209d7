package rules

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

var _ ports.Rule = (*SingleWinnerRule)(nil)

// SingleWinnerRule checks that each contest elects exactly the expected
// number of candidates in its final round. Zero winners means tabulation
// never resolved; more than expected usually means a tie the status
// deriver multi-labeled.
//
// The rule is stateless and safe for concurrent execution.
type SingleWinnerRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config SingleWinnerConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// SingleWinnerConfig defines the configuration parameters for the
// SingleWinnerRule.
type SingleWinnerConfig struct {
	// ExpectedWinners is the number of Elected candidates a contest's
	// final round must contain. Single-seat contests expect 1.
	ExpectedWinners int `yaml:"expected_winners" json:"expected_winners" validate:"min=1"`
}

// DefaultSingleWinnerConfig returns the standard single-seat
// configuration.
func DefaultSingleWinnerConfig() SingleWinnerConfig {
	return SingleWinnerConfig{ExpectedWinners: 1}
}

// NewSingleWinnerRule creates a SingleWinnerRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewSingleWinnerRule(name string, config SingleWinnerConfig) (*SingleWinnerRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &SingleWinnerRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("single-winner-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *SingleWinnerRule) Name() string { return r.name }

// Evaluate counts Elected candidates in each contest's final round.
func (r *SingleWinnerRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "SingleWinnerRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "single_winner"),
			attribute.String("rule.id", r.name),
			attribute.Int("config.expected_winners", r.config.ExpectedWinners),
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
		rows := byContest[contestID]

		finalRound := 0
		for _, row := range rows {
			if row.Round > finalRound {
				finalRound = row.Round
			}
		}

		var winners []string
		for _, row := range rows {
			if row.Round == finalRound && row.Status == domain.StatusElected {
				winners = append(winners, row.Name)
			}
		}

		switch {
		case len(winners) == 0:
			violations++
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: contestID,
				Message:   fmt.Sprintf("no winner identified in final round %d", finalRound),
			})
		case len(winners) != r.config.ExpectedWinners:
			violations++
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: contestID,
				Message: fmt.Sprintf("expected %d winner(s) in final round %d, found %d: %s",
					r.config.ExpectedWinners, finalRound, len(winners), strings.Join(winners, ", ")),
			})
		}
	}

	if violations > 0 {
		result.Score = penalizedScore(violations)
	}

	span.SetAttributes(
		attribute.Bool("rule.passed", result.Passed),
		attribute.Float64("rule.score", result.Score),
		attribute.Int("rule.issues_count", len(result.Issues)),
	)
	return result, nil
}

// Validate verifies the rule is properly configured and ready to run.
func (r *SingleWinnerRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *SingleWinnerRule) UnmarshalParameters(params yaml.Node) error {
	var config SingleWinnerConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewSingleWinnerFromConfig creates a SingleWinnerRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewSingleWinnerFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultSingleWinnerConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewSingleWinnerRule(id, cfg)
}
