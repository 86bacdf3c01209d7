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

var _ ports.Rule = (*IDConsistencyRule)(nil)

// IDConsistencyRule checks referential integrity between the three record
// collections: every contest must appear in the candidate and round
// collections, and neither of those may reference a contest that does not
// exist.
//
// The score counts discrepancy classes rather than individual contests,
// so one missing contest and fifty missing contests in the same direction
// cost the same: either way that join direction is broken.
//
// The rule is stateless and safe for concurrent execution.
type IDConsistencyRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config IDConsistencyConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// IDConsistencyConfig defines the configuration parameters for the
// IDConsistencyRule.
type IDConsistencyConfig struct {
	// CheckExtras also reports contest ids that appear in candidate or
	// round rows without a contest record. Disable when validating
	// partial extracts where the contest collection is known-incomplete.
	CheckExtras bool `yaml:"check_extras" json:"check_extras"`
}

// DefaultIDConsistencyConfig returns the standard configuration with
// extra-id checking enabled.
func DefaultIDConsistencyConfig() IDConsistencyConfig {
	return IDConsistencyConfig{CheckExtras: true}
}

// NewIDConsistencyRule creates an IDConsistencyRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewIDConsistencyRule(name string, config IDConsistencyConfig) (*IDConsistencyRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &IDConsistencyRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("id-consistency-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *IDConsistencyRule) Name() string { return r.name }

// Evaluate computes the set differences between contest ids in the three
// collections. Issues are emitted per offending contest so each carries
// a contest id, but scoring counts broken join directions.
func (r *IDConsistencyRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "IDConsistencyRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "id_consistency"),
			attribute.String("rule.id", r.name),
			attribute.Bool("config.check_extras", r.config.CheckExtras),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	contestIDs := make(map[string]bool, len(dataset.Contests))
	for _, contest := range dataset.Contests {
		contestIDs[contest.ID] = true
	}
	candidateIDs := make(map[string]bool)
	for _, row := range dataset.Candidates {
		candidateIDs[row.ContestID] = true
	}
	roundIDs := make(map[string]bool)
	for _, row := range dataset.Rounds {
		roundIDs[row.ContestID] = true
	}

	classes := 0
	report := func(ids []string, message string) {
		if len(ids) == 0 {
			return
		}
		classes++
		result.Passed = false
		for _, id := range ids {
			result.Issues = append(result.Issues, domain.Issue{ContestID: id, Message: message})
		}
	}

	report(difference(contestIDs, candidateIDs), "contest missing from candidate data")
	report(difference(contestIDs, roundIDs), "contest missing from round data")
	if r.config.CheckExtras {
		report(difference(candidateIDs, contestIDs), "candidate rows reference an unknown contest")
		report(difference(roundIDs, contestIDs), "round rows reference an unknown contest")
	}

	if classes > 0 {
		result.Score = penalizedScore(classes)
	}

	span.SetAttributes(
		attribute.Bool("rule.passed", result.Passed),
		attribute.Float64("rule.score", result.Score),
		attribute.Int("rule.issues_count", len(result.Issues)),
	)
	return result, nil
}

// difference returns the ids present in a but absent from b, sorted.
func difference(a, b map[string]bool) []string {
	var out []string
	for id := range a {
		if !b[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Validate verifies the rule is properly configured and ready to run.
func (r *IDConsistencyRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *IDConsistencyRule) UnmarshalParameters(params yaml.Node) error {
	var config IDConsistencyConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewIDConsistencyFromConfig creates an IDConsistencyRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewIDConsistencyFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultIDConsistencyConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewIDConsistencyRule(id, cfg)
}
