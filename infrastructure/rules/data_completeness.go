package rules

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

var _ ports.Rule = (*DataCompletenessRule)(nil)

// DataCompletenessRule checks that every record carries the fields the
// rest of the engine keys on: identifiers, contest metadata, and positive
// round ordinals. It also verifies that transfer deltas have actually
// been computed, since several downstream rules silently degrade when
// they run against unreconstructed data.
//
// Each finding is dataset-level: one issue per collection and field with
// the count of offending rows, not one issue per row.
//
// The rule is stateless and safe for concurrent execution.
type DataCompletenessRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config DataCompletenessConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// DataCompletenessConfig defines the configuration parameters for the
// DataCompletenessRule.
type DataCompletenessConfig struct {
	// RequireTransferCalc verifies that reconstructed transfer deltas
	// match the vote movement between consecutive rounds. Disable when
	// validating raw extracts before grid reconstruction.
	RequireTransferCalc bool `yaml:"require_transfer_calc" json:"require_transfer_calc"`
}

// DefaultDataCompletenessConfig returns the standard configuration with
// the transfer delta check enabled.
func DefaultDataCompletenessConfig() DataCompletenessConfig {
	return DataCompletenessConfig{RequireTransferCalc: true}
}

// NewDataCompletenessRule creates a DataCompletenessRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewDataCompletenessRule(name string, config DataCompletenessConfig) (*DataCompletenessRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &DataCompletenessRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("data-completeness-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *DataCompletenessRule) Name() string { return r.name }

// Evaluate counts missing required values per collection and field.
func (r *DataCompletenessRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "DataCompletenessRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "data_completeness"),
			attribute.String("rule.id", r.name),
			attribute.Bool("config.require_transfer_calc", r.config.RequireTransferCalc),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	type fieldCheck struct {
		field   string
		missing int
	}

	contestChecks := []fieldCheck{{field: "contest_id"}, {field: "year"}, {field: "state"}, {field: "office"}, {field: "jurisdiction"}, {field: "election_type"}}
	for _, contest := range dataset.Contests {
		if contest.ID == "" {
			contestChecks[0].missing++
		}
		if contest.Year == 0 {
			contestChecks[1].missing++
		}
		if contest.State == "" {
			contestChecks[2].missing++
		}
		if contest.Office == "" {
			contestChecks[3].missing++
		}
		if contest.Jurisdiction == "" {
			contestChecks[4].missing++
		}
		if contest.ElectionType == "" {
			contestChecks[5].missing++
		}
	}

	candidateChecks := []fieldCheck{{field: "contest_id"}, {field: "candidate_id"}, {field: "round"}}
	for _, row := range dataset.Candidates {
		if row.ContestID == "" {
			candidateChecks[0].missing++
		}
		if row.CandidateID == "" {
			candidateChecks[1].missing++
		}
		if row.Round <= 0 {
			candidateChecks[2].missing++
		}
	}

	roundChecks := []fieldCheck{{field: "contest_id"}, {field: "round"}}
	for _, row := range dataset.Rounds {
		if row.ContestID == "" {
			roundChecks[0].missing++
		}
		if row.Round <= 0 {
			roundChecks[1].missing++
		}
	}

	appendChecks := func(collection string, checks []fieldCheck) {
		for _, check := range checks {
			if check.missing == 0 {
				continue
			}
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				Message: fmt.Sprintf("%d missing values in %s.%s", check.missing, collection, check.field),
			})
		}
	}
	appendChecks("contests", contestChecks)
	appendChecks("candidates", candidateChecks)
	appendChecks("rounds", roundChecks)

	if r.config.RequireTransferCalc {
		if stale := r.staleTransferRows(dataset); stale > 0 {
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				Message: fmt.Sprintf("transfer deltas not computed for %d candidate rows", stale),
			})
		}
	}

	if len(result.Issues) > 0 {
		result.Score = penalizedScore(len(result.Issues))
	}

	span.SetAttributes(
		attribute.Bool("rule.passed", result.Passed),
		attribute.Float64("rule.score", result.Score),
		attribute.Int("rule.issues_count", len(result.Issues)),
	)
	return result, nil
}

// staleTransferRows counts rows whose TransferCalc disagrees with the
// vote movement from the previous round. A dataset that skipped grid
// reconstruction reports every moving row here.
func (r *DataCompletenessRule) staleTransferRows(dataset *domain.Dataset) int {
	type cell struct {
		contestID   string
		candidateID string
		round       int
	}
	votes := make(map[cell]int, len(dataset.Candidates))
	for _, row := range dataset.Candidates {
		votes[cell{row.ContestID, row.CandidateID, row.Round}] = row.Votes
	}

	stale := 0
	for _, row := range dataset.Candidates {
		if row.Round <= 1 {
			continue
		}
		prev, ok := votes[cell{row.ContestID, row.CandidateID, row.Round - 1}]
		if !ok {
			continue
		}
		if row.TransferCalc != row.Votes-prev {
			stale++
		}
	}
	return stale
}

// Validate verifies the rule is properly configured and ready to run.
func (r *DataCompletenessRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *DataCompletenessRule) UnmarshalParameters(params yaml.Node) error {
	var config DataCompletenessConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewDataCompletenessFromConfig creates a DataCompletenessRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewDataCompletenessFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultDataCompletenessConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewDataCompletenessRule(id, cfg)
}
