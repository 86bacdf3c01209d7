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

var _ ports.Rule = (*VoteConsistencyRule)(nil)

// VoteConsistencyRule checks that summed candidate votes never exceed the
// reported round total. Round totals include overvotes, undervotes, and
// exhausted ballots, so candidate sums running below the total are normal;
// sums running above it are structurally impossible and fail the rule.
//
// Large shortfalls are reported as advisory notes that cap the score
// without failing: they usually mean heavy ballot exhaustion, which is
// worth a look but not an error.
//
// The rule is stateless and safe for concurrent execution.
type VoteConsistencyRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config VoteConsistencyConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// VoteConsistencyConfig defines the configuration parameters for the
// VoteConsistencyRule.
type VoteConsistencyConfig struct {
	// SoftGapThreshold is the vote shortfall above which a round earns an
	// advisory note. Shortfalls at or below it are ignored entirely.
	SoftGapThreshold int `yaml:"soft_gap_threshold" json:"soft_gap_threshold" validate:"min=0"`
}

// DefaultVoteConsistencyConfig returns the standard configuration: note
// shortfalls above 100 votes.
func DefaultVoteConsistencyConfig() VoteConsistencyConfig {
	return VoteConsistencyConfig{SoftGapThreshold: 100}
}

// NewVoteConsistencyRule creates a VoteConsistencyRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewVoteConsistencyRule(name string, config VoteConsistencyConfig) (*VoteConsistencyRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &VoteConsistencyRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("vote-consistency-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *VoteConsistencyRule) Name() string { return r.name }

// Evaluate compares candidate vote sums against round totals for every
// contest and round present in the round-summary collection. Contests
// with no candidate rows at all are skipped; the identifier-consistency
// rule reports those.
func (r *VoteConsistencyRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "VoteConsistencyRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "vote_consistency"),
			attribute.String("rule.id", r.name),
			attribute.Int("config.soft_gap_threshold", r.config.SoftGapThreshold),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	voteSums := make(map[string]map[int]int)
	for _, row := range dataset.Candidates {
		if voteSums[row.ContestID] == nil {
			voteSums[row.ContestID] = make(map[int]int)
		}
		voteSums[row.ContestID][row.Round] += row.Votes
	}

	overages := 0
	softNotes := 0
	seen := make(map[string]map[int]bool)
	for _, summary := range dataset.Rounds {
		if seen[summary.ContestID] == nil {
			seen[summary.ContestID] = make(map[int]bool)
		}
		if seen[summary.ContestID][summary.Round] {
			continue
		}
		seen[summary.ContestID][summary.Round] = true

		rounds, ok := voteSums[summary.ContestID]
		if !ok {
			continue
		}
		// A summarized round with no candidate rows sums to zero and
		// falls through to the shortfall check.
		sum := rounds[summary.Round]

		switch {
		case sum > summary.TotalVotes:
			overages++
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: summary.ContestID,
				Message: fmt.Sprintf("round %d: candidates sum to %d, round total is %d (sum should not exceed round total)",
					summary.Round, sum, summary.TotalVotes),
			})
		case summary.TotalVotes-sum > r.config.SoftGapThreshold:
			softNotes++
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: summary.ContestID,
				Message: fmt.Sprintf("round %d: candidates sum to %d, round total is %d (difference of %d may include overvotes/undervotes/exhausted ballots)",
					summary.Round, sum, summary.TotalVotes, summary.TotalVotes-sum),
			})
		}
	}

	if overages > 0 {
		result.Score = penalizedScore(overages)
	} else if softNotes > 0 {
		result.Score = SoftNoteScore
	}

	span.SetAttributes(
		attribute.Bool("rule.passed", result.Passed),
		attribute.Float64("rule.score", result.Score),
		attribute.Int("rule.issues_count", len(result.Issues)),
	)
	return result, nil
}

// Validate verifies the rule is properly configured and ready to run.
func (r *VoteConsistencyRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *VoteConsistencyRule) UnmarshalParameters(params yaml.Node) error {
	var config VoteConsistencyConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewVoteConsistencyFromConfig creates a VoteConsistencyRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewVoteConsistencyFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	// Start with defaults, then overlay user config.
	cfg := DefaultVoteConsistencyConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewVoteConsistencyRule(id, cfg)
}
