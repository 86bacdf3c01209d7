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

var _ ports.Rule = (*TransferBalanceRule)(nil)

// TransferBalanceRule checks vote conservation between rounds: the
// transfer deltas of a round must sum to at most zero. Negative sums are
// normal, since exhausted ballots leave the pool without landing on any
// candidate. A positive sum means votes appeared from nowhere and fails
// the rule.
//
// Very negative sums earn an advisory note that caps the score without
// failing.
//
// The rule is stateless and safe for concurrent execution.
type TransferBalanceRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config TransferBalanceConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// TransferBalanceConfig defines the configuration parameters for the
// TransferBalanceRule.
type TransferBalanceConfig struct {
	// SoftNegativeThreshold is the magnitude beyond which a negative
	// transfer sum earns an advisory note. Smaller magnitudes are
	// considered ordinary ballot exhaustion.
	SoftNegativeThreshold int `yaml:"soft_negative_threshold" json:"soft_negative_threshold" validate:"min=0"`
}

// DefaultTransferBalanceConfig returns the standard configuration: note
// transfer sums below -100.
func DefaultTransferBalanceConfig() TransferBalanceConfig {
	return TransferBalanceConfig{SoftNegativeThreshold: 100}
}

// NewTransferBalanceRule creates a TransferBalanceRule with the given
// configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewTransferBalanceRule(name string, config TransferBalanceConfig) (*TransferBalanceRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &TransferBalanceRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("transfer-balance-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *TransferBalanceRule) Name() string { return r.name }

// Evaluate sums transfer deltas per contest and round, skipping round 1
// where transfers are zero by definition.
func (r *TransferBalanceRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "TransferBalanceRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "transfer_balance"),
			attribute.String("rule.id", r.name),
			attribute.Int("config.soft_negative_threshold", r.config.SoftNegativeThreshold),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	type contestRound struct {
		contestID string
		round     int
	}
	sums := make(map[contestRound]int)
	keys := make([]contestRound, 0)
	for _, row := range dataset.Candidates {
		if row.Round <= 1 {
			continue
		}
		key := contestRound{row.ContestID, row.Round}
		if _, ok := sums[key]; !ok {
			keys = append(keys, key)
		}
		sums[key] += row.TransferCalc
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].contestID != keys[j].contestID {
			return keys[i].contestID < keys[j].contestID
		}
		return keys[i].round < keys[j].round
	})

	imbalances := 0
	softNotes := 0
	for _, key := range keys {
		sum := sums[key]
		switch {
		case sum > 0:
			imbalances++
			result.Passed = false
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: key.contestID,
				Message: fmt.Sprintf("round %d: transfer sum = %d (should be <= 0, indicates votes appearing from nowhere)",
					key.round, sum),
			})
		case -sum > r.config.SoftNegativeThreshold:
			softNotes++
			result.Issues = append(result.Issues, domain.Issue{
				ContestID: key.contestID,
				Message: fmt.Sprintf("round %d: large negative transfer sum = %d (may include many exhausted ballots/overvotes/undervotes)",
					key.round, sum),
			})
		}
	}

	if imbalances > 0 {
		result.Score = penalizedScore(imbalances)
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
func (r *TransferBalanceRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *TransferBalanceRule) UnmarshalParameters(params yaml.Node) error {
	var config TransferBalanceConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewTransferBalanceFromConfig creates a TransferBalanceRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewTransferBalanceFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultTransferBalanceConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewTransferBalanceRule(id, cfg)
}
