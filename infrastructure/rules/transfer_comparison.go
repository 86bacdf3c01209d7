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

var _ ports.Rule = (*TransferComparisonRule)(nil)

// comparisonPenalty is subtracted per differing row, up to the configured
// row cap.
const comparisonPenalty = 2.0

// TransferComparisonRule cross-checks the transfers reported by the
// source against the deltas reconstructed from vote counts. The two are
// independent readings of the same quantity, so disagreement beyond a
// small tolerance means either the extraction misread the source or the
// source's own arithmetic is wrong.
//
// Rows without a reported transfer are skipped: sources frequently omit
// the column, and absence is not disagreement. Round 1 is skipped because
// its reconstructed delta is zero by definition.
//
// The rule is stateless and safe for concurrent execution.
type TransferComparisonRule struct {
	// name is the unique identifier for this rule instance.
	name string
	// config contains the validated configuration parameters.
	config TransferComparisonConfig
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// TransferComparisonConfig defines the configuration parameters for the
// TransferComparisonRule.
type TransferComparisonConfig struct {
	// Tolerance is the absolute difference, in votes, below which a
	// reported and reconstructed transfer are considered equal. Rounding
	// in source documents makes off-by-one disagreement meaningless.
	Tolerance int `yaml:"tolerance" json:"tolerance" validate:"min=0"`

	// MaxPenalizedRows caps how many differing rows count against the
	// score, keeping one systematically broken contest from zeroing the
	// whole rule.
	MaxPenalizedRows int `yaml:"max_penalized_rows" json:"max_penalized_rows" validate:"min=1"`
}

// DefaultTransferComparisonConfig returns the standard configuration:
// one vote of tolerance, twenty penalized rows at most.
func DefaultTransferComparisonConfig() TransferComparisonConfig {
	return TransferComparisonConfig{
		Tolerance:        1,
		MaxPenalizedRows: 20,
	}
}

// NewTransferComparisonRule creates a TransferComparisonRule with the
// given configuration. Returns ErrEmptyRuleName if name is empty, or a
// configuration validation error if the config fails validation.
func NewTransferComparisonRule(name string, config TransferComparisonConfig) (*TransferComparisonRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &TransferComparisonRule{
		name:   name,
		config: config,
		tracer: otel.Tracer("transfer-comparison-rule"),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *TransferComparisonRule) Name() string { return r.name }

// Evaluate compares reported and reconstructed transfers on every row
// that carries both.
func (r *TransferComparisonRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	_, span := r.tracer.Start(ctx, "TransferComparisonRule.Evaluate",
		trace.WithAttributes(
			attribute.String("rule.type", "transfer_comparison"),
			attribute.String("rule.id", r.name),
			attribute.Int("config.tolerance", r.config.Tolerance),
			attribute.Int("config.max_penalized_rows", r.config.MaxPenalizedRows),
		),
	)
	defer span.End()

	if dataset == nil {
		span.RecordError(domain.ErrNilDataset)
		return domain.RuleResult{}, domain.ErrNilDataset
	}

	result := domain.RuleResult{RuleName: r.name, Passed: true, Score: PerfectScore}

	differing := 0
	for _, row := range dataset.Candidates {
		if row.TransferOriginal == nil || row.Round <= 1 {
			continue
		}

		diff := row.TransferCalc - *row.TransferOriginal
		if diff < 0 {
			diff = -diff
		}
		if diff <= r.config.Tolerance {
			continue
		}

		differing++
		result.Passed = false
		result.Issues = append(result.Issues, domain.Issue{
			ContestID: row.ContestID,
			Message: fmt.Sprintf("candidate %s round %d: reported transfer %d, computed %d (diff %d)",
				row.CandidateID, row.Round, *row.TransferOriginal, row.TransferCalc, row.TransferCalc-*row.TransferOriginal),
		})
	}

	if differing > 0 {
		penalized := differing
		if penalized > r.config.MaxPenalizedRows {
			penalized = r.config.MaxPenalizedRows
		}
		score := PerfectScore - float64(penalized)*comparisonPenalty
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
func (r *TransferComparisonRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration into the rule's
// config, validating before replacing the current configuration.
func (r *TransferComparisonRule) UnmarshalParameters(params yaml.Node) error {
	var config TransferComparisonConfig

	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	r.config = config
	return nil
}

// NewTransferComparisonFromConfig creates a TransferComparisonRule from a
// configuration map. This is the boundary adapter used by the registry.
func NewTransferComparisonFromConfig(id string, config map[string]any) (ports.Rule, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultTransferComparisonConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewTransferComparisonRule(id, cfg)
}
