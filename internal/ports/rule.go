// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// Rule represents one independent validation check over a normalized
// dataset. Each Rule inspects the dataset and grades it, reporting
// findings as issues rather than errors.
// Rules must be stateless and must not modify the dataset.
type Rule interface {
	// Name returns a unique identifier for this rule.
	// The name is used for logging, report sections, and configuration.
	Name() string

	// Evaluate runs the check against the dataset and returns a graded
	// result. Data-quality findings never produce an error; they appear
	// as issues on the result with a reduced score. An error is returned
	// only when evaluation itself cannot proceed (nil dataset, canceled
	// context).
	//
	// The context parameter allows for cancellation and deadline
	// propagation. Rules should respect context cancellation and return
	// promptly.
	Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error)

	// Validate checks if the rule is properly configured and ready for
	// evaluation. It is typically called during pipeline construction.
	// Return nil if validation passes, or an error describing what is
	// invalid.
	Validate() error
}

// RuleFactory creates a rule instance from an identifier and a parameter
// map, typically decoded from a YAML configuration file.
type RuleFactory func(id string, params map[string]any) (Rule, error)

// RuleRegistry manages the catalog of available rule types and creates
// configured instances on demand.
type RuleRegistry interface {
	// CreateRule instantiates a rule of the given type with the provided
	// identifier and parameters. It returns an error for unknown types
	// or invalid parameters.
	CreateRule(ruleType, id string, params map[string]any) (Rule, error)

	// RegisterRuleFactory registers a factory for a rule type, allowing
	// the catalog to be extended at runtime.
	RegisterRuleFactory(ruleType string, factory RuleFactory) error

	// SupportedTypes returns the registered rule type names.
	SupportedTypes() []string
}
