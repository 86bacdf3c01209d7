package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors returned by pipeline operations.
var (
	// ErrNilDataset indicates that an operation received a nil Dataset.
	ErrNilDataset = errors.New("dataset is nil")

	// ErrNoRules indicates that a validation run was configured without
	// any rules to evaluate.
	ErrNoRules = errors.New("no validation rules configured")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// SchemaError reports input that cannot be loaded because required columns
// are absent. This is the one fail-fast condition in the pipeline: malformed
// values degrade gracefully, missing columns abort the run.
type SchemaError struct {
	// Collection names the offending table: "elections", "candidates", or
	// "rounds".
	Collection string

	// Missing lists the required column names absent from the header.
	Missing []string
}

// Error implements the error interface for SchemaError.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s",
		e.Collection, strings.Join(e.Missing, ", "))
}

// NewSchemaError creates a SchemaError for the given collection and
// missing column names.
func NewSchemaError(collection string, missing []string) *SchemaError {
	return &SchemaError{Collection: collection, Missing: missing}
}

// RuleError represents a failure inside a validation rule that prevented
// evaluation. Data-quality findings are never RuleErrors; those are Issues
// on the rule's result.
type RuleError struct {
	// RuleName identifies the rule that failed to evaluate.
	RuleName string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for RuleError.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleName, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *RuleError) Unwrap() error { return e.Err }

// NewRuleError wraps an evaluation failure with the rule that raised it.
func NewRuleError(ruleName string, err error) *RuleError {
	return &RuleError{RuleName: ruleName, Err: err}
}
