// Package rules provides the validation rules that implement the
// ports.Rule interface for the rcvkit validation engine.
//
// Every rule is a pure function of the normalized dataset: rules never
// mutate records, never depend on each other's output, and never fail on
// data content. A rule that finds problems reports them through its
// RuleResult; an error return means the rule could not run at all.
package rules

import (
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Score constants shared across rules. Hard incidents carry the standard
// penalty; soft notes cap the score without failing the rule.
const (
	// PerfectScore is the score of a rule with no findings.
	PerfectScore = 100.0

	// IncidentPenalty is subtracted per hard incident.
	IncidentPenalty = 10.0

	// SoftNoteScore caps a rule's score when it has only advisory notes.
	SoftNoteScore = 95.0
)

// ErrEmptyRuleName is returned when attempting to create a rule with an
// empty name.
var ErrEmptyRuleName = errors.New("rule name cannot be empty")

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// penalizedScore folds n hard incidents into a score, never below zero.
func penalizedScore(incidents int) float64 {
	score := PerfectScore - float64(incidents)*IncidentPenalty
	if score < 0 {
		return 0
	}
	return score
}

// sortedKeys returns the keys of m in ascending order, giving rules
// deterministic issue ordering across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
