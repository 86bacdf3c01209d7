package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jordanholbrook/rcvkit/infrastructure/rules"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.RuleRegistry = (*DefaultRuleRegistry)(nil)

// DefaultRuleRegistry implements the RuleRegistry interface providing a
// factory for creating validation rules based on type and configuration.
// It supports dynamic registration of rule factories so deployments can
// extend the built-in catalog at runtime.
type DefaultRuleRegistry struct {
	// factories maps rule type strings to their factory functions.
	factories map[string]ports.RuleFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultRuleRegistry creates a rule registry with the standard rule
// catalog pre-registered: vote_consistency, transfer_balance,
// transfer_comparison, single_winner, vote_monotonicity, id_consistency,
// round_sequence, and data_completeness.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	registry := &DefaultRuleRegistry{
		factories: make(map[string]ports.RuleFactory),
	}
	registry.registerBuiltinFactories()
	return registry
}

// registerBuiltinFactories registers the standard rule catalog.
func (r *DefaultRuleRegistry) registerBuiltinFactories() {
	r.factories["vote_consistency"] = rules.NewVoteConsistencyFromConfig
	r.factories["transfer_balance"] = rules.NewTransferBalanceFromConfig
	r.factories["transfer_comparison"] = rules.NewTransferComparisonFromConfig
	r.factories["single_winner"] = rules.NewSingleWinnerFromConfig
	r.factories["vote_monotonicity"] = rules.NewVoteMonotonicityFromConfig
	r.factories["id_consistency"] = rules.NewIDConsistencyFromConfig
	r.factories["round_sequence"] = rules.NewRoundSequenceFromConfig
	r.factories["data_completeness"] = rules.NewDataCompletenessFromConfig
}

// CreateRule creates a new rule instance based on the provided type,
// identifier, and parameter map. It looks up the appropriate factory
// function and delegates rule creation.
func (r *DefaultRuleRegistry) CreateRule(
	ruleType string,
	id string,
	params map[string]any,
) (ports.Rule, error) {
	r.mu.RLock()
	factory, exists := r.factories[ruleType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownRuleType, ruleType)
	}

	if id == "" {
		return nil, fmt.Errorf("rule ID cannot be empty")
	}

	if params == nil {
		params = make(map[string]any)
	}

	rule, err := factory(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule %s of type %s: %w", id, ruleType, err)
	}

	return rule, nil
}

// RegisterRuleFactory registers a new factory function for a specific
// rule type, replacing any prior registration under that type.
func (r *DefaultRuleRegistry) RegisterRuleFactory(
	ruleType string,
	factory ports.RuleFactory,
) error {
	if ruleType == "" {
		return fmt.Errorf("rule type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[ruleType] = factory
	return nil
}

// SupportedTypes returns the registered rule type names in sorted order.
// This is useful for validation, documentation, and introspection.
func (r *DefaultRuleRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for ruleType := range r.factories {
		types = append(types, ruleType)
	}
	sort.Strings(types)

	return types
}
