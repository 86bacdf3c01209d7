package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// testMockRule implements ports.Rule for testing custom factory registration.
type testMockRule struct {
	name string
}

func (m *testMockRule) Name() string { return m.name }

func (m *testMockRule) Evaluate(ctx context.Context, dataset *domain.Dataset) (domain.RuleResult, error) {
	return domain.RuleResult{RuleName: m.name, Passed: true, Score: 100}, nil
}

func (m *testMockRule) Validate() error { return nil }

func TestNewDefaultRuleRegistry(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.factories)

	// Verify built-in factories are registered.
	supportedTypes := registry.SupportedTypes()
	assert.Contains(t, supportedTypes, "vote_consistency")
	assert.Contains(t, supportedTypes, "transfer_balance")
	assert.Contains(t, supportedTypes, "transfer_comparison")
	assert.Contains(t, supportedTypes, "single_winner")
	assert.Contains(t, supportedTypes, "vote_monotonicity")
	assert.Contains(t, supportedTypes, "id_consistency")
	assert.Contains(t, supportedTypes, "round_sequence")
	assert.Contains(t, supportedTypes, "data_completeness")
	assert.Len(t, supportedTypes, 8)
}

func TestCreateRule_Success(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	tests := []struct {
		name     string
		ruleType string
		ruleID   string
		params   map[string]any
	}{
		{
			name:     "creates vote consistency rule",
			ruleType: "vote_consistency",
			ruleID:   "test_consistency",
			params: map[string]any{
				"soft_gap_threshold": 250,
			},
		},
		{
			name:     "creates transfer comparison rule",
			ruleType: "transfer_comparison",
			ruleID:   "test_comparison",
			params: map[string]any{
				"tolerance":          5,
				"max_penalized_rows": 10,
			},
		},
		{
			name:     "creates rule with nil params",
			ruleType: "round_sequence",
			ruleID:   "test_sequence",
			params:   nil,
		},
		{
			name:     "creates rule with empty params",
			ruleType: "data_completeness",
			ruleID:   "test_completeness",
			params:   map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := registry.CreateRule(tt.ruleType, tt.ruleID, tt.params)
			require.NoError(t, err)
			assert.NotNil(t, rule)
			assert.Equal(t, tt.ruleID, rule.Name())
		})
	}
}

func TestCreateRule_Errors(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	tests := []struct {
		name          string
		ruleType      string
		ruleID        string
		params        map[string]any
		expectedError string
	}{
		{
			name:          "fails with unsupported rule type",
			ruleType:      "unsupported",
			ruleID:        "test_id",
			params:        map[string]any{},
			expectedError: "unknown rule type",
		},
		{
			name:          "fails with empty rule ID",
			ruleType:      "vote_consistency",
			ruleID:        "",
			params:        map[string]any{},
			expectedError: "rule ID cannot be empty",
		},
		{
			name:     "fails with invalid config value",
			ruleType: "vote_consistency",
			ruleID:   "bad_consistency",
			params: map[string]any{
				"soft_gap_threshold": -5,
			},
			expectedError: "failed to create rule",
		},
		{
			name:     "fails with type mismatch",
			ruleType: "transfer_comparison",
			ruleID:   "bad_comparison",
			params: map[string]any{
				"tolerance": "not-a-number",
			},
			expectedError: "failed to create rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := registry.CreateRule(tt.ruleType, tt.ruleID, tt.params)
			require.Error(t, err)
			assert.Nil(t, rule)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}

	t.Run("unknown type matches sentinel error", func(t *testing.T) {
		_, err := registry.CreateRule("nope", "id", nil)
		require.ErrorIs(t, err, ports.ErrUnknownRuleType)
	})
}

func TestRegisterRuleFactory(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	t.Run("registers new factory successfully", func(t *testing.T) {
		customFactory := func(id string, params map[string]any) (ports.Rule, error) {
			return &testMockRule{name: id}, nil
		}

		err := registry.RegisterRuleFactory("custom", customFactory)
		require.NoError(t, err)

		supportedTypes := registry.SupportedTypes()
		assert.Contains(t, supportedTypes, "custom")

		rule, err := registry.CreateRule("custom", "test_custom", nil)
		require.NoError(t, err)
		assert.Equal(t, "test_custom", rule.Name())
	})

	t.Run("overrides existing factory", func(t *testing.T) {
		factory1 := func(id string, params map[string]any) (ports.Rule, error) {
			return &testMockRule{name: "factory1_" + id}, nil
		}
		err := registry.RegisterRuleFactory("override_test", factory1)
		require.NoError(t, err)

		rule1, err := registry.CreateRule("override_test", "rule", nil)
		require.NoError(t, err)
		assert.Equal(t, "factory1_rule", rule1.Name())

		factory2 := func(id string, params map[string]any) (ports.Rule, error) {
			return &testMockRule{name: "factory2_" + id}, nil
		}
		err = registry.RegisterRuleFactory("override_test", factory2)
		require.NoError(t, err)

		rule2, err := registry.CreateRule("override_test", "rule", nil)
		require.NoError(t, err)
		assert.Equal(t, "factory2_rule", rule2.Name())
	})

	t.Run("fails with empty rule type", func(t *testing.T) {
		customFactory := func(id string, params map[string]any) (ports.Rule, error) {
			return &testMockRule{name: id}, nil
		}

		err := registry.RegisterRuleFactory("", customFactory)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rule type cannot be empty")
	})

	t.Run("fails with nil factory", func(t *testing.T) {
		err := registry.RegisterRuleFactory("nil_factory", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "factory function cannot be nil")
	})
}

func TestSupportedTypes(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	t.Run("returns built-in types sorted", func(t *testing.T) {
		types := registry.SupportedTypes()

		expected := []string{
			"data_completeness",
			"id_consistency",
			"round_sequence",
			"single_winner",
			"transfer_balance",
			"transfer_comparison",
			"vote_consistency",
			"vote_monotonicity",
		}
		assert.Equal(t, expected, types)
	})

	t.Run("includes custom registered types", func(t *testing.T) {
		customFactory := func(id string, params map[string]any) (ports.Rule, error) {
			return &testMockRule{name: id}, nil
		}
		err := registry.RegisterRuleFactory("custom_type", customFactory)
		require.NoError(t, err)

		types := registry.SupportedTypes()
		assert.Contains(t, types, "custom_type")
		assert.Len(t, types, 9)
	})
}

func TestThreadSafety_CreateRule(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	t.Run("concurrent CreateRule calls", func(t *testing.T) {
		const numGoroutines = 10
		var wg sync.WaitGroup
		wg.Add(numGoroutines)

		errs := make(chan error, numGoroutines)

		for i := 0; i < numGoroutines; i++ {
			go func(id int) {
				defer wg.Done()

				rule, err := registry.CreateRule("vote_consistency", fmt.Sprintf("rule_%d", id), nil)
				if err != nil {
					errs <- err
					return
				}
				if rule == nil {
					errs <- fmt.Errorf("rule_%d: nil rule", id)
				}
			}(i)
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			t.Errorf("concurrent CreateRule failed: %v", err)
		}
	})

	t.Run("concurrent registration and creation", func(t *testing.T) {
		const numGoroutines = 10
		var wg sync.WaitGroup
		wg.Add(numGoroutines * 2)

		for i := 0; i < numGoroutines; i++ {
			go func(id int) {
				defer wg.Done()
				factory := func(ruleID string, params map[string]any) (ports.Rule, error) {
					return &testMockRule{name: ruleID}, nil
				}
				_ = registry.RegisterRuleFactory(fmt.Sprintf("type_%d", id), factory)
			}(i)

			go func(id int) {
				defer wg.Done()
				_, _ = registry.CreateRule("round_sequence", fmt.Sprintf("seq_%d", id), nil)
			}(i)
		}

		wg.Wait()
	})
}
