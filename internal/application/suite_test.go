package application

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

func newTestSuiteLoader(t *testing.T) *SuiteLoader {
	t.Helper()
	loader, err := NewSuiteLoader(NewDefaultRuleRegistry())
	require.NoError(t, err)
	return loader
}

func TestSuiteLoader_LoadFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
		verify  func(t *testing.T, suite *Suite)
	}{
		{
			name: "loads suite with parameters",
			yaml: `
version: "1.0.0"
metadata:
  name: "certification-checks"
  description: "Checks applied before publishing results"
rules:
  - id: consistency
    type: vote_consistency
    parameters:
      soft_gap_threshold: 250
  - id: winner_check
    type: single_winner
`,
			verify: func(t *testing.T, suite *Suite) {
				assert.Equal(t, "certification-checks", suite.Name)
				require.Len(t, suite.Rules, 2)
				assert.Equal(t, "consistency", suite.Rules[0].Name())
				assert.Equal(t, "winner_check", suite.Rules[1].Name())
				assert.Nil(t, suite.Weights)
			},
		},
		{
			name: "loads suite without parameters",
			yaml: `
version: "2.1.0"
metadata:
  name: "minimal"
rules:
  - id: sequence
    type: round_sequence
`,
			verify: func(t *testing.T, suite *Suite) {
				require.Len(t, suite.Rules, 1)
				assert.Equal(t, "sequence", suite.Rules[0].Name())
			},
		},
		{
			name: "loads scoring weight overrides",
			yaml: `
version: "1.0.0"
metadata:
  name: "weighted"
rules:
  - id: balance
    type: transfer_balance
scoring:
  weights:
    cands_gt_round_total: 3
    transfer_diff_small: 0
    locally_defined_flag: 2
`,
			verify: func(t *testing.T, suite *Suite) {
				expected := domain.TierWeights{
					domain.FlagCandsGTRoundTotal: 3,
					domain.FlagTransferDiffSmall: 0,
					"locally_defined_flag":       2,
				}
				assert.Equal(t, expected, suite.Weights)
			},
		},
		{
			name: "rejects unknown top-level field",
			yaml: `
version: "1.0.0"
metadata:
  name: "typo"
rulez:
  - id: consistency
    type: vote_consistency
rules:
  - id: consistency
    type: vote_consistency
`,
			wantErr: true,
			errMsg:  "failed to parse YAML",
		},
		{
			name: "rejects non-semver version",
			yaml: `
version: "one"
metadata:
  name: "bad-version"
rules:
  - id: consistency
    type: vote_consistency
`,
			wantErr: true,
			errMsg:  "struct validation failed",
		},
		{
			name: "rejects missing metadata name",
			yaml: `
version: "1.0.0"
metadata:
  description: "anonymous"
rules:
  - id: consistency
    type: vote_consistency
`,
			wantErr: true,
			errMsg:  "struct validation failed",
		},
		{
			name: "rejects empty rule list",
			yaml: `
version: "1.0.0"
metadata:
  name: "hollow"
rules: []
`,
			wantErr: true,
			errMsg:  "struct validation failed",
		},
		{
			name: "rejects malformed rule identifier",
			yaml: `
version: "1.0.0"
metadata:
  name: "bad-id"
rules:
  - id: "Vote Consistency!"
    type: vote_consistency
`,
			wantErr: true,
			errMsg:  "struct validation failed",
		},
		{
			name: "rejects duplicate rule identifiers",
			yaml: `
version: "1.0.0"
metadata:
  name: "dupes"
rules:
  - id: consistency
    type: vote_consistency
  - id: consistency
    type: transfer_balance
`,
			wantErr: true,
			errMsg:  `duplicate rule ID "consistency"`,
		},
		{
			name: "rejects unknown rule type",
			yaml: `
version: "1.0.0"
metadata:
  name: "unknown-type"
rules:
  - id: mystery
    type: ballot_telepathy
`,
			wantErr: true,
			errMsg:  "unknown rule type",
		},
		{
			name: "rejects parameters the rule constructor refuses",
			yaml: `
version: "1.0.0"
metadata:
  name: "bad-params"
rules:
  - id: consistency
    type: vote_consistency
    parameters:
      soft_gap_threshold: -5
`,
			wantErr: true,
			errMsg:  "failed to build suite",
		},
		{
			name: "rejects non-mapping parameters",
			yaml: `
version: "1.0.0"
metadata:
  name: "list-params"
rules:
  - id: consistency
    type: vote_consistency
    parameters:
      - 1
      - 2
`,
			wantErr: true,
			errMsg:  "failed to decode parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newTestSuiteLoader(t)

			suite, err := loader.LoadFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, suite)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, suite)
			if tt.verify != nil {
				tt.verify(t, suite)
			}
		})
	}
}

func TestSuiteLoader_UnknownTypeMatchesSentinel(t *testing.T) {
	loader := newTestSuiteLoader(t)

	_, err := loader.LoadFromReader(strings.NewReader(`
version: "1.0.0"
metadata:
  name: "unknown-type"
rules:
  - id: mystery
    type: ballot_telepathy
`))
	require.ErrorIs(t, err, ports.ErrUnknownRuleType)
}

func TestSuiteLoader_LoadFromFile(t *testing.T) {
	t.Run("loads suite from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "suite.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
version: "1.0.0"
metadata:
  name: "from-disk"
rules:
  - id: completeness
    type: data_completeness
`), 0o644))

		loader := newTestSuiteLoader(t)
		suite, err := loader.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "from-disk", suite.Name)
		require.Len(t, suite.Rules, 1)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		loader := newTestSuiteLoader(t)

		suite, err := loader.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Nil(t, suite)
		assert.Contains(t, err.Error(), "failed to read file")
	})
}

func TestSuiteLoader_Caching(t *testing.T) {
	suiteYAML := `
version: "1.0.0"
metadata:
  name: "cache-test"
rules:
  - id: sequence
    type: round_sequence
`
	// Same semantics, different formatting and key order. The cache keys
	// on the parsed configuration, not the raw bytes.
	reorderedYAML := `
metadata:
  name: cache-test
version: 1.0.0
rules:
  - type: round_sequence
    id: sequence
`

	loader := newTestSuiteLoader(t)

	suite1, err := loader.LoadFromReader(strings.NewReader(suiteYAML))
	require.NoError(t, err)

	suite2, err := loader.LoadFromReader(strings.NewReader(suiteYAML))
	require.NoError(t, err)
	assert.Same(t, suite1, suite2, "identical input should hit the cache")

	suite3, err := loader.LoadFromReader(strings.NewReader(reorderedYAML))
	require.NoError(t, err)
	assert.Same(t, suite1, suite3, "reordered input should hit the cache")

	suite4, err := loader.LoadFromReader(strings.NewReader(strings.Replace(suiteYAML, "sequence", "ordering", 1)))
	require.NoError(t, err)
	assert.NotSame(t, suite1, suite4, "different rule ID should compile a new suite")

	loader.ClearCache()
	suite5, err := loader.LoadFromReader(strings.NewReader(suiteYAML))
	require.NoError(t, err)
	assert.NotSame(t, suite1, suite5, "cleared cache should compile a new suite")
}

func TestSuiteLoader_ConcurrentLoads(t *testing.T) {
	suiteYAML := `
version: "1.0.0"
metadata:
  name: "concurrent"
rules:
  - id: consistency
    type: vote_consistency
`
	loader := newTestSuiteLoader(t)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	suites := make([]*Suite, numGoroutines)
	errs := make([]error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			suites[idx], errs[idx] = loader.LoadFromReader(strings.NewReader(suiteYAML))
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, suites[0], suites[i], "all loads should share one compiled suite")
	}
}

func TestDefaultSuite(t *testing.T) {
	registry := NewDefaultRuleRegistry()

	suite, err := DefaultSuite(registry)
	require.NoError(t, err)

	assert.Equal(t, "standard", suite.Name)
	assert.Nil(t, suite.Weights)

	names := make([]string, 0, len(suite.Rules))
	for _, rule := range suite.Rules {
		names = append(names, rule.Name())
	}
	assert.Equal(t, registry.SupportedTypes(), names)
}
