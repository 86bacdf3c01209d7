package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// SuiteConfig defines the complete specification for a validation suite
// and serves as the declarative entry point for composing a run: which
// rules execute, with which parameters, and how anomaly flags map to
// review tiers.
type SuiteConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the suite.
	Metadata SuiteMetadata `yaml:"metadata" validate:"required"`
	// Rules defines the validation rules that will execute, in order.
	Rules []RuleSpec `yaml:"rules" validate:"required,min=1,dive"`
	// Scoring optionally overrides the tier classification weights.
	Scoring ScoringSpec `yaml:"scoring"`
}

// SuiteMetadata provides descriptive information about a validation suite
// for organization and report headers.
type SuiteMetadata struct {
	// Name is the human-readable identifier for this suite.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the suite's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels for filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
}

// RuleSpec defines a single rule within a suite: its identifier, the rule
// type to instantiate, and type-specific parameters.
type RuleSpec struct {
	// ID is the unique identifier for this rule within the suite.
	ID string `yaml:"id" validate:"required,ruleid,min=1,max=100"`
	// Type names the rule implementation to instantiate.
	Type string `yaml:"type" validate:"required,min=1,max=100"`
	// Parameters contains type-specific configuration as flexible YAML
	// validated by the rule's own constructor.
	Parameters yaml.Node `yaml:"parameters"`
}

// ScoringSpec carries the optional tier-weight overrides. Flags absent
// from the map keep their default weights; unknown flags weigh 1.
type ScoringSpec struct {
	// Weights maps anomaly flag names to review tiers 0..3.
	Weights map[string]int `yaml:"weights" validate:"max=50,dive,min=0,max=3"`
}

// Suite is a compiled validation suite: instantiated rules in execution
// order plus the tier weights a scorer should apply.
// Suites are immutable once compiled; rules are stateless, so a single
// Suite may be shared across goroutines and runs.
type Suite struct {
	// Name is the suite's metadata name, used in logs and reports.
	Name string
	// Rules holds the instantiated rules in declaration order.
	Rules []ports.Rule
	// Weights holds the tier weights, or nil to use the defaults.
	Weights domain.TierWeights
}

// SuiteLoader provides YAML parsing, validation, and caching for
// validation suites, transforming declarative specifications into
// compiled Suite instances.
type SuiteLoader struct {
	// validator performs struct field validation and custom validation
	// rules for suite configurations.
	validator *validator.Validate
	// registry provides factory methods for creating rules based on
	// their type and parameters.
	registry ports.RuleRegistry
	// cache stores compiled suites indexed by SHA256 hash of the
	// normalized configuration to avoid recompiling identical suites
	// across batch runs.
	cache map[string]*Suite
	// cacheMu provides thread-safe access to the cache map.
	cacheMu sync.RWMutex
	// sf prevents duplicate compilation when multiple goroutines request
	// the same suite simultaneously.
	sf singleflight.Group
}

// NewSuiteLoader creates a suite loader backed by the given rule
// registry. It registers the custom validators used by suite
// configurations and returns an error if registration fails.
func NewSuiteLoader(registry ports.RuleRegistry) (*SuiteLoader, error) {
	v := validator.New()

	if err := RegisterSuiteValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &SuiteLoader{
		validator: v,
		registry:  registry,
		cache:     make(map[string]*Suite),
	}, nil
}

// LoadFromFile loads and compiles a validation suite from a YAML file,
// using SHA256-based caching to avoid recompiling identical files.
func (sl *SuiteLoader) LoadFromFile(path string) (*Suite, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return sl.load(data)
}

// LoadFromReader loads and compiles a validation suite from an io.Reader,
// applying the same validation and caching as LoadFromFile.
func (sl *SuiteLoader) LoadFromReader(r io.Reader) (*Suite, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return sl.load(data)
}

// load is the common implementation for compiling suites from byte data,
// using singleflight to prevent duplicate compilation.
func (sl *SuiteLoader) load(data []byte) (*Suite, error) {
	config, err := sl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Hash the normalized config rather than the raw bytes so formatting
	// differences hit the same cache entry.
	hash, err := calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := sl.sf.Do(hash, func() (any, error) {
		if suite, ok := sl.getCachedSuite(hash); ok {
			return suite, nil
		}

		if err := sl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		suite, err := sl.buildSuite(config)
		if err != nil {
			return nil, fmt.Errorf("failed to build suite: %w", err)
		}

		sl.cacheSuite(hash, suite)

		return suite, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Suite), nil
}

// parseYAML unmarshals YAML byte data into a SuiteConfig using strict
// decoding, so configuration typos fail loudly instead of being ignored.
func (sl *SuiteLoader) parseYAML(data []byte) (*SuiteConfig, error) {
	var config SuiteConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig performs struct field validation followed by semantic
// validation of relationships the tags cannot express.
func (sl *SuiteLoader) validateConfig(config *SuiteConfig) error {
	if err := sl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := sl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics checks rule ID uniqueness and that every rule type is
// known to the registry. Parameter validation happens in the rule
// constructors during buildSuite; duplicating it here would drift.
func (sl *SuiteLoader) validateSemantics(config *SuiteConfig) error {
	supported := sl.registry.SupportedTypes()

	ruleIDs := make(map[string]struct{}, len(config.Rules))
	for _, spec := range config.Rules {
		if _, exists := ruleIDs[spec.ID]; exists {
			return fmt.Errorf("duplicate rule ID %q", spec.ID)
		}
		ruleIDs[spec.ID] = struct{}{}

		if !slices.Contains(supported, spec.Type) {
			return fmt.Errorf("%w: %s (rule %s)", ports.ErrUnknownRuleType, spec.Type, spec.ID)
		}
	}

	return nil
}

// buildSuite instantiates every rule through the registry and assembles
// the compiled suite.
func (sl *SuiteLoader) buildSuite(config *SuiteConfig) (*Suite, error) {
	suite := &Suite{
		Name:  config.Metadata.Name,
		Rules: make([]ports.Rule, 0, len(config.Rules)),
	}

	for _, spec := range config.Rules {
		params, err := decodeParameters(spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.ID, err)
		}

		rule, err := sl.registry.CreateRule(spec.Type, spec.ID, params)
		if err != nil {
			return nil, err
		}
		suite.Rules = append(suite.Rules, rule)
	}

	if len(config.Scoring.Weights) > 0 {
		weights := make(domain.TierWeights, len(config.Scoring.Weights))
		for flag, tier := range config.Scoring.Weights {
			weights[domain.AnomalyFlag(flag)] = tier
		}
		suite.Weights = weights
	}

	return suite, nil
}

// decodeParameters converts a rule's flexible YAML parameters into the
// map form the registry factories accept. A zero node means the rule was
// declared without parameters.
func decodeParameters(params yaml.Node) (map[string]any, error) {
	if params.Kind == 0 {
		return nil, nil
	}

	var paramMap map[string]any
	if err := params.Decode(&paramMap); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return paramMap, nil
}

// calculateConfigHash produces a stable identity for a parsed suite
// configuration.
func calculateConfigHash(config *SuiteConfig) (string, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (sl *SuiteLoader) getCachedSuite(hash string) (*Suite, bool) {
	sl.cacheMu.RLock()
	defer sl.cacheMu.RUnlock()

	suite, ok := sl.cache[hash]
	return suite, ok
}

func (sl *SuiteLoader) cacheSuite(hash string, suite *Suite) {
	sl.cacheMu.Lock()
	defer sl.cacheMu.Unlock()

	sl.cache[hash] = suite
}

// ClearCache removes all cached suites. Long-running processes call this
// after suite files change on disk.
func (sl *SuiteLoader) ClearCache() {
	sl.cacheMu.Lock()
	defer sl.cacheMu.Unlock()

	sl.cache = make(map[string]*Suite)
}

// DefaultSuite compiles the built-in suite: every rule in the standard
// catalog, default parameters, default tier weights. This is what runs
// when no suite file is configured.
func DefaultSuite(registry ports.RuleRegistry) (*Suite, error) {
	suite := &Suite{Name: "standard"}

	for _, ruleType := range registry.SupportedTypes() {
		rule, err := registry.CreateRule(ruleType, ruleType, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build default suite: %w", err)
		}
		suite.Rules = append(suite.Rules, rule)
	}

	return suite, nil
}
