package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jordanholbrook/rcvkit/internal/normalize"
	"github.com/jordanholbrook/rcvkit/internal/scoring"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Config holds the process-level settings for a pipeline run. Rule-suite
// composition lives in a separate suite file (see SuiteLoader); Config
// covers the knobs that apply to every run regardless of which rules it
// executes.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// SuitePath optionally points at a rule-suite YAML file. When empty,
	// the built-in suite with default parameters runs.
	SuitePath string `koanf:"suite"`

	// FuzzyMatching enables approximate synonym lookup when canonicalizing
	// office and party labels.
	FuzzyMatching bool `koanf:"fuzzy_matching"`

	// FuzzyMaxDistance bounds the edit distance accepted by fuzzy synonym
	// lookup.
	FuzzyMaxDistance int `koanf:"fuzzy_max_distance" validate:"min=0,max=5"`

	// LargeNegTransferAbs is the floor for the large-negative-transfer
	// anomaly bound before percentage scaling.
	LargeNegTransferAbs int `koanf:"large_neg_transfer_abs" validate:"min=0"`

	// TransferDiffSmall is the floor for the small transfer-difference
	// band before percentage scaling.
	TransferDiffSmall int `koanf:"transfer_diff_small" validate:"min=0"`

	// TransferDiffLarge is the floor for the large transfer-difference
	// band before percentage scaling.
	TransferDiffLarge int `koanf:"transfer_diff_large" validate:"min=0"`

	// PercentSmall scales the small band by round total.
	PercentSmall float64 `koanf:"percent_small" validate:"min=0,max=1"`

	// PercentLarge scales the large band and the negative-transfer bound
	// by round total.
	PercentLarge float64 `koanf:"percent_large" validate:"min=0,max=1"`
}

// DefaultConfig returns the standard configuration: info logging, fuzzy
// canonicalization enabled, and the stock anomaly thresholds.
func DefaultConfig() Config {
	thresholds := scoring.DefaultThresholds()
	return Config{
		LogLevel:            "info",
		FuzzyMatching:       true,
		FuzzyMaxDistance:    2,
		LargeNegTransferAbs: thresholds.LargeNegTransferAbs,
		TransferDiffSmall:   thresholds.TransferDiffSmall,
		TransferDiffLarge:   thresholds.TransferDiffLarge,
		PercentSmall:        thresholds.PercentSmall,
		PercentLarge:        thresholds.PercentLarge,
	}
}

// LoadConfig builds a Config by layering, in order of precedence
// (low to high):
//  1. defaults (DefaultConfig)
//  2. YAML file at path, or at $RCVKIT_CONFIG when path is empty
//  3. environment variables (prefix RCVKIT_, e.g. RCVKIT_LOG_LEVEL)
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("RCVKIT_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Map env keys like RCVKIT_FUZZY_MAX_DISTANCE -> fuzzy_max_distance,
	// preserving underscores to match the koanf tags on the struct.
	envProvider := env.Provider("RCVKIT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "rcvkit_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// CanonicalizerConfig projects the canonicalization settings.
func (c Config) CanonicalizerConfig() normalize.CanonicalizerConfig {
	return normalize.CanonicalizerConfig{
		FuzzyMatching: c.FuzzyMatching,
		MaxDistance:   c.FuzzyMaxDistance,
	}
}

// ScoringThresholds projects the anomaly threshold settings.
func (c Config) ScoringThresholds() scoring.Thresholds {
	return scoring.Thresholds{
		LargeNegTransferAbs: c.LargeNegTransferAbs,
		TransferDiffSmall:   c.TransferDiffSmall,
		TransferDiffLarge:   c.TransferDiffLarge,
		PercentSmall:        c.PercentSmall,
		PercentLarge:        c.PercentLarge,
	}
}
