// Command rcvkit normalizes and validates ranked-choice voting election
// extracts: it cleans raw CSV exports into canonical tables, evaluates a
// configurable rule suite against them, scores every contest into a
// review tier, and combines per-jurisdiction outputs into one dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jordanholbrook/rcvkit/infrastructure/middleware"
	"github.com/jordanholbrook/rcvkit/internal/application"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded in PersistentPreRunE, shared by every subcommand.
	cfg    *application.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rcvkit",
	Short: "rcvkit - normalize and validate ranked-choice election extracts",
	Long: `rcvkit turns raw ranked-choice election extracts (Elections_DF,
Candidates_DF, and Rounds_DF CSV files) into cleaned, canonically
identified datasets, validates them with a configurable rule suite, and
scores every contest into a manual-review tier.

Typical flow:
  rcvkit clean    --input data/raw --output data/cleaned
  rcvkit validate --input data/cleaned --report-dir reports
  rcvkit combine  data/jurisdictions data/combined`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = application.LoadConfig(configPath)
		if err != nil {
			return err
		}

		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel(cfg.LogLevel))
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func zapLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// buildPipeline assembles a pipeline from the loaded configuration,
// reading the rule suite from cfg.SuitePath when set and falling back to
// the built-in suite otherwise.
func buildPipeline() (*application.Pipeline, error) {
	registry := application.NewDefaultRuleRegistry()

	var (
		suite *application.Suite
		err   error
	)
	if cfg.SuitePath != "" {
		loader, lerr := application.NewSuiteLoader(registry)
		if lerr != nil {
			return nil, lerr
		}
		suite, err = loader.LoadFromFile(cfg.SuitePath)
	} else {
		suite, err = application.DefaultSuite(registry)
	}
	if err != nil {
		return nil, err
	}

	return application.NewPipeline(*cfg, suite, logger, middleware.NewPrometheusMetrics())
}

// signalContext returns a context canceled on SIGINT or SIGTERM so a
// run aborted at the terminal stops between files instead of mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (or set RCVKIT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands to root
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
