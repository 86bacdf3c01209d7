package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/normalize"
	"github.com/jordanholbrook/rcvkit/internal/ports"
	"github.com/jordanholbrook/rcvkit/internal/scoring"
)

// Pipeline sequences the full normalization and validation run over a
// dataset: clean, reconstruct grids, canonicalize identifiers, derive
// statuses, evaluate the rule suite, and classify contests into review
// tiers.
//
// The dataset is normalized in place; the returned report references the
// dataset's post-normalization state. Stages run sequentially because
// each depends on its predecessor's writes.
type Pipeline struct {
	// canonicalizer rewrites contest identifiers into canonical form.
	canonicalizer *normalize.Canonicalizer
	// suite holds the rules to evaluate, in order.
	suite *Suite
	// scorer classifies contests into review tiers.
	scorer *scoring.TierScorer
	// logger records stage progress and rule outcomes.
	logger *zap.Logger
	// metrics collects stage latencies, rule counters, and the tier
	// distribution.
	metrics ports.MetricsCollector
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer
}

// NewPipeline assembles a pipeline from process configuration and a
// compiled suite. A nil logger disables logging; a nil metrics collector
// disables metrics.
func NewPipeline(cfg Config, suite *Suite, logger *zap.Logger, metrics ports.MetricsCollector) (*Pipeline, error) {
	if suite == nil || len(suite.Rules) == 0 {
		return nil, fmt.Errorf("suite must contain at least one rule")
	}

	canonicalizer, err := normalize.NewCanonicalizer(cfg.CanonicalizerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to build canonicalizer: %w", err)
	}

	scorer, err := scoring.NewTierScorer(suite.Weights, cfg.ScoringThresholds())
	if err != nil {
		return nil, fmt.Errorf("failed to build tier scorer: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Pipeline{
		canonicalizer: canonicalizer,
		suite:         suite,
		scorer:        scorer,
		logger:        logger,
		metrics:       metrics,
		tracer:        otel.Tracer("pipeline"),
	}, nil
}

// Run normalizes the dataset in place and evaluates the suite against it,
// returning the full validation report. The dataset mutates even when an
// error is returned.
func (p *Pipeline) Run(ctx context.Context, dataset *domain.Dataset) (*domain.Report, error) {
	if dataset == nil {
		return nil, domain.ErrNilDataset
	}

	ctx, span := p.tracer.Start(ctx, "Pipeline.Run",
		trace.WithAttributes(
			attribute.String("suite.name", p.suite.Name),
			attribute.Int("suite.rules", len(p.suite.Rules)),
			attribute.Int("dataset.contests", len(dataset.Contests)),
			attribute.Int("dataset.candidate_rows", len(dataset.Candidates)),
			attribute.Int("dataset.round_rows", len(dataset.Rounds)),
		),
	)
	defer span.End()

	p.normalizeStages(ctx, dataset)

	results, err := p.evaluateRules(ctx, dataset)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	scores := p.scoreContests(ctx, dataset)

	report := &domain.Report{
		ID:                  uuid.NewString(),
		GeneratedAt:         time.Now().UTC(),
		TotalContests:       len(dataset.Contests),
		TotalCandidateRows:  len(dataset.Candidates),
		TotalRoundRows:      len(dataset.Rounds),
		Results:             results,
		OverallScore:        domain.MeanScore(results),
		ProblematicContests: domain.ProblematicFrom(results),
		Scores:              scores,
	}

	span.SetAttributes(
		attribute.Float64("report.overall_score", report.OverallScore),
		attribute.Bool("report.passed", report.Passed()),
		attribute.Int("report.problematic_contests", len(report.ProblematicContests)),
	)
	p.logger.Info("validation run complete",
		zap.String("report_id", report.ID),
		zap.Float64("overall_score", report.OverallScore),
		zap.Bool("passed", report.Passed()),
		zap.Int("contests", report.TotalContests),
		zap.Int("problematic_contests", len(report.ProblematicContests)),
	)

	return report, nil
}

// Normalize runs only the in-place data preparation stages: cleaning,
// grid reconstruction, identifier canonicalization, and status
// derivation. The clean command uses it to produce cleaned output
// without evaluating rules.
func (p *Pipeline) Normalize(ctx context.Context, dataset *domain.Dataset) error {
	if dataset == nil {
		return domain.ErrNilDataset
	}

	ctx, span := p.tracer.Start(ctx, "Pipeline.Normalize",
		trace.WithAttributes(
			attribute.Int("dataset.contests", len(dataset.Contests)),
			attribute.Int("dataset.candidate_rows", len(dataset.Candidates)),
			attribute.Int("dataset.round_rows", len(dataset.Rounds)),
		),
	)
	defer span.End()

	p.normalizeStages(ctx, dataset)
	return nil
}

// normalizeStages runs the in-place normalization sequence.
func (p *Pipeline) normalizeStages(ctx context.Context, dataset *domain.Dataset) {
	var cleanStats normalize.CleanStats
	p.timedStage(ctx, "clean", func() {
		cleanStats = normalize.Clean(dataset)
	})
	p.logger.Debug("cleaned dataset",
		zap.Int("contests_dropped", cleanStats.ContestsDropped),
		zap.Int("duplicate_contests_dropped", cleanStats.DuplicateContestsDropped),
		zap.Int("candidate_rows_dropped", cleanStats.CandidateRowsDropped),
		zap.Int("round_rows_dropped", cleanStats.RoundRowsDropped),
	)
	dropped := cleanStats.ContestsDropped + cleanStats.DuplicateContestsDropped
	p.metrics.RecordCounter("rows_dropped_total", float64(dropped), map[string]string{"collection": "contests"})
	p.metrics.RecordCounter("rows_dropped_total", float64(cleanStats.CandidateRowsDropped), map[string]string{"collection": "candidates"})
	p.metrics.RecordCounter("rows_dropped_total", float64(cleanStats.RoundRowsDropped), map[string]string{"collection": "rounds"})

	var gridStats normalize.GridStats
	p.timedStage(ctx, "reconstruct_grids", func() {
		gridStats = normalize.ReconstructGrids(dataset)
	})
	p.logger.Debug("reconstructed round grids",
		zap.Int("contests", gridStats.ContestsReconstructed),
		zap.Int("synthetic_rows", gridStats.SyntheticRows),
		zap.Int("duplicate_cells_dropped", gridStats.DuplicateCellsDropped),
	)

	var canonicalStats normalize.CanonicalStats
	p.timedStage(ctx, "canonicalize", func() {
		canonicalStats = p.canonicalizer.Canonicalize(dataset)
	})
	p.logger.Debug("canonicalized contest identifiers",
		zap.Int("contests_merged", canonicalStats.ContestsMerged),
		zap.Int("candidate_rows_dropped", canonicalStats.CandidateRowsDropped),
		zap.Int("round_rows_dropped", canonicalStats.RoundRowsDropped),
	)

	p.timedStage(ctx, "derive_status", func() {
		normalize.DeriveStatus(dataset)
	})

	p.metrics.RecordCounter("rows_processed_total", float64(len(dataset.Contests)), map[string]string{"collection": "contests"})
	p.metrics.RecordCounter("rows_processed_total", float64(len(dataset.Candidates)), map[string]string{"collection": "candidates"})
	p.metrics.RecordCounter("rows_processed_total", float64(len(dataset.Rounds)), map[string]string{"collection": "rounds"})
}

// evaluateRules runs the suite in declaration order. Rules are
// independent, but execution stays sequential so reports and logs keep a
// stable order.
func (p *Pipeline) evaluateRules(ctx context.Context, dataset *domain.Dataset) ([]domain.RuleResult, error) {
	results := make([]domain.RuleResult, 0, len(p.suite.Rules))
	for _, rule := range p.suite.Rules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rule evaluation canceled: %w", err)
		}

		start := time.Now()
		result, err := rule.Evaluate(ctx, dataset)
		if err != nil {
			return nil, fmt.Errorf("rule %s failed to evaluate: %w", rule.Name(), err)
		}

		status := "passed"
		if !result.Passed {
			status = "failed"
		}
		p.metrics.RecordLatency("rule_"+rule.Name(), time.Since(start), nil)
		p.metrics.RecordCounter("rule_evaluations_total", 1, map[string]string{"rule": rule.Name(), "status": status})
		p.metrics.RecordHistogram("rule_score", result.Score, map[string]string{"rule": rule.Name()})
		p.logger.Debug("rule evaluated",
			zap.String("rule", rule.Name()),
			zap.Bool("passed", result.Passed),
			zap.Float64("score", result.Score),
			zap.Int("issues", len(result.Issues)),
		)

		results = append(results, result)
	}
	return results, nil
}

// scoreContests classifies every contest and publishes the tier
// distribution gauge.
func (p *Pipeline) scoreContests(ctx context.Context, dataset *domain.Dataset) []domain.ContestScore {
	var scores []domain.ContestScore
	p.timedStage(ctx, "score_tiers", func() {
		scores = p.scorer.Score(ctx, dataset)
	})

	byTier := make(map[int]int)
	for _, score := range scores {
		byTier[score.Tier]++
	}
	for tier := 0; tier <= 3; tier++ {
		p.metrics.RecordGauge("contests_by_tier", float64(byTier[tier]), map[string]string{"tier": strconv.Itoa(tier)})
	}

	return scores
}

// timedStage wraps a pipeline stage with a span and a latency metric.
func (p *Pipeline) timedStage(ctx context.Context, name string, fn func()) {
	_, span := p.tracer.Start(ctx, "Pipeline."+name)
	defer span.End()

	start := time.Now()
	fn()
	p.metrics.RecordLatency(name, time.Since(start), nil)
}

// noopMetrics discards all metrics. It stands in when no collector is
// configured, keeping the pipeline free of nil checks.
type noopMetrics struct{}

func (noopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (noopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (noopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (noopMetrics) RecordHistogram(string, float64, map[string]string)     {}
