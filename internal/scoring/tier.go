package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// TierScorer assigns each contest a review tier from the anomalies its
// normalized records exhibit. It re-derives every flag in the catalog
// directly from the dataset, so it can run with or without the rule
// layer's results.
//
// The scorer is stateless after construction and safe for concurrent use.
type TierScorer struct {
	weights    domain.TierWeights
	thresholds Thresholds
	tracer     trace.Tracer
}

// NewTierScorer creates a TierScorer with the given flag weights and
// grading thresholds. A nil weights map selects the default weighting.
// Returns an error if threshold validation fails.
func NewTierScorer(weights domain.TierWeights, thresholds Thresholds) (*TierScorer, error) {
	if err := validate.Struct(thresholds); err != nil {
		return nil, fmt.Errorf("threshold validation failed: %w", err)
	}
	if weights == nil {
		weights = domain.DefaultTierWeights()
	}
	return &TierScorer{
		weights:    weights,
		thresholds: thresholds,
		tracer:     otel.Tracer("tier-scorer"),
	}, nil
}

// Score classifies every contest that has both candidate and round
// records, returning one score per contest ordered by contest id.
// Contests missing either collection produce no score at all rather than
// a misleading tier 0.
func (s *TierScorer) Score(ctx context.Context, ds *domain.Dataset) []domain.ContestScore {
	_, span := s.tracer.Start(ctx, "TierScorer.Score",
		trace.WithAttributes(
			attribute.Int("contests.total", len(ds.Contests)),
		),
	)
	defer span.End()

	candidatesByContest := ds.CandidatesByContest()
	roundsByContest := ds.RoundsByContest()

	scores := make([]domain.ContestScore, 0, len(ds.Contests))
	for _, contestID := range ds.ContestIDs() {
		candidates := candidatesByContest[contestID]
		rounds := roundsByContest[contestID]
		if len(candidates) == 0 || len(rounds) == 0 {
			continue
		}

		flags := domain.NormalizeFlags(s.contestFlags(candidates, rounds))
		scores = append(scores, domain.ContestScore{
			ContestID: contestID,
			Tier:      s.weights.MaxTier(flags),
			Flags:     flags,
		})
	}

	span.SetAttributes(attribute.Int("contests.scored", len(scores)))
	return scores
}

// contestFlags derives the raw flag list for one contest. Duplicates are
// expected; the caller normalizes.
func (s *TierScorer) contestFlags(candidates []*domain.CandidateRound, rounds []*domain.RoundSummary) []domain.AnomalyFlag {
	var flags []domain.AnomalyFlag

	// A contest must elect exactly one candidate. Status labels only
	// appear in final rounds, so counting across all rows is equivalent
	// to counting the final round.
	elected := 0
	for _, row := range candidates {
		if strings.EqualFold(string(row.Status), string(domain.StatusElected)) {
			elected++
		}
	}
	if elected != 1 {
		flags = append(flags, domain.FlagSingleWinnerViolation)
	}

	// Round sequence over the summary collection: rounds must be exactly
	// 1..max with no gaps. The first summary row per round supplies the
	// total used by the per-round checks below.
	totals := make(map[int]int, len(rounds))
	roundNums := make([]int, 0, len(rounds))
	for _, row := range rounds {
		if _, ok := totals[row.Round]; ok {
			continue
		}
		totals[row.Round] = row.TotalVotes
		roundNums = append(roundNums, row.Round)
	}
	sort.Ints(roundNums)
	if !contiguousFromOne(roundNums) {
		flags = append(flags, domain.FlagRoundSequenceGap)
	}

	transferSums := make(map[int]int)
	voteSums := make(map[int]int)
	haveCandidates := make(map[int]bool)
	for _, row := range candidates {
		transferSums[row.Round] += row.TransferCalc
		voteSums[row.Round] += row.Votes
		haveCandidates[row.Round] = true
	}

	for _, round := range roundNums {
		if !haveCandidates[round] {
			continue
		}
		total := totals[round]
		if flag := s.thresholds.ClassifyTransferBalance(transferSums[round], total); flag != "" {
			flags = append(flags, flag)
		}
		if flag := s.thresholds.ClassifyVoteConsistency(voteSums[round], total); flag != "" {
			flags = append(flags, flag)
		}
	}

	flags = append(flags, s.monotonicityFlags(candidates)...)
	flags = append(flags, s.transferDiffFlags(candidates, totals)...)

	return flags
}

// monotonicityFlags finds candidates whose votes drop between rounds
// while they are still in the race.
func (s *TierScorer) monotonicityFlags(candidates []*domain.CandidateRound) []domain.AnomalyFlag {
	byCandidate := make(map[string][]*domain.CandidateRound)
	for _, row := range candidates {
		byCandidate[row.CandidateID] = append(byCandidate[row.CandidateID], row)
	}

	var flags []domain.AnomalyFlag
	for _, rows := range byCandidate {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Round < rows[j].Round })
		for i := 1; i < len(rows); i++ {
			if rows[i].Votes < rows[i-1].Votes && rows[i].Status != domain.StatusEliminated {
				flags = append(flags, domain.FlagVoteMonotonicityViolation)
			}
		}
	}
	return flags
}

// transferDiffFlags grades gaps between source-reported transfers and the
// reconstructed deltas. Rows without a reported transfer are skipped, as
// is round 1 where the reconstructed delta is zero by definition.
func (s *TierScorer) transferDiffFlags(candidates []*domain.CandidateRound, totals map[int]int) []domain.AnomalyFlag {
	var flags []domain.AnomalyFlag
	for _, row := range candidates {
		if row.TransferOriginal == nil || row.Round <= 1 {
			continue
		}
		diff := row.TransferCalc - *row.TransferOriginal
		if diff < 0 {
			diff = -diff
		}
		if flag := s.thresholds.ClassifyTransferDiff(diff, totals[row.Round]); flag != "" {
			flags = append(flags, flag)
		}
	}
	return flags
}

func contiguousFromOne(rounds []int) bool {
	if len(rounds) == 0 {
		return false
	}
	for i, round := range rounds {
		if round != i+1 {
			return false
		}
	}
	return true
}
