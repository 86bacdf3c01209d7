package domain

import (
	"sort"
	"strings"
)

// AnomalyFlag names a specific data-quality finding attached to a contest
// during tier classification. The catalog is fixed; flags are compared by
// string value so they survive CSV round-trips.
type AnomalyFlag string

// The anomaly flag catalog. Names are stable identifiers that appear in
// output files and must not change between releases.
const (
	// FlagPositiveTransferBalance marks a round whose transfer deltas sum
	// above zero: votes appeared from nowhere.
	FlagPositiveTransferBalance AnomalyFlag = "positive_transfer_balance"

	// FlagSingleWinnerViolation marks a contest without exactly one
	// Elected candidate in its final round.
	FlagSingleWinnerViolation AnomalyFlag = "single_winner_violation"

	// FlagCandsGTRoundTotal marks a round where summed candidate votes
	// exceed the reported round total.
	FlagCandsGTRoundTotal AnomalyFlag = "cands_gt_round_total"

	// FlagLargeNegTransferBalance marks a round whose transfer deltas sum
	// below the large negative threshold.
	FlagLargeNegTransferBalance AnomalyFlag = "large_neg_transfer_balance"

	// FlagTransferDiffLarge marks a row where reported and reconstructed
	// transfers diverge beyond the large scaled threshold.
	FlagTransferDiffLarge AnomalyFlag = "transfer_diff_large"

	// FlagRoundSequenceGap marks a contest whose observed rounds are not
	// the contiguous sequence 1..max.
	FlagRoundSequenceGap AnomalyFlag = "round_sequence_gap"

	// FlagVoteMonotonicityViolation marks a candidate losing votes between
	// rounds without being eliminated.
	FlagVoteMonotonicityViolation AnomalyFlag = "vote_monotonicity_violation"

	// FlagCandsLTRoundTotalGap marks a round where summed candidate votes
	// fall short of the round total. Shortfalls are usually exhausted
	// ballots, undervotes, or overvotes.
	FlagCandsLTRoundTotalGap AnomalyFlag = "cands_lt_round_total_gap"

	// FlagTransferDiffSmall marks a row where reported and reconstructed
	// transfers diverge beyond the small scaled threshold but not the large.
	FlagTransferDiffSmall AnomalyFlag = "transfer_diff_small"
)

// TierWeights maps each anomaly flag to the review tier it demands.
// Weights range 1 (routine check) to 3 (manual review required).
// The classifier takes the maximum weight over a contest's flags.
type TierWeights map[AnomalyFlag]int

// DefaultTierWeights returns the standard flag weighting: structural
// impossibilities at 3, suspicious magnitudes at 2, noise-level findings
// at 1.
func DefaultTierWeights() TierWeights {
	return TierWeights{
		FlagPositiveTransferBalance:   3,
		FlagSingleWinnerViolation:     3,
		FlagCandsGTRoundTotal:         3,
		FlagLargeNegTransferBalance:   2,
		FlagTransferDiffLarge:         2,
		FlagRoundSequenceGap:          2,
		FlagVoteMonotonicityViolation: 1,
		FlagCandsLTRoundTotalGap:      1,
		FlagTransferDiffSmall:         1,
	}
}

// WeightFor returns the tier weight for a flag. Flags outside the table
// weigh 1 so unknown findings still surface at the lowest tier.
func (w TierWeights) WeightFor(flag AnomalyFlag) int {
	if weight, ok := w[flag]; ok {
		return weight
	}
	return 1
}

// MaxTier returns the highest weight among the given flags, or 0 when the
// list is empty.
func (w TierWeights) MaxTier(flags []AnomalyFlag) int {
	tier := 0
	for _, flag := range flags {
		if weight := w.WeightFor(flag); weight > tier {
			tier = weight
		}
	}
	return tier
}

// NormalizeFlags sorts and de-duplicates a flag list in place-independent
// fashion, returning the canonical form used in scores and output files.
func NormalizeFlags(flags []AnomalyFlag) []AnomalyFlag {
	if len(flags) == 0 {
		return nil
	}
	seen := make(map[AnomalyFlag]struct{}, len(flags))
	out := make([]AnomalyFlag, 0, len(flags))
	for _, flag := range flags {
		if _, dup := seen[flag]; dup {
			continue
		}
		seen[flag] = struct{}{}
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// JoinFlags renders a flag list as the pipe-delimited string written to
// score files. Empty input yields the empty string.
func JoinFlags(flags []AnomalyFlag) string {
	if len(flags) == 0 {
		return ""
	}
	parts := make([]string, len(flags))
	for i, flag := range flags {
		parts[i] = string(flag)
	}
	return strings.Join(parts, "|")
}
