// Package scoring grades contests by the anomalies their normalized
// records exhibit, collapsing per-round findings into a single review
// tier per contest.
//
// Tier semantics: 0 is clean, 1 needs a routine look, 2 is statistically
// extreme, 3 is structurally impossible and demands manual review. The
// numeric cutoffs that separate "noise" from "extreme" live in Thresholds
// and scale with round size, so a 50-vote discrepancy reads differently
// in a 200-vote contest than in a 200,000-vote one.
package scoring

import (
	"github.com/go-playground/validator/v10"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// validate is the shared validator instance for scoring configurations.
var validate = validator.New()

// Thresholds holds the fixed floors and percentage bands used to grade
// numeric anomalies. Each effective threshold is the larger of its fixed
// floor and the percentage of the round total, so thresholds grow with
// contest size but never drop below the floor.
type Thresholds struct {
	// LargeNegTransferAbs is the floor below which a negative per-round
	// transfer sum is graded large. Negative sums are expected when
	// ballots exhaust; only extreme ones are worth a flag.
	LargeNegTransferAbs int `yaml:"large_neg_transfer_abs" json:"large_neg_transfer_abs" validate:"min=0"`

	// TransferDiffSmall is the floor above which a reported-versus-
	// reconstructed transfer gap is graded small. Gaps at or under it
	// are ignored.
	TransferDiffSmall int `yaml:"transfer_diff_small" json:"transfer_diff_small" validate:"min=0"`

	// TransferDiffLarge is the floor above which a transfer gap is graded
	// large rather than small.
	TransferDiffLarge int `yaml:"transfer_diff_large" json:"transfer_diff_large" validate:"min=0,gtefield=TransferDiffSmall"`

	// PercentSmall scales the small band by round size.
	PercentSmall float64 `yaml:"percent_small" json:"percent_small" validate:"min=0,max=1"`

	// PercentLarge scales the large band and the negative-transfer bound
	// by round size.
	PercentLarge float64 `yaml:"percent_large" json:"percent_large" validate:"min=0,max=1"`
}

// DefaultThresholds returns the standard grading thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeNegTransferAbs: 1000,
		TransferDiffSmall:   50,
		TransferDiffLarge:   200,
		PercentSmall:        0.01,
		PercentLarge:        0.02,
	}
}

// ClassifyTransferBalance grades a round's transfer-delta sum. Any
// positive sum means votes appeared from nowhere and is flagged outright;
// a negative sum is flagged only past the size-scaled large bound. The
// zero flag means the sum is unremarkable.
func (t Thresholds) ClassifyTransferBalance(sumTransfer, roundTotal int) domain.AnomalyFlag {
	if sumTransfer > 0 {
		return domain.FlagPositiveTransferBalance
	}
	largeAbs := t.LargeNegTransferAbs
	if roundTotal > 0 {
		if scaled := int(float64(roundTotal) * t.PercentLarge); scaled > largeAbs {
			largeAbs = scaled
		}
	}
	if sumTransfer <= -largeAbs {
		return domain.FlagLargeNegTransferBalance
	}
	return ""
}

// ClassifyVoteConsistency compares summed candidate votes against the
// reported round total. Exceeding the total is structurally impossible;
// any shortfall is flagged at the lowest tier since exhausted ballots,
// undervotes, and overvotes all land there legitimately.
func (t Thresholds) ClassifyVoteConsistency(candsSum, roundTotal int) domain.AnomalyFlag {
	if candsSum > roundTotal {
		return domain.FlagCandsGTRoundTotal
	}
	if roundTotal-candsSum > 0 {
		return domain.FlagCandsLTRoundTotalGap
	}
	return ""
}

// ClassifyTransferDiff grades the absolute gap between a source-reported
// transfer and the reconstructed one against the size-scaled small and
// large bands. Gaps within the small band are ignored.
func (t Thresholds) ClassifyTransferDiff(diffAbs, roundTotal int) domain.AnomalyFlag {
	small := t.TransferDiffSmall
	large := t.TransferDiffLarge
	if roundTotal > 0 {
		if scaled := int(float64(roundTotal) * t.PercentSmall); scaled > small {
			small = scaled
		}
		if scaled := int(float64(roundTotal) * t.PercentLarge); scaled > large {
			large = scaled
		}
	}
	switch {
	case diffAbs > large:
		return domain.FlagTransferDiffLarge
	case diffAbs > small:
		return domain.FlagTransferDiffSmall
	default:
		return ""
	}
}
