package normalize

import (
	"sort"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// GridStats reports what grid reconstruction synthesized and discarded.
type GridStats struct {
	// ContestsReconstructed counts contests with at least one candidate row.
	ContestsReconstructed int

	// SyntheticRows counts zero-vote cells inserted to densify the grid.
	SyntheticRows int

	// DuplicateCellsDropped counts extra observations of the same
	// (contest, candidate, round) cell; the first observation wins.
	DuplicateCellsDropped int
}

// ReconstructGrids densifies every contest's candidate-by-round matrix and
// derives transfer deltas from vote counts.
//
// For each contest the full candidate set is enumerated across rounds
// 1..max observed; missing cells are synthesized with votes 0 and the
// candidate's name and percentage carried in from the nearest observed
// round (forward fill, then backward fill for leading gaps). The rebuilt
// rows are stably ordered by (contest, candidate, round).
//
// TransferCalc for round r is votes(r) - votes(r-1); round 1 is always 0
// no matter what the source reported. Source-reported transfers survive
// untouched in TransferOriginal on observed cells. Contest candidate and
// round counts are recomputed from the reconstructed grid.
func ReconstructGrids(ds *domain.Dataset) GridStats {
	var stats GridStats

	type cellKey struct {
		candidateID string
		round       int
	}

	byContest := make(map[string][]domain.CandidateRound)
	contestIDs := make([]string, 0)
	for _, row := range ds.Candidates {
		if _, ok := byContest[row.ContestID]; !ok {
			contestIDs = append(contestIDs, row.ContestID)
		}
		byContest[row.ContestID] = append(byContest[row.ContestID], row)
	}
	sort.Strings(contestIDs)

	rebuilt := make([]domain.CandidateRound, 0, len(ds.Candidates))
	for _, contestID := range contestIDs {
		rows := byContest[contestID]
		stats.ContestsReconstructed++

		maxRound := 0
		observed := make(map[cellKey]domain.CandidateRound, len(rows))
		seen := make(map[string]bool)
		candidateIDs := make([]string, 0)
		for _, row := range rows {
			if row.Round > maxRound {
				maxRound = row.Round
			}
			if !seen[row.CandidateID] {
				seen[row.CandidateID] = true
				candidateIDs = append(candidateIDs, row.CandidateID)
			}
			key := cellKey{row.CandidateID, row.Round}
			if _, dup := observed[key]; dup {
				stats.DuplicateCellsDropped++
				continue
			}
			observed[key] = row
		}
		sort.Strings(candidateIDs)

		for _, candidateID := range candidateIDs {
			cells := make([]domain.CandidateRound, maxRound)
			fromSource := make([]bool, maxRound)
			for round := 1; round <= maxRound; round++ {
				if row, ok := observed[cellKey{candidateID, round}]; ok {
					cells[round-1] = row
					fromSource[round-1] = true
					continue
				}
				cells[round-1] = domain.CandidateRound{
					ContestID:   contestID,
					CandidateID: candidateID,
					Round:       round,
				}
				stats.SyntheticRows++
			}

			fillNames(cells)
			fillPercentages(cells, fromSource)

			for i := range cells {
				if i == 0 {
					cells[i].TransferCalc = 0
					continue
				}
				cells[i].TransferCalc = cells[i].Votes - cells[i-1].Votes
			}

			rebuilt = append(rebuilt, cells...)
		}

		if contest := ds.ContestByID(contestID); contest != nil {
			contest.RoundCount = maxRound
			contest.CandidateCount = len(candidateIDs)
		}
	}

	ds.Candidates = rebuilt
	return stats
}

// fillNames carries candidate names across rounds: forward fill first,
// then a backward pass for leading gaps, mirroring a column-wise
// ffill/bfill. Only empty names are overwritten.
func fillNames(cells []domain.CandidateRound) {
	last := ""
	for i := range cells {
		if cells[i].Name == "" {
			cells[i].Name = last
		} else {
			last = cells[i].Name
		}
	}
	next := ""
	for i := len(cells) - 1; i >= 0; i-- {
		if cells[i].Name == "" {
			cells[i].Name = next
		} else {
			next = cells[i].Name
		}
	}
}

// fillPercentages copies percentages into synthesized cells from the
// nearest observed round, forward then backward. Observed cells keep
// their coerced value, including zero.
func fillPercentages(cells []domain.CandidateRound, fromSource []bool) {
	set := make([]bool, len(cells))
	copy(set, fromSource)

	havePrev := false
	var prev float64
	for i := range cells {
		if set[i] {
			prev = cells[i].Percentage
			havePrev = true
			continue
		}
		if havePrev {
			cells[i].Percentage = prev
			set[i] = true
		}
	}

	haveNext := false
	var next float64
	for i := len(cells) - 1; i >= 0; i-- {
		if set[i] {
			next = cells[i].Percentage
			haveNext = true
			continue
		}
		if haveNext {
			cells[i].Percentage = next
			set[i] = true
		}
	}
}
