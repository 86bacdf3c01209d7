package testutils

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// GenerateDataset builds a deterministic pseudo-random dataset with the
// given number of contests. Contests vary in candidate count (2..5) and
// round count (2..4), but every invariant holds: vote sums equal round
// totals, transfers conserve votes, rounds are contiguous, and exactly
// one candidate wins. The same seed always yields the same dataset.
func GenerateDataset(contests int, seed int64) *domain.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &domain.Dataset{}

	for c := 0; c < contests; c++ {
		contestID := fmt.Sprintf("ME_2026_G_Town%03d_01_Mayor", c)
		numCandidates := 2 + rng.Intn(4)
		numRounds := 2 + rng.Intn(3)
		if numRounds > numCandidates {
			numRounds = numCandidates
		}

		ds.Contests = append(ds.Contests, domain.Contest{
			ID:             contestID,
			State:          "ME",
			Year:           2026,
			Jurisdiction:   fmt.Sprintf("Town%03d", c),
			Office:         "Mayor",
			District:       "1",
			ElectionType:   "general",
			CandidateCount: numCandidates,
			RoundCount:     numRounds,
			Date:           "2026-11-03",
		})

		// Distinct starting counts keep every round tie-free: survivors
		// receive identical shares, so pairwise differences persist. The
		// range is capped so the exhausted remainder of any elimination
		// stays under the soft transfer thresholds.
		votes := make([]int, numCandidates)
		used := make(map[int]bool, numCandidates)
		for i := range votes {
			v := 50 + rng.Intn(200)
			for used[v] {
				v++
			}
			used[v] = true
			votes[i] = v
		}
		eliminated := make([]bool, numCandidates)

		for round := 1; round <= numRounds; round++ {
			total := 0
			for _, v := range votes {
				total += v
			}
			ds.Rounds = append(ds.Rounds, domain.RoundSummary{
				ContestID:  contestID,
				Round:      round,
				TotalVotes: total,
			})

			maxVotes := 0
			for i, v := range votes {
				if !eliminated[i] && v > maxVotes {
					maxVotes = v
				}
			}

			for i := 0; i < numCandidates; i++ {
				status := domain.StatusContinuing
				switch {
				case round == numRounds && votes[i] == maxVotes && !eliminated[i]:
					status = domain.StatusElected
				case round == numRounds:
					status = domain.StatusEliminated
				case votes[i] == 0:
					status = domain.StatusEliminated
				}

				row := domain.CandidateRound{
					ContestID:   contestID,
					CandidateID: fmt.Sprintf("cand%02d", i),
					Name:        fmt.Sprintf("Candidate %02d", i),
					Round:       round,
					Votes:       votes[i],
					Percentage:  float64(votes[i]) / float64(total) * 100,
					Status:      status,
				}
				ds.Candidates = append(ds.Candidates, row)
			}

			if round == numRounds {
				break
			}

			// Eliminate the lowest continuing candidate and hand 80% of
			// their votes to the survivors; the rest exhausts, keeping
			// the transfer sum non-positive.
			lowest, lowestVotes := -1, math.MaxInt
			for i, v := range votes {
				if !eliminated[i] && v < lowestVotes {
					lowest, lowestVotes = i, v
				}
			}

			transferable := lowestVotes * 8 / 10
			eliminated[lowest] = true
			votes[lowest] = 0
			survivors := 0
			for i := range votes {
				if !eliminated[i] {
					survivors++
				}
			}
			if survivors > 0 {
				share := transferable / survivors
				for i := range votes {
					if !eliminated[i] {
						votes[i] += share
					}
				}
			}
		}
	}

	fillTransfers(ds)
	return ds
}

// fillTransfers recomputes TransferCalc from consecutive vote counts and
// mirrors it into TransferOriginal, the way a fully reconstructed and
// agreeing dataset would look.
func fillTransfers(ds *domain.Dataset) {
	type cell struct {
		contestID   string
		candidateID string
		round       int
	}
	votes := make(map[cell]int, len(ds.Candidates))
	for _, row := range ds.Candidates {
		votes[cell{row.ContestID, row.CandidateID, row.Round}] = row.Votes
	}
	for i := range ds.Candidates {
		row := &ds.Candidates[i]
		if row.Round <= 1 {
			row.TransferCalc = 0
			continue
		}
		prev := votes[cell{row.ContestID, row.CandidateID, row.Round - 1}]
		row.TransferCalc = row.Votes - prev
		row.TransferOriginal = IntPtr(row.TransferCalc)
	}
}
