// Package testutils provides dataset fixtures shared by tests across the
// module. Fixtures are deliberately small and arithmetically consistent
// so tests can break exactly one property at a time.
package testutils

import "github.com/jordanholbrook/rcvkit/internal/domain"

// IntPtr returns a pointer to v, for populating optional transfer fields
// in test fixtures.
func IntPtr(v int) *int { return &v }

// CleanDataset builds a dataset with one well-formed contest per id.
// Each contest runs two candidates over two rounds with consistent vote
// sums, conserved transfers, contiguous rounds, and a single winner, so
// every validation rule passes and the tier classifier reports tier 0.
func CleanDataset(contestIDs ...string) *domain.Dataset {
	ds := &domain.Dataset{}
	for _, id := range contestIDs {
		ds.Contests = append(ds.Contests, domain.Contest{
			ID:             id,
			State:          "ME",
			Year:           2026,
			Jurisdiction:   "Portland",
			Office:         "Mayor",
			District:       "1",
			ElectionType:   "general",
			CandidateCount: 2,
			RoundCount:     2,
			Date:           "2026-11-03",
		})
		ds.Candidates = append(ds.Candidates,
			domain.CandidateRound{ContestID: id, CandidateID: "alice", Name: "Alice Chen", Round: 1, Votes: 60, Percentage: 60, Status: domain.StatusContinuing},
			domain.CandidateRound{ContestID: id, CandidateID: "bob", Name: "Bob Ortiz", Round: 1, Votes: 40, Percentage: 40, Status: domain.StatusContinuing},
			domain.CandidateRound{ContestID: id, CandidateID: "alice", Name: "Alice Chen", Round: 2, Votes: 80, Percentage: 80, TransferCalc: 20, TransferOriginal: IntPtr(20), Status: domain.StatusElected},
			domain.CandidateRound{ContestID: id, CandidateID: "bob", Name: "Bob Ortiz", Round: 2, Votes: 20, Percentage: 20, TransferCalc: -20, TransferOriginal: IntPtr(-20), Status: domain.StatusEliminated},
		)
		ds.Rounds = append(ds.Rounds,
			domain.RoundSummary{ContestID: id, Round: 1, TotalVotes: 100},
			domain.RoundSummary{ContestID: id, Round: 2, TotalVotes: 100},
		)
	}
	return ds
}
