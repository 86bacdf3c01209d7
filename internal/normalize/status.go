package normalize

import "github.com/jordanholbrook/rcvkit/internal/domain"

// DeriveStatus labels every candidate row in place with Elected,
// Eliminated, or Continuing.
//
// Within each contest the final round's top vote count marks the winner;
// every candidate tied at that maximum is labeled Elected, including
// multi-way ties. Remaining final-round candidates are Eliminated. In
// earlier rounds a candidate with votes is Continuing and a candidate at
// zero is Eliminated. Contests with no candidate rows are skipped.
func DeriveStatus(ds *domain.Dataset) {
	for _, rows := range ds.CandidatesByContest() {
		if len(rows) == 0 {
			continue
		}

		finalRound := 0
		for _, row := range rows {
			if row.Round > finalRound {
				finalRound = row.Round
			}
		}

		maxVotes := 0
		for _, row := range rows {
			if row.Round == finalRound && row.Votes > maxVotes {
				maxVotes = row.Votes
			}
		}

		for _, row := range rows {
			switch {
			case row.Round == finalRound && row.Votes == maxVotes:
				row.Status = domain.StatusElected
			case row.Round == finalRound:
				row.Status = domain.StatusEliminated
			case row.Votes > 0:
				row.Status = domain.StatusContinuing
			default:
				row.Status = domain.StatusEliminated
			}
		}
	}
}
