package normalize

import "github.com/jordanholbrook/rcvkit/internal/domain"

// CleanStats reports what the cleaning stage removed. Drops are logged by
// the caller, never fatal: losing a malformed row beats aborting a batch.
type CleanStats struct {
	// ContestsDropped counts contest rows missing a critical identifier
	// (contest id, state, or office).
	ContestsDropped int

	// DuplicateContestsDropped counts contest rows discarded because an
	// earlier row already claimed the same identifier.
	DuplicateContestsDropped int

	// CandidateRowsDropped counts candidate-round rows missing a critical
	// identifier or carrying a non-positive round.
	CandidateRowsDropped int

	// RoundRowsDropped counts round-summary rows missing a contest id or
	// carrying a non-positive round.
	RoundRowsDropped int
}

// Clean removes rows that cannot participate in normalization and
// standardizes contest dates. A row survives unless it lacks the
// identifiers that every downstream stage keys on; malformed numeric
// values were already coerced at load time and never cause drops.
func Clean(ds *domain.Dataset) CleanStats {
	var stats CleanStats

	seen := make(map[string]struct{}, len(ds.Contests))
	contests := ds.Contests[:0]
	for _, contest := range ds.Contests {
		if contest.ID == "" || contest.State == "" || contest.Office == "" {
			stats.ContestsDropped++
			continue
		}
		if _, dup := seen[contest.ID]; dup {
			stats.DuplicateContestsDropped++
			continue
		}
		seen[contest.ID] = struct{}{}
		contest.Date = NormalizeDate(contest.Date)
		contests = append(contests, contest)
	}
	ds.Contests = contests

	candidates := ds.Candidates[:0]
	for _, row := range ds.Candidates {
		if row.ContestID == "" || row.CandidateID == "" || row.Round <= 0 {
			stats.CandidateRowsDropped++
			continue
		}
		candidates = append(candidates, row)
	}
	ds.Candidates = candidates

	rounds := ds.Rounds[:0]
	for _, row := range ds.Rounds {
		if row.ContestID == "" || row.Round <= 0 {
			stats.RoundRowsDropped++
			continue
		}
		rounds = append(rounds, row)
	}
	ds.Rounds = rounds

	return stats
}
