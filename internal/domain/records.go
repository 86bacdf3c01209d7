package domain

// CandidateStatus describes a candidate's standing in a single tabulation
// round after status derivation.
type CandidateStatus string

// Candidate statuses assigned during normalization.
const (
	// StatusElected marks a candidate holding the maximum vote count in the
	// final tabulation round. Ties produce multiple Elected candidates.
	StatusElected CandidateStatus = "Elected"

	// StatusEliminated marks a candidate who is out of the running: any
	// non-winner in the final round, or a zero-vote candidate earlier.
	StatusEliminated CandidateStatus = "Eliminated"

	// StatusContinuing marks a candidate with votes in a non-final round.
	StatusContinuing CandidateStatus = "Continuing"
)

// Contest represents one ranked-choice election: a single office decided
// over one or more tabulation rounds. Contest rows originate from the
// elections table of an extracted dataset.
type Contest struct {
	// ID uniquely identifies the contest. After canonicalization this is
	// the underscore-joined token identifier; before it, whatever the
	// extraction produced.
	ID string `json:"contest_id"`

	// State is the two-letter state code (e.g. "ME", "NY").
	State string `json:"state"`

	// Year is the election year. Zero when the source value was missing
	// or unparseable.
	Year int `json:"year"`

	// Jurisdiction names the administering locality (e.g. "Portland",
	// "St. Louis City").
	Jurisdiction string `json:"jurisdiction"`

	// Office is the contested office as extracted (e.g. "Mayor",
	// "City Council").
	Office string `json:"office"`

	// District identifies the seat within the office, when districted.
	// May be a number, "At Large", or empty.
	District string `json:"district"`

	// ElectionType is the contest category: general, primary, special, or
	// anything else the source provided.
	ElectionType string `json:"election_type"`

	// PrimaryParty is the party holding the primary, when ElectionType is
	// a primary. Empty otherwise.
	PrimaryParty string `json:"primary_party"`

	// CandidateCount is the number of distinct candidates appearing in the
	// reconstructed grid. Recomputed during normalization.
	CandidateCount int `json:"candidate_count"`

	// RoundCount is the number of tabulation rounds in the reconstructed
	// grid. Recomputed during normalization.
	RoundCount int `json:"round_count"`

	// Date is the election date normalized to YYYY-MM-DD when parseable,
	// otherwise the raw extracted text.
	Date string `json:"date"`

	// Level is the government level of the contest (e.g. "city", "state").
	Level string `json:"level"`
}

// CandidateRound is one cell of the candidate-by-round tally: a single
// candidate's standing in a single round of a contest. The grid
// reconstructor guarantees one row per candidate per round.
type CandidateRound struct {
	// ContestID links the row to its Contest.
	ContestID string `json:"contest_id"`

	// CandidateID identifies the candidate within the contest.
	CandidateID string `json:"candidate_id"`

	// Name is the candidate's display name. Filled forward and backward
	// across rounds during grid reconstruction.
	Name string `json:"name"`

	// Round is the 1-based tabulation round.
	Round int `json:"round"`

	// Votes is the candidate's tally in this round. Unparseable source
	// values coerce to 0.
	Votes int `json:"votes"`

	// Percentage is the candidate's vote share in this round, when the
	// source reported one.
	Percentage float64 `json:"percentage"`

	// TransferOriginal is the transfer value reported by the source,
	// or nil when the source supplied none. Kept for comparison only;
	// downstream logic uses TransferCalc.
	TransferOriginal *int `json:"transfer_original,omitempty"`

	// TransferCalc is the reconstructed transfer: votes in this round
	// minus votes in the previous round. Always 0 in round 1.
	TransferCalc int `json:"transfer_calc"`

	// Status is the derived candidate standing for this round.
	// Empty until status derivation runs.
	Status CandidateStatus `json:"status,omitempty"`
}

// RoundSummary captures contest-level ballot accounting for one round,
// as reported by the source.
type RoundSummary struct {
	// ContestID links the row to its Contest.
	ContestID string `json:"contest_id"`

	// Round is the 1-based tabulation round.
	Round int `json:"round"`

	// TotalVotes is the total of candidate votes the source reported for
	// the round.
	TotalVotes int `json:"total_votes"`

	// Blanks counts ballots left blank for this contest in this round.
	Blanks int `json:"blanks"`

	// Exhausted counts ballots with no remaining ranked candidate.
	Exhausted int `json:"exhausted"`

	// Overvotes counts ballots invalidated by ranking too many candidates.
	Overvotes int `json:"overvotes"`
}
