package domain

import "sort"

// Dataset is the unit of work flowing through the pipeline: the three
// collections of one extracted election dataset, transformed together so
// cross-collection invariants can be checked.
//
// Pipeline stages mutate the Dataset in place. The engine is
// single-threaded; a Dataset must not be shared across goroutines while
// a stage is running.
type Dataset struct {
	// Contests holds one row per ranked-choice contest.
	Contests []Contest `json:"contests"`

	// Candidates holds the candidate-by-round tally rows.
	Candidates []CandidateRound `json:"candidates"`

	// Rounds holds per-round ballot accounting rows.
	Rounds []RoundSummary `json:"rounds"`
}

// ContestIDs returns the sorted set of contest identifiers present in the
// contests collection.
func (d *Dataset) ContestIDs() []string {
	ids := make([]string, 0, len(d.Contests))
	for i := range d.Contests {
		ids = append(ids, d.Contests[i].ID)
	}
	sort.Strings(ids)
	return ids
}

// ContestByID returns a pointer to the contest with the given identifier,
// or nil when absent.
func (d *Dataset) ContestByID(id string) *Contest {
	for i := range d.Contests {
		if d.Contests[i].ID == id {
			return &d.Contests[i]
		}
	}
	return nil
}

// CandidatesByContest groups candidate-round rows by contest identifier.
// The returned pointers alias the Dataset's backing array, so callers may
// mutate rows through them.
func (d *Dataset) CandidatesByContest() map[string][]*CandidateRound {
	byContest := make(map[string][]*CandidateRound)
	for i := range d.Candidates {
		row := &d.Candidates[i]
		byContest[row.ContestID] = append(byContest[row.ContestID], row)
	}
	return byContest
}

// RoundsByContest groups round-summary rows by contest identifier.
// The returned pointers alias the Dataset's backing array.
func (d *Dataset) RoundsByContest() map[string][]*RoundSummary {
	byContest := make(map[string][]*RoundSummary)
	for i := range d.Rounds {
		row := &d.Rounds[i]
		byContest[row.ContestID] = append(byContest[row.ContestID], row)
	}
	return byContest
}

// Empty reports whether the dataset holds no rows in any collection.
func (d *Dataset) Empty() bool {
	return len(d.Contests) == 0 && len(d.Candidates) == 0 && len(d.Rounds) == 0
}
