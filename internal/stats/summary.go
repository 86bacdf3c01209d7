// Package stats computes dataset-wide summary statistics: per-collection
// quality counts, numeric column profiles, and ranked-choice metrics.
// The output feeds operator review only; nothing here affects validation
// scores or tiers.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// Summary aggregates statistics over one dataset.
type Summary struct {
	// Collections holds one entry per table: elections, candidates,
	// rounds.
	Collections []CollectionStats

	// Metrics holds the ranked-choice specific aggregates.
	Metrics RCVMetrics
}

// CollectionStats describes the quality of one collection.
type CollectionStats struct {
	// Name is the collection name.
	Name string

	// Rows is the row count.
	Rows int

	// MissingValues counts empty string fields plus unset transfer
	// values, the typed-record equivalent of null cells.
	MissingValues int

	// DuplicateKeys counts rows beyond the first sharing a composite
	// key: contest ID for elections, (contest, candidate, round) for
	// candidates, (contest, round) for round summaries.
	DuplicateKeys int

	// Numeric profiles the collection's numeric columns.
	Numeric []NumericSummary
}

// NumericSummary profiles one numeric column.
type NumericSummary struct {
	Column string
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
}

// RCVMetrics holds aggregates specific to ranked-choice data.
type RCVMetrics struct {
	UniqueJurisdictions int
	UniqueOffices       int
	UniqueStates        int
	UniqueElectionTypes int

	// DateMin and DateMax bound the non-empty election dates. Normalized
	// dates are ISO formatted, so string ordering is date ordering.
	DateMin string
	DateMax string

	// ElectionsByYear counts contests per year, excluding year zero.
	ElectionsByYear map[int]int

	UniqueCandidates int
	VoteMin          int
	VoteMax          int
	VoteMean         float64

	MinRound int
	MaxRound int
}

// Summarize computes summary statistics for the dataset. A nil dataset
// yields an empty summary.
func Summarize(dataset *domain.Dataset) *Summary {
	if dataset == nil {
		return &Summary{}
	}
	return &Summary{
		Collections: []CollectionStats{
			contestStats(dataset.Contests),
			candidateStats(dataset.Candidates),
			roundStats(dataset.Rounds),
		},
		Metrics: rcvMetrics(dataset),
	}
}

func contestStats(contests []domain.Contest) CollectionStats {
	stats := CollectionStats{Name: "elections", Rows: len(contests)}
	keys := make(map[string]int, len(contests))
	var years, candidates, rounds []float64
	for _, c := range contests {
		keys[c.ID]++
		stats.MissingValues += countEmpty(
			c.ID, c.State, c.Jurisdiction, c.Office, c.District,
			c.ElectionType, c.PrimaryParty, c.Date, c.Level,
		)
		years = append(years, float64(c.Year))
		candidates = append(candidates, float64(c.CandidateCount))
		rounds = append(rounds, float64(c.RoundCount))
	}
	stats.DuplicateKeys = duplicateCount(keys)
	stats.Numeric = numericSummaries(map[string][]float64{
		"year":     years,
		"n_cands":  candidates,
		"n_rounds": rounds,
	})
	return stats
}

func candidateStats(candidates []domain.CandidateRound) CollectionStats {
	type cellKey struct {
		contest   string
		candidate string
		round     int
	}

	stats := CollectionStats{Name: "candidates", Rows: len(candidates)}
	keys := make(map[cellKey]int, len(candidates))
	var rounds, votes, percents, transfers []float64
	for _, c := range candidates {
		keys[cellKey{c.ContestID, c.CandidateID, c.Round}]++
		stats.MissingValues += countEmpty(c.ContestID, c.CandidateID, c.Name, string(c.Status))
		if c.TransferOriginal == nil {
			stats.MissingValues++
		}
		rounds = append(rounds, float64(c.Round))
		votes = append(votes, float64(c.Votes))
		percents = append(percents, c.Percentage)
		transfers = append(transfers, float64(c.TransferCalc))
	}
	stats.DuplicateKeys = duplicateCount(keys)
	stats.Numeric = numericSummaries(map[string][]float64{
		"round":         rounds,
		"votes":         votes,
		"percentage":    percents,
		"transfer_calc": transfers,
	})
	return stats
}

func roundStats(rounds []domain.RoundSummary) CollectionStats {
	type roundKey struct {
		contest string
		round   int
	}

	stats := CollectionStats{Name: "rounds", Rows: len(rounds)}
	keys := make(map[roundKey]int, len(rounds))
	var ordinals, totals, blanks, exhausted, overvotes []float64
	for _, r := range rounds {
		keys[roundKey{r.ContestID, r.Round}]++
		stats.MissingValues += countEmpty(r.ContestID)
		ordinals = append(ordinals, float64(r.Round))
		totals = append(totals, float64(r.TotalVotes))
		blanks = append(blanks, float64(r.Blanks))
		exhausted = append(exhausted, float64(r.Exhausted))
		overvotes = append(overvotes, float64(r.Overvotes))
	}
	stats.DuplicateKeys = duplicateCount(keys)
	stats.Numeric = numericSummaries(map[string][]float64{
		"round":       ordinals,
		"total_votes": totals,
		"blanks":      blanks,
		"exhausted":   exhausted,
		"overvotes":   overvotes,
	})
	return stats
}

func rcvMetrics(dataset *domain.Dataset) RCVMetrics {
	metrics := RCVMetrics{ElectionsByYear: make(map[int]int)}

	jurisdictions := make(map[string]struct{})
	offices := make(map[string]struct{})
	states := make(map[string]struct{})
	types := make(map[string]struct{})
	for _, c := range dataset.Contests {
		addNonEmpty(jurisdictions, c.Jurisdiction)
		addNonEmpty(offices, c.Office)
		addNonEmpty(states, c.State)
		addNonEmpty(types, c.ElectionType)
		if c.Date != "" {
			if metrics.DateMin == "" || c.Date < metrics.DateMin {
				metrics.DateMin = c.Date
			}
			if c.Date > metrics.DateMax {
				metrics.DateMax = c.Date
			}
		}
		if c.Year != 0 {
			metrics.ElectionsByYear[c.Year]++
		}
	}
	metrics.UniqueJurisdictions = len(jurisdictions)
	metrics.UniqueOffices = len(offices)
	metrics.UniqueStates = len(states)
	metrics.UniqueElectionTypes = len(types)

	candidateIDs := make(map[string]struct{})
	voteSum := 0
	for i, c := range dataset.Candidates {
		addNonEmpty(candidateIDs, c.CandidateID)
		voteSum += c.Votes
		if i == 0 || c.Votes < metrics.VoteMin {
			metrics.VoteMin = c.Votes
		}
		if c.Votes > metrics.VoteMax {
			metrics.VoteMax = c.Votes
		}
	}
	metrics.UniqueCandidates = len(candidateIDs)
	if len(dataset.Candidates) > 0 {
		metrics.VoteMean = float64(voteSum) / float64(len(dataset.Candidates))
	}

	for i, r := range dataset.Rounds {
		if i == 0 || r.Round < metrics.MinRound {
			metrics.MinRound = r.Round
		}
		if r.Round > metrics.MaxRound {
			metrics.MaxRound = r.Round
		}
	}
	return metrics
}

// Render formats the summary as the text block printed by the stats
// command.
func (s *Summary) Render() string {
	var b strings.Builder

	fmt.Fprintln(&b, "Dataset Summary")
	fmt.Fprintln(&b, strings.Repeat("=", 50))
	for _, c := range s.Collections {
		fmt.Fprintf(&b, "\n%s: %d rows, %d missing values, %d duplicate keys\n",
			c.Name, c.Rows, c.MissingValues, c.DuplicateKeys)
		for _, n := range c.Numeric {
			fmt.Fprintf(&b, "  %s: mean=%.2f std=%.2f min=%.2f max=%.2f\n",
				n.Column, n.Mean, n.Std, n.Min, n.Max)
		}
	}

	m := s.Metrics
	fmt.Fprintln(&b, "\nRCV Metrics")
	fmt.Fprintln(&b, strings.Repeat("-", 20))
	fmt.Fprintf(&b, "  Unique Jurisdictions: %d\n", m.UniqueJurisdictions)
	fmt.Fprintf(&b, "  Unique Offices: %d\n", m.UniqueOffices)
	fmt.Fprintf(&b, "  Unique States: %d\n", m.UniqueStates)
	fmt.Fprintf(&b, "  Unique Election Types: %d\n", m.UniqueElectionTypes)
	if m.DateMin != "" {
		fmt.Fprintf(&b, "  Date Range: %s to %s\n", m.DateMin, m.DateMax)
	}
	if len(m.ElectionsByYear) > 0 {
		years := make([]int, 0, len(m.ElectionsByYear))
		for year := range m.ElectionsByYear {
			years = append(years, year)
		}
		sort.Ints(years)
		fmt.Fprintln(&b, "  Elections by Year:")
		for _, year := range years {
			fmt.Fprintf(&b, "    %d: %d\n", year, m.ElectionsByYear[year])
		}
	}
	fmt.Fprintf(&b, "  Unique Candidates: %d\n", m.UniqueCandidates)
	fmt.Fprintf(&b, "  Votes: min=%d max=%d mean=%.2f\n", m.VoteMin, m.VoteMax, m.VoteMean)
	fmt.Fprintf(&b, "  Rounds: min=%d max=%d\n", m.MinRound, m.MaxRound)
	return b.String()
}

// numericSummaries profiles each named column, skipping empty ones, and
// returns the profiles sorted by column name.
func numericSummaries(columns map[string][]float64) []NumericSummary {
	summaries := make([]NumericSummary, 0, len(columns))
	for name, values := range columns {
		if len(values) == 0 {
			continue
		}
		summaries = append(summaries, summarizeColumn(name, values))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Column < summaries[j].Column })
	return summaries
}

// summarizeColumn computes mean, sample standard deviation, min, and max.
// A single observation has standard deviation 0.
func summarizeColumn(name string, values []float64) NumericSummary {
	s := NumericSummary{Column: name, Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	if len(values) > 1 {
		sq := 0.0
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}
		s.Std = math.Sqrt(sq / float64(len(values)-1))
	}
	return s
}

func countEmpty(values ...string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			n++
		}
	}
	return n
}

func duplicateCount[K comparable](keys map[K]int) int {
	dups := 0
	for _, n := range keys {
		if n > 1 {
			dups += n - 1
		}
	}
	return dups
}

func addNonEmpty(set map[string]struct{}, value string) {
	if value != "" {
		set[value] = struct{}{}
	}
}
