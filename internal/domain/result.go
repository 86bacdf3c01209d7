package domain

import (
	"sort"
	"time"
)

// Issue records a single finding raised by a validation rule against a
// specific contest. The contest identifier is a structured field so
// downstream consumers never parse it out of message text.
type Issue struct {
	// ContestID is the contest the finding concerns. Empty only for
	// dataset-level findings that no single contest owns.
	ContestID string `json:"contest_id,omitempty"`

	// Message is the human-readable description of the finding.
	Message string `json:"message"`
}

// RuleResult is the outcome of one validation rule over a dataset.
type RuleResult struct {
	// RuleName identifies the rule that produced this result.
	RuleName string `json:"rule_name"`

	// Passed is false when the rule found hard violations. Soft findings
	// reduce Score without failing the rule.
	Passed bool `json:"passed"`

	// Score grades the dataset against this rule from 0 (pervasive
	// violations) to 100 (clean).
	Score float64 `json:"score"`

	// Issues lists the individual findings. Empty for a clean pass.
	Issues []Issue `json:"issues,omitempty"`
}

// ContestScore is the tier classification of a single contest: the review
// tier it requires and the anomaly flags that drove it.
type ContestScore struct {
	// ContestID is the contest being classified.
	ContestID string `json:"contest_id"`

	// Tier is the review tier, 0 (clean) to 3 (manual review).
	Tier int `json:"tier"`

	// Flags is the sorted, de-duplicated anomaly flag list.
	Flags []AnomalyFlag `json:"flags,omitempty"`
}

// FlagString returns the pipe-delimited rendering of the score's flags.
func (s ContestScore) FlagString() string { return JoinFlags(s.Flags) }

// Report is the full outcome of a validation run: every rule result, the
// aggregate score, and the contests needing attention.
type Report struct {
	// ID uniquely identifies this report (a UUID).
	ID string `json:"id"`

	// GeneratedAt records when the validation run completed.
	GeneratedAt time.Time `json:"generated_at"`

	// TotalContests counts contest rows examined.
	TotalContests int `json:"total_contests"`

	// TotalCandidateRows counts candidate-round rows examined.
	TotalCandidateRows int `json:"total_candidate_rows"`

	// TotalRoundRows counts round-summary rows examined.
	TotalRoundRows int `json:"total_round_rows"`

	// Results holds one entry per rule, in evaluation order.
	Results []RuleResult `json:"results"`

	// OverallScore is the unweighted arithmetic mean of rule scores.
	OverallScore float64 `json:"overall_score"`

	// ProblematicContests is the sorted union of contest identifiers
	// drawn from the issues of failed rules.
	ProblematicContests []string `json:"problematic_contests,omitempty"`

	// Scores holds the per-contest tier classifications, sorted by
	// contest identifier.
	Scores []ContestScore `json:"scores,omitempty"`
}

// Passed reports whether every rule in the report passed.
func (r *Report) Passed() bool {
	for _, result := range r.Results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// ProblematicFrom computes the sorted union of contest identifiers
// appearing in the issues of failed rule results.
func ProblematicFrom(results []RuleResult) []string {
	seen := make(map[string]struct{})
	for _, result := range results {
		if result.Passed {
			continue
		}
		for _, issue := range result.Issues {
			if issue.ContestID == "" {
				continue
			}
			seen[issue.ContestID] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MeanScore returns the unweighted arithmetic mean of the rule scores,
// or 0 when no results are present.
func MeanScore(results []RuleResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, result := range results {
		sum += result.Score
	}
	return sum / float64(len(results))
}
