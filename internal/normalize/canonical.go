package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// validate is the shared validator instance for normalize configurations.
var validate = validator.New()

var (
	// foldCaser is a package-level Unicode case folder for performance.
	// This avoids creating a new caser for each synonym lookup.
	foldCaser = cases.Fold()

	// titleCaser title-cases jurisdiction words before slugging.
	titleCaser = cases.Title(language.English)
)

// synonym pairs a source label with its canonical slug. Lookup order is
// significant: fuzzy fallback resolves distance ties by table position.
type synonym struct {
	label string
	slug  string
}

// officeSynonyms maps the office labels observed in source exports to
// canonical office slugs.
var officeSynonyms = []synonym{
	{"U.S. House", "US_House"},
	{"U.S. Senator", "US_Senate"},
	{"Senate", "State_Senate"},
	{"House", "State_House"},
	{"City Council", "Council"},
	{"Council Member", "Council"},
	{"Mayor", "Mayor"},
	{"Governor", "Governor"},
	{"District Attorney", "DistrictAttorney"},
	{"School Board", "SchoolBoard"},
	{"Board of Education", "BoardOfEducation"},
}

// partySynonyms maps party labels to their three-letter abbreviations.
var partySynonyms = []synonym{
	{"Democratic", "DEM"},
	{"Republican", "REP"},
}

// CanonicalizerConfig defines the configuration parameters for the
// Canonicalizer. All fields are validated during construction.
type CanonicalizerConfig struct {
	// FuzzyMatching enables a bounded Levenshtein fallback for office and
	// party labels that miss the synonym tables, absorbing extraction
	// typos such as "U.S. Huose".
	FuzzyMatching bool `yaml:"fuzzy_matching" json:"fuzzy_matching"`

	// MaxDistance bounds the edit distance the fuzzy fallback accepts.
	// Ignored when FuzzyMatching is false.
	MaxDistance int `yaml:"max_distance" json:"max_distance" validate:"min=0,max=5"`
}

// DefaultCanonicalizerConfig returns the canonicalizer configuration used
// when none is supplied: fuzzy matching on with an edit distance of 2.
func DefaultCanonicalizerConfig() CanonicalizerConfig {
	return CanonicalizerConfig{
		FuzzyMatching: true,
		MaxDistance:   2,
	}
}

// Canonicalizer rewrites contest identifiers into the deterministic
// canonical form and propagates the mapping to every record collection.
//
// The canonical id is the token sequence
// [state, year, typeAbbrev, jurisdictionSlug, districtSlug, officeSlug]
// joined by underscores, with a party abbreviation appended for primaries.
// Canonicalization never fails; malformed metadata degrades to best-effort
// slugs rather than aborting the contest.
type Canonicalizer struct {
	config CanonicalizerConfig
}

// NewCanonicalizer creates a Canonicalizer with the given configuration.
// Returns an error if configuration validation fails.
func NewCanonicalizer(config CanonicalizerConfig) (*Canonicalizer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &Canonicalizer{config: config}, nil
}

// CanonicalStats reports the outcome of an id rewrite pass.
type CanonicalStats struct {
	// Mapping records every old contest id and the canonical id that
	// replaced it.
	Mapping map[string]string

	// ContestsMerged counts contests dropped because their canonical id
	// collided with an earlier contest's.
	ContestsMerged int

	// CandidateRowsDropped counts candidate rows whose contest id had no
	// mapping entry.
	CandidateRowsDropped int

	// RoundRowsDropped counts round summaries whose contest id had no
	// mapping entry.
	RoundRowsDropped int
}

// Canonicalize rewrites every contest id in the dataset to canonical form
// and remaps candidate and round rows to match. Rows referencing contest
// ids absent from the Contest collection are dropped silently; the
// identifier-consistency rule surfaces such gaps before this runs.
func (c *Canonicalizer) Canonicalize(ds *domain.Dataset) CanonicalStats {
	stats := CanonicalStats{Mapping: make(map[string]string, len(ds.Contests))}

	seen := make(map[string]bool, len(ds.Contests))
	contests := ds.Contests[:0]
	for i := range ds.Contests {
		contest := ds.Contests[i]
		newID := c.BuildID(&contest)
		stats.Mapping[contest.ID] = newID
		if seen[newID] {
			stats.ContestsMerged++
			continue
		}
		seen[newID] = true
		contest.ID = newID
		contests = append(contests, contest)
	}
	ds.Contests = contests

	candidates := ds.Candidates[:0]
	for _, row := range ds.Candidates {
		newID, ok := stats.Mapping[row.ContestID]
		if !ok {
			stats.CandidateRowsDropped++
			continue
		}
		row.ContestID = newID
		candidates = append(candidates, row)
	}
	ds.Candidates = candidates

	rounds := ds.Rounds[:0]
	for _, row := range ds.Rounds {
		newID, ok := stats.Mapping[row.ContestID]
		if !ok {
			stats.RoundRowsDropped++
			continue
		}
		row.ContestID = newID
		rounds = append(rounds, row)
	}
	ds.Rounds = rounds

	return stats
}

// BuildID derives the canonical contest id from contest metadata without
// mutating the contest.
func (c *Canonicalizer) BuildID(contest *domain.Contest) string {
	parts := []string{
		strings.TrimSpace(contest.State),
		strconv.Itoa(contest.Year),
		electionTypeAbbrev(contest.ElectionType),
		jurisdictionSlug(contest.Jurisdiction),
		districtSlug(contest.District),
		c.officeSlug(contest.Office),
	}
	if strings.EqualFold(strings.TrimSpace(contest.ElectionType), "primary") {
		if party := c.partyAbbrev(contest.PrimaryParty); party != "" {
			parts = append(parts, party)
		}
	}
	return strings.Join(parts, "_")
}

func electionTypeAbbrev(electionType string) string {
	switch strings.ToLower(strings.TrimSpace(electionType)) {
	case "general":
		return "G"
	case "primary":
		return "P"
	case "special":
		return "S"
	default:
		return "X"
	}
}

// jurisdictionSlug strips punctuation, title-cases the remaining words,
// and removes the spaces between them: "St. Louis City" -> "StLouisCity".
func jurisdictionSlug(jurisdiction string) string {
	var b strings.Builder
	for _, r := range jurisdiction {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(titleCaser.String(b.String()))
	return strings.Join(words, "")
}

func districtSlug(district string) string {
	district = strings.TrimSpace(district)
	if strings.EqualFold(district, "at_large") {
		return "At_Large"
	}
	if n, err := strconv.Atoi(district); err == nil {
		return fmt.Sprintf("%02d", n)
	}
	for len(district) < 2 {
		district = "0" + district
	}
	return district
}

func (c *Canonicalizer) officeSlug(office string) string {
	office = strings.TrimSpace(office)
	if slug, ok := c.lookupSynonym(office, officeSynonyms); ok {
		return slug
	}
	return strings.Join(strings.Fields(office), "")
}

func (c *Canonicalizer) partyAbbrev(party string) string {
	party = strings.TrimSpace(party)
	if party == "" {
		return ""
	}
	if abbrev, ok := c.lookupSynonym(party, partySynonyms); ok {
		return abbrev
	}
	upper := strings.ToUpper(party)
	if len(upper) > 3 {
		upper = upper[:3]
	}
	return upper
}

// lookupSynonym resolves a label against a synonym table: exact match
// first, then case-folded bounded Levenshtein when fuzzy matching is
// enabled. Distance ties resolve to the earliest table entry.
func (c *Canonicalizer) lookupSynonym(label string, table []synonym) (string, bool) {
	for _, entry := range table {
		if entry.label == label {
			return entry.slug, true
		}
	}
	if !c.config.FuzzyMatching || label == "" {
		return "", false
	}

	folded := foldCaser.String(label)
	best := -1
	bestDistance := c.config.MaxDistance + 1
	for i, entry := range table {
		distance := levenshtein.ComputeDistance(folded, foldCaser.String(entry.label))
		if distance < bestDistance {
			bestDistance = distance
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return table[best].slug, true
}
