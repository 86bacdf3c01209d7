// Package normalize implements the transformation stages that turn raw
// extracted election records into a dense, canonically-identified,
// status-labeled dataset: cleaning, grid reconstruction, identifier
// canonicalization, and candidate status derivation.
//
// Stages mutate the dataset in place and never fail on malformed values;
// the coercion policies here resolve bad input locally so a single noisy
// cell cannot abort a run.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// CoerceInt converts loose numeric text to an int. Plain integers parse
// directly; decimal text is truncated toward zero; anything else,
// including the empty string, coerces to 0.
func CoerceInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// CoerceFloat converts loose numeric text to a float64, tolerating a
// trailing percent sign. Unparseable values coerce to 0.
func CoerceFloat(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return 0
}

// ParseTransfer interprets a source-reported transfer value. Sources
// write transfers as "+120", "-45", bare integers, or leave them blank.
// Blank and unparseable values return nil (no value supplied) so a
// missing transfer is distinguishable from an explicit zero.
func ParseTransfer(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// strconv.Atoi accepts a leading sign, covering "+120" and "-45".
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}

// dateLayouts are tried in order when normalizing election dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05",
}

// NormalizeDate renders a date string as YYYY-MM-DD when it matches a
// known layout, otherwise returns the input unchanged. Dates never block
// processing; an odd format simply survives as raw text.
func NormalizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return trimmed
}
