package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// combineTarget pairs one cleaned file name with its combined output.
type combineTarget struct {
	collection string
	input      string
	output     string
}

var combineTargets = []combineTarget{
	{"elections", ElectionsCleanedFile, "Elections_DF_cleaned_combined.csv"},
	{"candidates", CandidatesCleanedFile, "Candidates_DF_cleaned_combined.csv"},
	{"rounds", RoundsCleanedFile, "Rounds_DF_cleaned_combined.csv"},
	{"scores", ElectionsScoredFile, "Elections_DF_cleaned_with_scores_combined.csv"},
}

// CombineStats summarizes one Combine run.
type CombineStats struct {
	// Jurisdictions counts the directories whose cleaned output was merged.
	Jurisdictions int

	// Skipped lists the directories left out because cleaned files were
	// missing or unreadable.
	Skipped []string

	// RowsWritten maps each combined output file to its row count after
	// duplicate removal.
	RowsWritten map[string]int
}

// Combiner merges the cleaned output of many jurisdiction directories
// into master CSV tables.
type Combiner struct {
	logger *zap.Logger
}

// NewCombiner creates a Combiner. A nil logger disables logging.
func NewCombiner(logger *zap.Logger) *Combiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Combiner{logger: logger}
}

// Combine merges every jurisdiction directory under root matching pattern
// (empty means "*") into four master CSVs in outDir. Each jurisdiction
// directory must hold a cleaned/ subdirectory with all four cleaned
// files; directories missing any are skipped and logged, never fatal.
//
// Rows gain a leading source_key column naming their jurisdiction,
// columns are unioned across jurisdictions with absent values left empty,
// and exact duplicate rows are dropped keeping the first occurrence.
func (c *Combiner) Combine(ctx context.Context, root, outDir, pattern string) (*CombineStats, error) {
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad jurisdiction pattern %q: %w", pattern, err)
	}
	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no jurisdiction directories under %s match %q", root, pattern)
	}

	stats := &CombineStats{RowsWritten: make(map[string]int, len(combineTargets))}
	parts := make(map[string][]table, len(combineTargets))

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sourceKey := filepath.Base(dir)

		loaded, problems := loadJurisdiction(filepath.Join(dir, "cleaned"))
		if len(problems) > 0 {
			c.logger.Warn("skipping jurisdiction with incomplete cleaned output",
				zap.String("jurisdiction", sourceKey),
				zap.Strings("missing", problems))
			stats.Skipped = append(stats.Skipped, sourceKey)
			continue
		}
		for name, t := range loaded {
			t.source = sourceKey
			parts[name] = append(parts[name], t)
		}
		stats.Jurisdictions++
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, ports.NewIOError("combined", outDir, err)
	}
	for _, target := range combineTargets {
		tables := parts[target.input]
		if len(tables) == 0 {
			continue
		}
		header, rows := mergeTables(tables)
		path := filepath.Join(outDir, target.output)
		if err := writeCSV(path, header, rows); err != nil {
			return nil, ports.NewIOError(target.collection, path, err)
		}
		stats.RowsWritten[target.output] = len(rows)
		c.logger.Info("combined table written",
			zap.String("file", target.output),
			zap.Int("rows", len(rows)),
			zap.Int("jurisdictions", len(tables)))
	}
	return stats, nil
}

// table is one cleaned CSV held in memory during combination.
type table struct {
	source string
	header []string
	rows   [][]string
}

// loadJurisdiction reads all four cleaned files from dir. Any file that
// is absent or unreadable lands in the returned problem list, in which
// case the jurisdiction is skipped as a unit.
func loadJurisdiction(dir string) (map[string]table, []string) {
	loaded := make(map[string]table, len(combineTargets))
	var problems []string
	for _, target := range combineTargets {
		header, rows, err := readTable(filepath.Join(dir, target.input))
		if err != nil {
			problems = append(problems, target.input)
			continue
		}
		loaded[target.input] = table{header: header, rows: rows}
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return loaded, nil
}

func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ports.ErrEmptyHeader
	}
	return records[0], records[1:], nil
}

// mergeTables concatenates jurisdiction tables under the union of their
// columns in first-seen order, prefixes every row with its source_key,
// and drops exact duplicate rows.
func mergeTables(tables []table) ([]string, [][]string) {
	header := []string{"source_key"}
	position := map[string]int{}
	for _, t := range tables {
		for _, name := range t.header {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" || key == "source_key" {
				continue
			}
			if _, ok := position[key]; !ok {
				position[key] = len(header)
				header = append(header, key)
			}
		}
	}

	var rows [][]string
	seen := make(map[string]struct{})
	for _, t := range tables {
		index := indexHeader(t.header)
		for _, fields := range t.rows {
			row := make([]string, len(header))
			row[0] = t.source
			for name, src := range index {
				if dst, ok := position[name]; ok && src < len(fields) {
					row[dst] = fields[src]
				}
			}
			key := strings.Join(row, "\x1f")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, row)
		}
	}
	return header, rows
}
