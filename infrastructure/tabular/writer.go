package tabular

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// Cleaned output file names. The writer emits all five on every run; the
// combiner and the CLI reference them by these names.
const (
	ElectionsCleanedFile  = "Elections_DF_cleaned.csv"
	CandidatesCleanedFile = "Candidates_DF_cleaned.csv"
	RoundsCleanedFile     = "Rounds_DF_cleaned.csv"
	ScoresFile            = "election_validation_scores.csv"
	ElectionsScoredFile   = "Elections_DF_cleaned_with_scores.csv"
)

var (
	electionsHeader = []string{
		"election_id", "year", "state", "office", "dist", "juris",
		"election_type", "prm_party", "n_cands", "n_rounds", "date", "level",
	}
	candidatesHeader = []string{
		"election_id", "candidate_id", "name", "round", "votes",
		"percentage", "transfer_original", "transfer_calc", "status",
	}
	roundsHeader = []string{
		"election_id", "round", "total_votes", "blanks", "exhausted", "overvotes",
	}
	scoresHeader = []string{"election_id", "tier", "flags"}
)

var _ ports.DatasetWriter = (*Writer)(nil)

// Writer persists a dataset and its tier scores as cleaned CSV files.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a Writer. A nil logger disables logging.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// Write stores the dataset's three collections, the standalone score
// table, and the score-augmented elections table under dir, creating the
// directory as needed and overwriting prior output. Contests without a
// score entry record tier 0 with no flags in the augmented table.
func (w *Writer) Write(ctx context.Context, dir string, dataset *domain.Dataset, scores []domain.ContestScore) error {
	if dataset == nil {
		return domain.ErrNilDataset
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.NewIOError("dataset", dir, err)
	}

	files := []struct {
		collection string
		name       string
		header     []string
		rows       [][]string
	}{
		{"elections", ElectionsCleanedFile, electionsHeader, electionRows(dataset.Contests)},
		{"candidates", CandidatesCleanedFile, candidatesHeader, candidateRows(dataset.Candidates)},
		{"rounds", RoundsCleanedFile, roundsHeader, roundRows(dataset.Rounds)},
		{"scores", ScoresFile, scoresHeader, scoreRows(scores)},
		{"scores", ElectionsScoredFile, scoredElectionsHeader(), scoredElectionRows(dataset.Contests, scores)},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, f.name)
		if err := writeCSV(path, f.header, f.rows); err != nil {
			return ports.NewIOError(f.collection, path, err)
		}
	}

	w.logger.Info("cleaned dataset written",
		zap.String("dir", dir),
		zap.Int("contests", len(dataset.Contests)),
		zap.Int("candidate_rows", len(dataset.Candidates)),
		zap.Int("round_rows", len(dataset.Rounds)),
		zap.Int("scored_contests", len(scores)))
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	cw.Write(header)
	for _, row := range rows {
		cw.Write(row)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func electionRows(contests []domain.Contest) [][]string {
	rows := make([][]string, 0, len(contests))
	for _, c := range contests {
		rows = append(rows, []string{
			c.ID,
			strconv.Itoa(c.Year),
			c.State,
			c.Office,
			c.District,
			c.Jurisdiction,
			c.ElectionType,
			c.PrimaryParty,
			strconv.Itoa(c.CandidateCount),
			strconv.Itoa(c.RoundCount),
			c.Date,
			c.Level,
		})
	}
	return rows
}

func candidateRows(candidates []domain.CandidateRound) [][]string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		transfer := ""
		if c.TransferOriginal != nil {
			transfer = strconv.Itoa(*c.TransferOriginal)
		}
		rows = append(rows, []string{
			c.ContestID,
			c.CandidateID,
			c.Name,
			strconv.Itoa(c.Round),
			strconv.Itoa(c.Votes),
			formatFloat(c.Percentage),
			transfer,
			strconv.Itoa(c.TransferCalc),
			string(c.Status),
		})
	}
	return rows
}

func roundRows(rounds []domain.RoundSummary) [][]string {
	rows := make([][]string, 0, len(rounds))
	for _, r := range rounds {
		rows = append(rows, []string{
			r.ContestID,
			strconv.Itoa(r.Round),
			strconv.Itoa(r.TotalVotes),
			strconv.Itoa(r.Blanks),
			strconv.Itoa(r.Exhausted),
			strconv.Itoa(r.Overvotes),
		})
	}
	return rows
}

func scoreRows(scores []domain.ContestScore) [][]string {
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{s.ContestID, strconv.Itoa(s.Tier), s.FlagString()})
	}
	return rows
}

// scoredElectionsHeader appends the validation columns to the elections
// header, mirroring the merged review table produced after scoring.
func scoredElectionsHeader() []string {
	header := make([]string, 0, len(electionsHeader)+2)
	header = append(header, electionsHeader...)
	return append(header, "validation_tier", "validation_flags")
}

func scoredElectionRows(contests []domain.Contest, scores []domain.ContestScore) [][]string {
	byContest := make(map[string]domain.ContestScore, len(scores))
	for _, s := range scores {
		byContest[s.ContestID] = s
	}
	base := electionRows(contests)
	rows := make([][]string, 0, len(base))
	for i, row := range base {
		score := byContest[contests[i].ID]
		rows = append(rows, append(row, strconv.Itoa(score.Tier), score.FlagString()))
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
