// Package tabular reads and writes datasets as the CSV table families
// produced by upstream extraction: Elections_DF*, Candidates_DF*, and
// Rounds_DF* files under a directory. The reader tolerates loose values
// and ragged rows, failing only when a collection is missing outright or
// a file lacks the columns the engine keys on. The writer emits the
// cleaned tables plus the per-contest score files consumed by review
// tooling, and the combiner merges many jurisdictions' cleaned output
// into master tables.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/normalize"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// Collection file patterns. Extraction writes batch files
// (Elections_DF_batch_3.csv) and the cleaning stage writes single files
// (Elections_DF_cleaned.csv); the patterns match both so cleaned output
// can be re-read for validation.
const (
	electionsPattern  = "Elections_DF*.csv"
	candidatesPattern = "Candidates_DF*.csv"
	roundsPattern     = "Rounds_DF*.csv"
)

// scoredFileMarker identifies score-augmented election files, which the
// reader skips: they duplicate the cleaned elections rows and exist for
// review tooling, not as pipeline input.
const scoredFileMarker = "_with_scores"

// Required columns per collection. A file missing any of these cannot be
// keyed into the dataset and fails the whole load; every other column is
// optional and coerces leniently.
var (
	electionsRequired  = []string{"election_id", "state", "office"}
	candidatesRequired = []string{"election_id", "candidate_id", "round", "votes"}
	roundsRequired     = []string{"election_id", "round", "total_votes"}
)

var _ ports.DatasetReader = (*Reader)(nil)

// Reader loads a dataset from the CSV files under a directory.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a Reader. A nil logger disables logging.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// Read loads the three collections under dir, concatenating every file
// that matches a collection's pattern. Collections load concurrently;
// the first failure aborts the whole read.
func (r *Reader) Read(ctx context.Context, dir string) (*domain.Dataset, error) {
	dataset := &domain.Dataset{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		contests, err := readCollection(gctx, r.logger, dir, "elections", electionsPattern, electionsRequired, contestFromRecord)
		if err != nil {
			return err
		}
		dataset.Contests = contests
		return nil
	})
	g.Go(func() error {
		candidates, err := readCollection(gctx, r.logger, dir, "candidates", candidatesPattern, candidatesRequired, candidateFromRecord)
		if err != nil {
			return err
		}
		dataset.Candidates = candidates
		return nil
	})
	g.Go(func() error {
		rounds, err := readCollection(gctx, r.logger, dir, "rounds", roundsPattern, roundsRequired, roundFromRecord)
		if err != nil {
			return err
		}
		dataset.Rounds = rounds
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("dataset loaded",
		zap.String("dir", dir),
		zap.Int("contests", len(dataset.Contests)),
		zap.Int("candidate_rows", len(dataset.Candidates)),
		zap.Int("round_rows", len(dataset.Rounds)))
	return dataset, nil
}

// readCollection globs one collection's files under dir and parses them
// in name order, returning the concatenated rows.
func readCollection[T any](ctx context.Context, logger *zap.Logger, dir, collection, pattern string, required []string, build func(record) T) ([]T, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, ports.NewIOError(collection, dir, err)
	}
	files := matches[:0]
	for _, path := range matches {
		if strings.Contains(filepath.Base(path), scoredFileMarker) {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, ports.NewIOError(collection, dir, ports.ErrNoInputFiles)
	}

	var rows []T
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileRows, err := readFile(path, collection, required, build)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}

	logger.Debug("collection loaded",
		zap.String("collection", collection),
		zap.Int("files", len(files)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// readFile parses a single CSV file into collection rows. The header is
// matched case-insensitively and rows may carry fewer or more fields
// than the header names; absent fields read as empty strings.
func readFile[T any](path, collection string, required []string, build func(record) T) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ports.NewIOError(collection, path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ports.NewIOError(collection, path, ports.ErrEmptyHeader)
		}
		return nil, ports.NewIOError(collection, path, err)
	}

	index := indexHeader(header)
	if missing := missingColumns(index, required); len(missing) > 0 {
		return nil, domain.NewSchemaError(collection, missing)
	}

	var rows []T
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ports.NewIOError(collection, path, err)
		}
		rows = append(rows, build(record{fields: fields, index: index}))
	}
	return rows, nil
}

// record pairs one CSV row with its file's header index so builders can
// pull fields by column name regardless of column order.
type record struct {
	fields []string
	index  map[string]int
}

// field returns the named column's value, trimmed, or the empty string
// when the column is absent or the row is too short.
func (r record) field(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// has reports whether the file's header carries the named column.
func (r record) has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// indexHeader maps lower-cased, trimmed column names to their positions.
// The first occurrence of a repeated name wins.
func indexHeader(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}
	return index
}

func missingColumns(index map[string]int, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func contestFromRecord(rec record) domain.Contest {
	return domain.Contest{
		ID:             rec.field("election_id"),
		State:          rec.field("state"),
		Year:           normalize.CoerceInt(rec.field("year")),
		Jurisdiction:   rec.field("juris"),
		Office:         rec.field("office"),
		District:       rec.field("dist"),
		ElectionType:   rec.field("election_type"),
		PrimaryParty:   rec.field("prm_party"),
		CandidateCount: normalize.CoerceInt(rec.field("n_cands")),
		RoundCount:     normalize.CoerceInt(rec.field("n_rounds")),
		Date:           normalize.NormalizeDate(rec.field("date")),
		Level:          rec.field("level"),
	}
}

// candidateFromRecord accepts both raw extraction columns and cleaned
// output columns, so cleaned directories re-validate without a separate
// schema. Raw extracts report the source transfer under "transfer";
// cleaned files rename it "transfer_original" and add the reconstructed
// "transfer_calc" and derived "status" columns.
func candidateFromRecord(rec record) domain.CandidateRound {
	transfer := rec.field("transfer")
	if rec.has("transfer_original") {
		transfer = rec.field("transfer_original")
	}
	return domain.CandidateRound{
		ContestID:        rec.field("election_id"),
		CandidateID:      rec.field("candidate_id"),
		Name:             rec.field("name"),
		Round:            normalize.CoerceInt(rec.field("round")),
		Votes:            normalize.CoerceInt(rec.field("votes")),
		Percentage:       normalize.CoerceFloat(rec.field("percentage")),
		TransferOriginal: normalize.ParseTransfer(transfer),
		TransferCalc:     normalize.CoerceInt(rec.field("transfer_calc")),
		Status:           domain.CandidateStatus(rec.field("status")),
	}
}

func roundFromRecord(rec record) domain.RoundSummary {
	return domain.RoundSummary{
		ContestID:  rec.field("election_id"),
		Round:      normalize.CoerceInt(rec.field("round")),
		TotalVotes: normalize.CoerceInt(rec.field("total_votes")),
		Blanks:     normalize.CoerceInt(rec.field("blanks")),
		Exhausted:  normalize.CoerceInt(rec.field("exhausted")),
		Overvotes:  normalize.CoerceInt(rec.field("overvotes")),
	}
}
