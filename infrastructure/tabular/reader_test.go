package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jordanholbrook/rcvkit/internal/domain"
	"github.com/jordanholbrook/rcvkit/internal/ports"
)

const rawElections = `election_id,year,state,office,dist,juris,election_type,prm_party,n_cands,n_rounds,date,level,source_file
me-portland-mayor,2026,ME,Mayor,1,Portland,general,,2,2,11/03/2026,city,portland.pdf
`

const rawCandidates = `election_id,candidate_id,name,round,votes,percentage,transfer,source_file
me-portland-mayor,alice,Alice Chen,1,60,60.0,,portland.pdf
me-portland-mayor,bob,Bob Ortiz,1,40,40.0,,portland.pdf
me-portland-mayor,alice,Alice Chen,2,80,80.0,+20,portland.pdf
me-portland-mayor,bob,Bob Ortiz,2,20,20.0,-20,portland.pdf
`

const rawRounds = `election_id,round,total_votes,exhausted,overvotes,source_file
me-portland-mayor,1,100,0,0,portland.pdf
me-portland-mayor,2,100,0,0,portland.pdf
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReader_Read_RawExtract(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF_batch_1.csv", rawElections)
	writeFile(t, dir, "Candidates_DF_batch_1.csv", rawCandidates)
	writeFile(t, dir, "Rounds_DF_batch_1.csv", rawRounds)

	ds, err := NewReader(zap.NewNop()).Read(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, ds.Contests, 1)
	contest := ds.Contests[0]
	assert.Equal(t, "me-portland-mayor", contest.ID)
	assert.Equal(t, "ME", contest.State)
	assert.Equal(t, 2026, contest.Year)
	assert.Equal(t, "Portland", contest.Jurisdiction)
	assert.Equal(t, "Mayor", contest.Office)
	assert.Equal(t, "1", contest.District)
	assert.Equal(t, "general", contest.ElectionType)
	assert.Empty(t, contest.PrimaryParty)
	assert.Equal(t, 2, contest.CandidateCount)
	assert.Equal(t, 2, contest.RoundCount)
	assert.Equal(t, "2026-11-03", contest.Date, "dates normalize to ISO form")
	assert.Equal(t, "city", contest.Level)

	require.Len(t, ds.Candidates, 4)
	first := ds.Candidates[0]
	assert.Equal(t, "alice", first.CandidateID)
	assert.Equal(t, "Alice Chen", first.Name)
	assert.Equal(t, 1, first.Round)
	assert.Equal(t, 60, first.Votes)
	assert.InDelta(t, 60.0, first.Percentage, 1e-9)
	assert.Nil(t, first.TransferOriginal, "blank transfers stay unset")
	assert.Empty(t, first.Status)

	third := ds.Candidates[2]
	require.NotNil(t, third.TransferOriginal)
	assert.Equal(t, 20, *third.TransferOriginal)

	fourth := ds.Candidates[3]
	require.NotNil(t, fourth.TransferOriginal)
	assert.Equal(t, -20, *fourth.TransferOriginal)

	require.Len(t, ds.Rounds, 2)
	assert.Equal(t, 100, ds.Rounds[0].TotalVotes)
	assert.Zero(t, ds.Rounds[0].Blanks, "absent optional columns coerce to zero")
}

func TestReader_Read_CombinesBatchFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF_batch_1.csv", rawElections)
	writeFile(t, dir, "Elections_DF_batch_2.csv", "election_id,state,office\nak-anchorage-mayor,AK,Mayor\n")
	writeFile(t, dir, "Candidates_DF_batch_1.csv", rawCandidates)
	writeFile(t, dir, "Rounds_DF_batch_1.csv", rawRounds)

	ds, err := NewReader(nil).Read(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, ds.Contests, 2)
	assert.ElementsMatch(t, []string{"me-portland-mayor", "ak-anchorage-mayor"}, ds.ContestIDs())
}

func TestReader_Read_CleanedColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF_cleaned.csv", rawElections)
	writeFile(t, dir, "Candidates_DF_cleaned.csv",
		"election_id,candidate_id,name,round,votes,percentage,transfer_original,transfer_calc,status\n"+
			"me-portland-mayor,alice,Alice Chen,2,80,80,20,20,Elected\n")
	writeFile(t, dir, "Rounds_DF_cleaned.csv",
		"election_id,round,total_votes,blanks,exhausted,overvotes\n"+
			"me-portland-mayor,2,100,1,2,3\n")

	ds, err := NewReader(nil).Read(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, ds.Candidates, 1)
	row := ds.Candidates[0]
	require.NotNil(t, row.TransferOriginal)
	assert.Equal(t, 20, *row.TransferOriginal)
	assert.Equal(t, 20, row.TransferCalc)
	assert.Equal(t, domain.StatusElected, row.Status)

	require.Len(t, ds.Rounds, 1)
	assert.Equal(t, 1, ds.Rounds[0].Blanks)
	assert.Equal(t, 2, ds.Rounds[0].Exhausted)
	assert.Equal(t, 3, ds.Rounds[0].Overvotes)
}

func TestReader_Read_SkipsScoredElections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF_cleaned.csv", rawElections)
	writeFile(t, dir, "Elections_DF_cleaned_with_scores.csv", rawElections)
	writeFile(t, dir, "Candidates_DF_cleaned.csv", rawCandidates)
	writeFile(t, dir, "Rounds_DF_cleaned.csv", rawRounds)

	ds, err := NewReader(nil).Read(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, ds.Contests, 1, "score-augmented elections files are review output, not input")
}

func TestReader_Read_MissingCollection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF_batch_1.csv", rawElections)
	writeFile(t, dir, "Candidates_DF_batch_1.csv", rawCandidates)

	_, err := NewReader(nil).Read(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNoInputFiles)

	var ioErr *ports.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "rounds", ioErr.Collection)
}

func TestReader_Read_MissingRequiredColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF_batch_1.csv", rawElections)
	writeFile(t, dir, "Candidates_DF_batch_1.csv", "election_id,candidate_id,name\nme,alice,Alice\n")
	writeFile(t, dir, "Rounds_DF_batch_1.csv", rawRounds)

	_, err := NewReader(nil).Read(context.Background(), dir)
	require.Error(t, err)

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "candidates", schemaErr.Collection)
	assert.Equal(t, []string{"round", "votes"}, schemaErr.Missing)
}

func TestReader_Read_HeaderOnlyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF.csv", "election_id,state,office\n")
	writeFile(t, dir, "Candidates_DF.csv", "election_id,candidate_id,round,votes\n")
	writeFile(t, dir, "Rounds_DF.csv", "election_id,round,total_votes\n")

	ds, err := NewReader(nil).Read(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, ds.Empty())
}

func TestReader_Read_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF.csv", "")
	writeFile(t, dir, "Candidates_DF.csv", "election_id,candidate_id,round,votes\n")
	writeFile(t, dir, "Rounds_DF.csv", "election_id,round,total_votes\n")

	_, err := NewReader(nil).Read(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrEmptyHeader)
}

func TestReader_Read_ToleratesMessyValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF.csv", "Election_ID, State ,OFFICE\nme,ME,Mayor\n")
	writeFile(t, dir, "Candidates_DF.csv",
		"election_id,candidate_id,round,votes,percentage\n"+
			"me,alice,1,sixty,41.5%\n"+
			"me,bob,1\n")
	writeFile(t, dir, "Rounds_DF.csv", "election_id,round,total_votes\nme,1,100.0\n")

	ds, err := NewReader(nil).Read(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, ds.Contests, 1)
	assert.Equal(t, "ME", ds.Contests[0].State, "headers match case-insensitively")

	require.Len(t, ds.Candidates, 2)
	assert.Zero(t, ds.Candidates[0].Votes, "unparseable votes coerce to zero")
	assert.InDelta(t, 41.5, ds.Candidates[0].Percentage, 1e-9)
	assert.Zero(t, ds.Candidates[1].Votes, "short rows read as empty fields")

	require.Len(t, ds.Rounds, 1)
	assert.Equal(t, 100, ds.Rounds[0].TotalVotes, "decimal totals truncate")
}

func TestReader_Read_ContextCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Elections_DF.csv", rawElections)
	writeFile(t, dir, "Candidates_DF.csv", rawCandidates)
	writeFile(t, dir, "Rounds_DF.csv", rawRounds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(nil).Read(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
