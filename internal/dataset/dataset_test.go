package dataset_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deidaraiorek/killdist/internal/dataset"
	"github.com/deidaraiorek/killdist/internal/killmail"
)

const sample = `killmail_id,character_id,items,HighSlotISK,MidSlotISK,LowSlotISK,ship
2,100,"[['Rifle', 'Gun']]",1.5,2.5,3.5,Rifter
1,100,"[['Rifle','Gun']]",1.5,2.5,3.5,Rifter
7,200,,0,0,0,NaN
`

func TestRead(t *testing.T) {
	table, err := dataset.Read(strings.NewReader(sample), dataset.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"killmail_id", "character_id", "items", "ship"}, table.Header)
	assert.Equal(t, []string{"HighSlotISK", "MidSlotISK", "LowSlotISK"}, table.Dropped)
	assert.Empty(t, table.NotDropped)
	assert.Equal(t, 2, table.ItemsIndex)

	require.Len(t, table.Records, 3)
	first := table.Records[0]
	assert.Equal(t, int64(2), first.KillmailID)
	assert.Equal(t, int64(100), first.CharacterID)
	assert.Equal(t, []string{"2", "100", "[['Rifle', 'Gun']]", "Rifter"}, first.Cells)
	assert.Equal(t, []string{"Rifle"}, first.Items.Terms(killmail.LongText))

	assert.True(t, table.Records[2].Items.IsMissing())
}

func TestReadToleratesAbsentDropColumns(t *testing.T) {
	input := "character_id,killmail_id,items\n1,1,[]\n"

	table, err := dataset.Read(strings.NewReader(input), dataset.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, table.Dropped)
	assert.Equal(t, []string{"HighSlotISK", "MidSlotISK", "LowSlotISK"}, table.NotDropped)
	assert.Equal(t, []string{"character_id", "killmail_id", "items"}, table.Header)
}

func TestReadMissingColumn(t *testing.T) {
	_, err := dataset.Read(strings.NewReader("character_id,killmail_id\n1,2\n"), dataset.DefaultOptions())
	require.ErrorIs(t, err, dataset.ErrMissingColumn)
	assert.Contains(t, err.Error(), `"items"`)

	_, err = dataset.Read(strings.NewReader(""), dataset.DefaultOptions())
	require.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestReadBadCells(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column string
		target error
	}{
		{
			name:   "non numeric character",
			input:  "character_id,killmail_id,items\nabc,1,[]\n",
			column: "character_id",
			target: dataset.ErrInvalidKey,
		},
		{
			name:   "fractional killmail id",
			input:  "character_id,killmail_id,items\n1,1.5,[]\n",
			column: "killmail_id",
			target: dataset.ErrInvalidKey,
		},
		{
			name:   "undecodable items",
			input:  "character_id,killmail_id,items\n1,1,\"[['A', 'B']\"\n",
			column: "items",
			target: killmail.ErrMalformedItems,
		},
		{
			name:   "row longer than header",
			input:  "character_id,killmail_id,items\n1,1,[],extra\n",
			column: "",
			target: dataset.ErrRowTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.Read(strings.NewReader(tt.input), dataset.DefaultOptions())
			require.ErrorIs(t, err, tt.target)

			var cellErr *dataset.CellError
			require.ErrorAs(t, err, &cellErr)
			assert.Equal(t, tt.column, cellErr.Column)
			assert.Equal(t, 2, cellErr.Line)
		})
	}
}

func TestReadIntegralFloatKeysAndShortRows(t *testing.T) {
	input := "\ufeffcharacter_id,killmail_id,items,ship\n95465499.0,3,[]\n"

	table, err := dataset.Read(strings.NewReader(input), dataset.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, table.Records, 1)
	assert.Equal(t, "character_id", table.Header[0])
	assert.Equal(t, int64(95465499), table.Records[0].CharacterID)
	assert.Equal(t, []string{"95465499.0", "3", "[]", ""}, table.Records[0].Cells)
}

func scored(t *testing.T) (*dataset.Table, []dataset.ScoredPartition) {
	t.Helper()
	table, err := dataset.Read(strings.NewReader(sample), dataset.DefaultOptions())
	require.NoError(t, err)

	parts := killmail.GroupByCharacter(table.Records)
	return table, []dataset.ScoredPartition{
		{Partition: parts[0], Short: []float64{math.NaN(), 1}, Long: []float64{math.NaN(), 0.5773502691896258}},
		{Partition: parts[1], Short: []float64{math.NaN()}, Long: []float64{math.NaN()}},
	}
}

func TestWrite(t *testing.T) {
	table, parts := scored(t)

	var buf bytes.Buffer
	require.NoError(t, dataset.Write(&buf, table, parts))

	want := `,killmail_id,character_id,items,ship,cos_dist_st,cos_dist_lt
0,1,100,"[['Rifle', 'Gun']]",Rifter,,
1,2,100,"[['Rifle', 'Gun']]",Rifter,1.0,0.5773502691896258
0,7,200,,,,
`
	assert.Equal(t, want, buf.String())
}

func TestWriteRejectsScoreLengthMismatch(t *testing.T) {
	table, parts := scored(t)
	parts[0].Long = parts[0].Long[:1]

	err := dataset.Write(&bytes.Buffer{}, table, parts)
	require.Error(t, err)
}

func TestSaveAndLoadCompressed(t *testing.T) {
	table, parts := scored(t)

	for _, name := range []string{"out.csv", "out.csv.gz", "out.csv.zst", "out.csv.lz4"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "nested", name)

			require.NoError(t, dataset.Save(path, table, parts))

			loaded, err := dataset.Load(path, dataset.DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, dataset.CompressionFor(name), loaded.Compression)
			assert.Equal(t, dataset.OutputHeader(table.Header), loaded.Header)
			assert.Len(t, loaded.Records, 3)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary file left behind")
		})
	}
}

func TestSaveFailureLeavesNoOutput(t *testing.T) {
	table, parts := scored(t)
	parts[1].Short = nil

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	require.Error(t, dataset.Save(path, table, parts))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageWaitsForCommit(t *testing.T) {
	table, parts := scored(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	pending, err := dataset.Stage(path, table, parts)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, pending.Commit())
	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.NoError(t, pending.Discard())
}

func TestStageDiscard(t *testing.T) {
	table, parts := scored(t)
	dir := t.TempDir()

	pending, err := dataset.Stage(filepath.Join(dir, "out.csv"), table, parts)
	require.NoError(t, err)
	require.NoError(t, pending.Discard())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := dataset.Load(filepath.Join(t.TempDir(), "nope.csv"), dataset.DefaultOptions())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, dataset.None, dataset.CompressionFor("data/all_victims_complete.csv"))
	assert.Equal(t, dataset.Gzip, dataset.CompressionFor("a.csv.GZ"))
	assert.Equal(t, dataset.Zstd, dataset.CompressionFor("a.zst"))
	assert.Equal(t, dataset.LZ4, dataset.CompressionFor("a.lz4"))
	assert.Equal(t, "zstd", dataset.Zstd.String())
}
