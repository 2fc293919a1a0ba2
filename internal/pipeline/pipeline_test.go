package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deidaraiorek/killdist/internal/config"
	"github.com/deidaraiorek/killdist/internal/dataset"
	"github.com/deidaraiorek/killdist/internal/pipeline"
	"github.com/deidaraiorek/killdist/internal/stopwatch"
	"github.com/deidaraiorek/killdist/internal/storage"
)

const victims = `killmail_id,character_id,items,HighSlotISK,MidSlotISK,LowSlotISK
2,10,"[('Rifle', 'Gun')]",1.5,2.5,3.5
7,20,"[('Armor Plate', 'Mod')]",0,0,0
1,10,"[('Rifle', 'Gun')]",1.5,2.5,3.5
5,30,[],0,0,0
6,30,"[('Armor', 'Mod')]",0,0,0
`

func setup(t *testing.T, input string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Input = filepath.Join(dir, "victims.csv")
	cfg.Output = filepath.Join(dir, "out", "distances.csv")
	require.NoError(t, os.WriteFile(cfg.Input, []byte(input), 0o644))
	return cfg
}

func readOutput(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func run(t *testing.T, cfg config.Config) (pipeline.Summary, *bytes.Buffer) {
	t.Helper()
	var progress bytes.Buffer
	p, err := pipeline.New(cfg, nil, &progress)
	require.NoError(t, err)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	return summary, &progress
}

func TestRunWritesScoredTable(t *testing.T) {
	cfg := setup(t, victims)
	summary, progress := run(t, cfg)

	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, 3, summary.Characters)
	assert.Contains(t, progress.String(), "Progress 100.0%\r")

	rows := readOutput(t, cfg.Output)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"", "killmail_id", "character_id", "items", "cos_dist_st", "cos_dist_lt"}, rows[0])

	// Identical consecutive lists score 1 on both fields.
	assert.Equal(t, []string{"0", "1", "10", "[('Rifle', 'Gun')]", "", ""}, rows[1])
	assert.Equal(t, []string{"1", "2", "10", "[('Rifle', 'Gun')]", "1.0", "1.0"}, rows[2])

	// A character with a single killmail has no scores.
	assert.Equal(t, []string{"0", "7", "20", "[('Armor Plate', 'Mod')]", "", ""}, rows[3])

	// An empty list scores 0 against its successor.
	assert.Equal(t, []string{"0", "5", "30", "[]", "", ""}, rows[4])
	assert.Equal(t, []string{"1", "6", "30", "[('Armor', 'Mod')]", "0.0", "0.0"}, rows[5])
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := setup(t, victims)
	run(t, cfg)
	first, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)

	run(t, cfg)
	second, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunPartialOverlap(t *testing.T) {
	cfg := setup(t, `killmail_id,character_id,items
1,4,"[['Rifle', 'Mod'], ['Gun', 'Mod']]"
2,4,"[['Rifle', 'Mod'], ['Armor', 'Mod']]"
3,4,"[['Armor', 'Plate']]"
`)
	run(t, cfg)

	rows := readOutput(t, cfg.Output)
	require.Len(t, rows, 4)

	// "rifle gun" against "rifle armor": one shared term weighted 1 against
	// unshared terms weighted ln(3/2)+1.
	assert.Equal(t, []string{"1.0", "0.33609692727625745"}, rows[2][4:])
	// "rifle armor" against "armor": only armor is shared.
	long, err := strconv.ParseFloat(rows[3][5], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.5797386715376657, long, 1e-15)
	// "mod mod" against "plate" share nothing.
	assert.Equal(t, "0.0", rows[3][4])
}

func TestRunAppliesAnalyzerConfig(t *testing.T) {
	cfg := setup(t, `killmail_id,character_id,items
1,4,"[['Rifle II', 'Gun']]"
2,4,"[['Rifle', 'Gun']]"
`)
	cfg.Analyzer.StopWords = []string{"II"}
	run(t, cfg)

	rows := readOutput(t, cfg.Output)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1.0", "1.0"}, rows[2][4:])
}

func TestRunMarksStages(t *testing.T) {
	cfg := setup(t, victims)
	cfg.Progress = false

	clock := time.Unix(0, 0)
	sw := stopwatch.NewWithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	var progress bytes.Buffer
	p, err := pipeline.New(cfg, nil, &progress)
	require.NoError(t, err)
	summary, err := p.WithStopwatch(sw).Run(context.Background())
	require.NoError(t, err)

	var labels []string
	for _, lap := range summary.Laps {
		labels = append(labels, lap.Label)
		assert.Equal(t, time.Second, lap.Elapsed)
	}
	assert.Equal(t, []string{
		"Loading CSV data from local file...",
		"Converting 'item' column value types...",
		"Computing cosine distances by grouping character_id's...",
		"Concatenating resulting groups and writing to file...",
		"Exit",
	}, labels)
	assert.Empty(t, progress.String())
}

func TestRunStoresResults(t *testing.T) {
	cfg := setup(t, victims)
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "results.db")
	run(t, cfg)

	db, err := storage.NewResultsDB(cfg.SQLite.Path)
	require.NoError(t, err)
	defer db.Close()

	count, err := db.GetRowCount()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	scores, err := db.ScoresForCharacter(10)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.True(t, math.IsNaN(scores[0].Short))
	assert.Equal(t, int64(2), scores[1].KillmailID)
	assert.InDelta(t, 1.0, scores[1].Long, 1e-12)

	input, err := db.GetMetadata("input")
	require.NoError(t, err)
	assert.Equal(t, cfg.Input, input)
}

func TestRunResultsFailureWritesNothing(t *testing.T) {
	cfg := setup(t, victims)
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "missing-dir", "results.db")

	p, err := pipeline.New(cfg, nil, nil)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(cfg.Output)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	entries, err := os.ReadDir(filepath.Dir(cfg.Output))
	require.NoError(t, err)
	assert.Empty(t, entries, "staged output left behind")
}

func TestRunCancelledWritesNothing(t *testing.T) {
	cfg := setup(t, victims)
	p, err := pipeline.New(cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.Output)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing items column", "killmail_id,character_id\n1,2\n", dataset.ErrMissingColumn},
		{"bad key", "killmail_id,character_id,items\nabc,2,[]\n", dataset.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t, tt.input)
			p, err := pipeline.New(cfg, nil, nil)
			require.NoError(t, err)

			_, err = p.Run(context.Background())
			require.ErrorIs(t, err, tt.want)
			_, statErr := os.Stat(cfg.Output)
			assert.True(t, errors.Is(statErr, os.ErrNotExist))
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output = ""
	_, err := pipeline.New(cfg, nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "output is required"))
}
