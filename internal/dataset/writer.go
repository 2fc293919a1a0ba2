package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/deidaraiorek/killdist/internal/killmail"
	"github.com/deidaraiorek/killdist/internal/pyliteral"
)

const (
	ShortScoreColumn = "cos_dist_st"
	LongScoreColumn  = "cos_dist_lt"
)

// ScoredPartition is a partition with one short and one long score per
// record.
type ScoredPartition struct {
	killmail.Partition
	Short []float64
	Long  []float64
}

// OutputHeader is the unnamed index column, the kept input columns, then
// the two score columns.
func OutputHeader(header []string) []string {
	out := make([]string, 0, len(header)+3)
	out = append(out, "")
	out = append(out, header...)
	return append(out, ShortScoreColumn, LongScoreColumn)
}

// Write emits the partitions in order. The index column restarts at 0 for
// every partition.
func Write(w io.Writer, t *Table, parts []ScoredPartition) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeader(t.Header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(t.Header)+3)
	for _, p := range parts {
		if len(p.Short) != len(p.Records) || len(p.Long) != len(p.Records) {
			return fmt.Errorf("character %d: %d records but %d/%d scores",
				p.CharacterID, len(p.Records), len(p.Short), len(p.Long))
		}
		for i, rec := range p.Records {
			row[0] = strconv.Itoa(i)
			for j, cell := range rec.Cells {
				switch {
				case j == t.ItemsIndex:
					cell = rec.Items.String()
				case killmail.IsMissingMarker(cell):
					cell = ""
				}
				row[j+1] = cell
			}
			row[len(row)-2] = formatScore(p.Short[i])
			row[len(row)-1] = formatScore(p.Long[i])
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return pyliteral.FormatFloat(v)
}

// Save writes the table to path. A failed save leaves no output behind.
func Save(path string, t *Table, parts []ScoredPartition) error {
	pending, err := Stage(path, t, parts)
	if err != nil {
		return err
	}
	if err := pending.Commit(); err != nil {
		pending.Discard()
		return err
	}
	return nil
}

// Pending is a fully written output file that has not yet been moved to its
// final path.
type Pending struct {
	tmp  string
	path string
}

// Stage writes the table to a temporary file next to path. Nothing appears
// at path until Commit.
func Stage(path string, t *Table, parts []ScoredPartition) (_ *Pending, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriterSize(tmp, 1<<20)
	cw, err := compressWriter(buf, CompressionFor(path))
	if err != nil {
		return nil, err
	}
	if err = Write(cw, t, parts); err != nil {
		return nil, err
	}
	if err = cw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compressed stream: %w", err)
	}
	if err = buf.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	return &Pending{tmp: tmp.Name(), path: path}, nil
}

// Commit renames the staged file over the final path.
func (p *Pending) Commit() error {
	if err := os.Rename(p.tmp, p.path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Discard removes the staged file. It is a no-op after a successful Commit.
func (p *Pending) Discard() error {
	err := os.Remove(p.tmp)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
