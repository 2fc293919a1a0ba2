// Package dataset reads the killmail table and writes the scored table back.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/deidaraiorek/killdist/internal/killmail"
)

type Options struct {
	ItemsColumn string
	GroupColumn string
	OrderColumn string
	// DropColumns are removed when present; absent ones are ignored.
	DropColumns []string
}

func DefaultOptions() Options {
	return Options{
		ItemsColumn: "items",
		GroupColumn: "character_id",
		OrderColumn: "killmail_id",
		DropColumns: []string{"HighSlotISK", "MidSlotISK", "LowSlotISK"},
	}
}

// Table is the loaded input after column drops.
type Table struct {
	Header      []string
	ItemsIndex  int
	Records     []killmail.Record
	Dropped     []string
	NotDropped  []string
	Compression Compression
}

// Load reads a CSV file, decompressing it when the extension asks for it.
func Load(path string, opts Options) (*Table, error) {
	rc, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer rc.Close()

	t, err := Read(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	t.Compression = CompressionFor(path)
	return t, nil
}

func Read(r io.Reader, opts Options) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{}
	var keep []int
	for i, name := range header {
		if slices.Contains(opts.DropColumns, name) {
			t.Dropped = append(t.Dropped, name)
			continue
		}
		keep = append(keep, i)
		t.Header = append(t.Header, name)
	}
	for _, name := range opts.DropColumns {
		if !slices.Contains(t.Dropped, name) {
			t.NotDropped = append(t.NotDropped, name)
		}
	}

	itemsIdx := slices.Index(t.Header, opts.ItemsColumn)
	groupIdx := slices.Index(t.Header, opts.GroupColumn)
	orderIdx := slices.Index(t.Header, opts.OrderColumn)
	for _, req := range []struct {
		name string
		idx  int
	}{
		{opts.ItemsColumn, itemsIdx},
		{opts.GroupColumn, groupIdx},
		{opts.OrderColumn, orderIdx},
	} {
		if req.idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, req.name)
		}
	}
	t.ItemsIndex = itemsIdx

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(row) > len(header) {
			return nil, &CellError{Line: line, Column: "", Err: ErrRowTooLong}
		}
		for len(row) < len(header) {
			row = append(row, "")
		}

		cells := make([]string, len(keep))
		for j, i := range keep {
			cells[j] = row[i]
		}

		rec := killmail.Record{Cells: cells}
		if rec.CharacterID, err = parseKey(cells[groupIdx]); err != nil {
			return nil, &CellError{Line: line, Column: opts.GroupColumn, Err: err}
		}
		if rec.KillmailID, err = parseKey(cells[orderIdx]); err != nil {
			return nil, &CellError{Line: line, Column: opts.OrderColumn, Err: err}
		}
		if rec.Items, err = killmail.DecodeItems(cells[itemsIdx]); err != nil {
			return nil, &CellError{Line: line, Column: opts.ItemsColumn, Err: err}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// parseKey accepts integers and integral floats such as "95465499.0".
func parseKey(cell string) (int64, error) {
	s := strings.TrimSpace(cell)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, cell)
	}
	return int64(f), nil
}
