package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn = errors.New("required column missing")
	ErrInvalidKey    = errors.New("invalid integer key")
	ErrRowTooLong    = errors.New("row has more fields than the header")
)

// CellError points at the input cell that could not be decoded.
type CellError struct {
	Line   int
	Column string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }
