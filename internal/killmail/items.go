package killmail

import (
	"errors"
	"fmt"

	"github.com/deidaraiorek/killdist/internal/pyliteral"
)

var ErrMalformedItems = errors.New("malformed items cell")

// Field selects which text of an item feeds a document.
type Field int

const (
	LongText  Field = 0
	ShortText Field = 1
)

func (f Field) String() string {
	switch f {
	case LongText:
		return "long"
	case ShortText:
		return "short"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

type Item struct {
	Long  string
	Short string
}

func (i Item) Text(f Field) string {
	if f == ShortText {
		return i.Short
	}
	return i.Long
}

// Items is either Present (a possibly empty list) or Missing.
type Items struct {
	present bool
	list    []Item
	source  *pyliteral.Value
}

func Present(list ...Item) Items {
	return Items{present: true, list: list}
}

func Missing() Items {
	return Items{}
}

func (it Items) IsMissing() bool {
	return !it.present
}

func (it Items) Len() int {
	return len(it.list)
}

// Terms returns the selected text of every entry, in order.
func (it Items) Terms(f Field) []string {
	terms := make([]string, len(it.list))
	for i, item := range it.list {
		terms[i] = item.Text(f)
	}
	return terms
}

// String renders the cell the way it is written back out: Python repr for
// decoded literals, empty for missing markers.
func (it Items) String() string {
	if it.source != nil {
		return it.source.Repr()
	}
	if !it.present {
		return ""
	}

	elems := make([]pyliteral.Value, len(it.list))
	for i, item := range it.list {
		elems[i] = pyliteral.List(pyliteral.String(item.Long), pyliteral.String(item.Short))
	}
	return pyliteral.List(elems...).Repr()
}

// missingMarkers are the cell texts read as "no value".
var missingMarkers = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissingMarker reports whether a raw cell denotes an absent value.
func IsMissingMarker(cell string) bool {
	return missingMarkers[cell]
}

// DecodeItems parses a raw items cell. Missing markers and scalar literals
// decode to Missing; anything that is not a literal is an error.
func DecodeItems(cell string) (Items, error) {
	if IsMissingMarker(cell) {
		return Missing(), nil
	}

	v, err := pyliteral.Parse(cell)
	if err != nil {
		return Items{}, fmt.Errorf("%w: %w", ErrMalformedItems, err)
	}
	if !v.IsSequence() {
		return Items{source: &v}, nil
	}

	list := make([]Item, 0, len(v.Elems))
	for i, entry := range v.Elems {
		if !entry.IsSequence() || len(entry.Elems) < 2 {
			return Items{}, fmt.Errorf("%w: entry %d is %s, want a pair", ErrMalformedItems, i, entry.Repr())
		}
		list = append(list, Item{
			Long:  entry.Elems[0].Text(),
			Short: entry.Elems[1].Text(),
		})
	}
	return Items{present: true, list: list, source: &v}, nil
}
