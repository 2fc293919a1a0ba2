// Package pyliteral decodes and renders the subset of Python literal syntax
// found in exported tabular data: strings, numbers, booleans, None, lists
// and tuples.
package pyliteral

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Value is one decoded literal.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   *big.Int
	Float float64
	Str   string
	Elems []Value
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func List(elems ...Value) Value { return Value{Kind: KindList, Elems: elems} }
func Tuple(elems ...Value) Value { return Value{Kind: KindTuple, Elems: elems} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: big.NewInt(i)} }
func None() Value { return Value{Kind: KindNone} }
func (v Value) IsSequence() bool { return v.Kind == KindList || v.Kind == KindTuple }

// Text is the value as Python's str() would print it.
func (v Value) Text() string {
	if v.Kind == KindString {
		return v.Str
	}
	return v.Repr()
}

// Repr is the value as Python's repr() would print it.
func (v Value) Repr() string {
	var sb strings.Builder
	v.writeRepr(&sb)
	return sb.String()
}

func (v Value) writeRepr(sb *strings.Builder) {
	switch v.Kind {
	case KindNone:
		sb.WriteString("None")
	case KindBool:
		if v.Bool {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case KindInt:
		if v.Int == nil {
			sb.WriteString("0")
		} else {
			sb.WriteString(v.Int.String())
		}
	case KindFloat:
		sb.WriteString(FormatFloat(v.Float))
	case KindString:
		sb.WriteString(QuoteString(v.Str))
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeRepr(sb)
		}
		sb.WriteByte(']')
	case KindTuple:
		sb.WriteByte('(')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeRepr(sb)
		}
		if len(v.Elems) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	}
}

// FormatFloat renders f the way Python's repr(float) does: shortest
// round-trip digits, a trailing ".0" for integral values and exponent
// notation outside [1e-4, 1e16).
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(f)
	if abs < 1e-4 || abs >= 1e16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// QuoteString renders s as a Python string literal, choosing single quotes
// unless the text contains a single quote and no double quote.
func QuoteString(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == ' ' || unicode.IsPrint(r):
			sb.WriteRune(r)
		case r < 0x100:
			sb.WriteString(`\x`)
			sb.WriteString(hex(uint32(r), 2))
		case r < 0x10000:
			sb.WriteString(`\u`)
			sb.WriteString(hex(uint32(r), 4))
		default:
			sb.WriteString(`\U`)
			sb.WriteString(hex(uint32(r), 8))
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

func hex(v uint32, width int) string {
	s := strconv.FormatUint(uint64(v), 16)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
