package pyliteral

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

var ErrSyntax = errors.New("invalid python literal")

// SyntaxError reports where decoding stopped.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid python literal at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// maxDepth bounds list/tuple nesting.
const maxDepth = 64

type parser struct {
	src   string
	pos   int
	depth int
}

// Parse decodes a single literal. Surrounding whitespace is ignored.
func Parse(src string) (Value, error) {
	p := &parser{src: src}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, p.errorf("unexpected trailing input %q", p.rest(10))
	}
	return v, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) rest(n int) string {
	r := p.src[p.pos:]
	if len(r) > n {
		r = r[:n]
	}
	return r
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		case '\\':
			// explicit line continuation
			if strings.HasPrefix(p.src[p.pos:], "\\\n") {
				p.pos += 2
				continue
			}
			return
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	if p.pos >= len(p.src) {
		return Value{}, p.errorf("unexpected end of input")
	}

	c := p.peek()
	switch {
	case c == '[':
		return p.sequence('[', ']', KindList)
	case c == '(':
		return p.sequence('(', ')', KindTuple)
	case c == '-' || c == '+':
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return Value{}, err
		}
		return negate(v, c == '-', p)
	case c == '.' || isDigit(c):
		return p.number()
	case c == '\'' || c == '"':
		return p.stringSeq("")
	case isNameStart(c):
		return p.name()
	default:
		return Value{}, p.errorf("unexpected character %q", c)
	}
}

func negate(v Value, neg bool, p *parser) (Value, error) {
	switch v.Kind {
	case KindInt:
		if neg {
			v.Int = new(big.Int).Neg(v.Int)
		}
		return v, nil
	case KindFloat:
		if neg {
			v.Float = -v.Float
		}
		return v, nil
	case KindBool:
		// -True is legal Python and evaluates to an int.
		n := int64(0)
		if v.Bool {
			n = 1
		}
		if neg {
			n = -n
		}
		return Int(n), nil
	default:
		return Value{}, p.errorf("bad operand for unary sign: %s", v.Kind)
	}
}

func (p *parser) sequence(open, close byte, kind Kind) (Value, error) {
	p.depth++
	if p.depth > maxDepth {
		return Value{}, p.errorf("nesting deeper than %d", maxDepth)
	}
	defer func() { p.depth-- }()

	p.pos++ // open
	var elems []Value
	trailingComma := false
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			break
		}
		if p.pos >= len(p.src) {
			return Value{}, p.errorf("unterminated %s", kind)
		}
		if len(elems) > 0 && !trailingComma {
			return Value{}, p.errorf("expected ',' or %q", close)
		}

		v, err := p.value()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)

		p.skipSpace()
		trailingComma = false
		if p.peek() == ',' {
			p.pos++
			trailingComma = true
		}
	}

	// (x) is a parenthesized expression, not a tuple.
	if kind == KindTuple && len(elems) == 1 && !trailingComma {
		return elems[0], nil
	}
	return Value{Kind: kind, Elems: elems}, nil
}

func (p *parser) name() (Value, error) {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	word := p.src[start:p.pos]

	if q := p.peek(); q == '\'' || q == '"' {
		p.pos = start + len(word)
		return p.stringSeq(word)
	}

	switch word {
	case "None":
		return None(), nil
	case "True":
		return Value{Kind: KindBool, Bool: true}, nil
	case "False":
		return Value{Kind: KindBool, Bool: false}, nil
	}
	p.pos = start
	return Value{}, p.errorf("unsupported name %q", word)
}

// stringSeq parses one or more adjacent string literals, which Python
// concatenates.
func (p *parser) stringSeq(prefix string) (Value, error) {
	var sb strings.Builder
	for {
		s, err := p.stringLiteral(prefix)
		if err != nil {
			return Value{}, err
		}
		sb.WriteString(s)

		save := p.pos
		p.skipSpace()
		prefix = ""
		if isNameStart(p.peek()) {
			start := p.pos
			for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
				p.pos++
			}
			prefix = p.src[start:p.pos]
		}
		if q := p.peek(); q != '\'' && q != '"' {
			p.pos = save
			return String(sb.String()), nil
		}
	}
}

func (p *parser) stringLiteral(prefix string) (string, error) {
	raw := false
	switch strings.ToLower(prefix) {
	case "", "u":
	case "r":
		raw = true
	default:
		return "", p.errorf("unsupported string prefix %q", prefix)
	}

	quote := p.peek()
	delim := string(quote)
	if strings.HasPrefix(p.src[p.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)

	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			p.pos += len(delim)
			return sb.String(), nil
		}

		c := p.src[p.pos]
		if c == '\n' && len(delim) == 1 {
			return "", p.errorf("newline in string")
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
			continue
		}

		if p.pos+1 >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		if raw {
			sb.WriteByte('\\')
			r, size := utf8.DecodeRuneInString(p.src[p.pos+1:])
			sb.WriteRune(r)
			p.pos += 1 + size
			continue
		}
		if err := p.escape(&sb); err != nil {
			return "", err
		}
	}
}

func (p *parser) escape(sb *strings.Builder) error {
	p.pos++ // backslash
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'v':
		sb.WriteByte('\v')
	case 'x':
		return p.hexEscape(sb, 2)
	case 'u':
		return p.hexEscape(sb, 4)
	case 'U':
		return p.hexEscape(sb, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		start := p.pos - 1
		for p.pos < len(p.src) && p.pos-start < 3 && p.src[p.pos] >= '0' && p.src[p.pos] <= '7' {
			p.pos++
		}
		n, _ := strconv.ParseUint(p.src[start:p.pos], 8, 32)
		sb.WriteRune(rune(n))
	default:
		// Unknown escapes keep the backslash.
		p.pos--
		sb.WriteByte('\\')
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		sb.WriteRune(r)
		p.pos += size
	}
	return nil
}

func (p *parser) hexEscape(sb *strings.Builder, width int) error {
	if p.pos+width > len(p.src) {
		return p.errorf("truncated escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
	if err != nil || n > utf8.MaxRune {
		return p.errorf("invalid escape %q", p.src[p.pos:p.pos+width])
	}
	p.pos += width
	sb.WriteRune(rune(n))
	return nil
}

func (p *parser) number() (Value, error) {
	start := p.pos
	isFloat := false

	if strings.HasPrefix(p.src[p.pos:], "0x") || strings.HasPrefix(p.src[p.pos:], "0X") ||
		strings.HasPrefix(p.src[p.pos:], "0o") || strings.HasPrefix(p.src[p.pos:], "0O") ||
		strings.HasPrefix(p.src[p.pos:], "0b") || strings.HasPrefix(p.src[p.pos:], "0B") {
		p.pos += 2
		for p.pos < len(p.src) && (isHexDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
	} else {
	scan:
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			switch {
			case isDigit(c) || c == '_':
				p.pos++
			case c == '.':
				isFloat = true
				p.pos++
			case c == 'e' || c == 'E':
				isFloat = true
				p.pos++
				if q := p.peek(); q == '+' || q == '-' {
					p.pos++
				}
			default:
				break scan
			}
		}
	}

	text := p.src[start:p.pos]
	if q := p.peek(); q == 'j' || q == 'J' {
		return Value{}, p.errorf("complex numbers are not supported")
	}
	if isNameChar(p.peek()) {
		return Value{}, p.errorf("invalid number %q", text+string(p.peek()))
	}

	if isFloat {
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return Float(f), nil
			}
			p.pos = start
			return Value{}, p.errorf("invalid float %q", text)
		}
		return Float(f), nil
	}

	digits := strings.ReplaceAll(text, "_", "")
	if len(digits) > 1 && digits[0] == '0' && isDigit(digits[1]) {
		if strings.Trim(digits, "0") != "" {
			p.pos = start
			return Value{}, p.errorf("leading zeros in decimal integer %q", text)
		}
		digits = "0"
	}
	n, ok := new(big.Int).SetString(digits, 0)
	if !ok {
		p.pos = start
		return Value{}, p.errorf("invalid integer %q", text)
	}
	return Value{Kind: KindInt, Int: n}, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}
