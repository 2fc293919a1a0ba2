package tokenizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// wordPattern matches maximal runs of Unicode word characters. Filtering on
// minLength afterwards gives the same tokens as `\b\w\w+\b`.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

type Tokenizer struct {
	stopWords map[string]bool
	minLength int
	maxLength int
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopWords: map[string]bool{},
		minLength: 2,
	}
}

// WithLengths returns a tokenizer that keeps tokens of minLength..maxLength
// runes. A maxLength of zero disables the upper bound.
func WithLengths(minLength, maxLength int) *Tokenizer {
	t := NewTokenizer()
	if minLength > 0 {
		t.minLength = minLength
	}
	if maxLength > 0 {
		t.maxLength = maxLength
	}
	return t
}

// WithStopWords adds words that are dropped after lowercasing.
func (t *Tokenizer) WithStopWords(words ...string) *Tokenizer {
	for _, w := range words {
		t.stopWords[t.normalize(w)] = true
	}
	return t
}

func (t *Tokenizer) Tokenize(text string) []string {
	normalized := t.normalize(text)
	words := t.split(normalized)

	tokens := make([]string, 0, len(words))

	for _, word := range words {
		if t.stopWords[word] {
			continue
		}

		n := utf8.RuneCountInString(word)
		if n < t.minLength {
			continue
		}
		if t.maxLength > 0 && n > t.maxLength {
			continue
		}

		tokens = append(tokens, word)
	}
	return tokens
}

func (t *Tokenizer) normalize(text string) string {
	return strings.ToLower(text)
}

func (t *Tokenizer) split(text string) []string {
	return wordPattern.FindAllString(text, -1)
}
