package textprocessor

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
)

const defaultStemLanguage = "english"

// Stemmer reduces item-name tokens to their snowball stems.
type Stemmer struct {
	language string
}

// NewStemmer checks language against snowball up front so a bad setting fails
// before any row is processed. An empty language selects english.
func NewStemmer(language string) (*Stemmer, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = defaultStemLanguage
	}
	if _, err := snowball.Stem("test", language, true); err != nil {
		return nil, fmt.Errorf("unsupported stem language %q: %w", language, err)
	}
	return &Stemmer{language: language}, nil
}

func (s *Stemmer) Language() string {
	return s.language
}

// Stem leaves tokens holding digits alone: "1mn" or "425mm" are part codes,
// not words.
func (s *Stemmer) Stem(word string) string {
	if strings.ContainsAny(word, "0123456789") {
		return word
	}
	stemmed, err := snowball.Stem(word, s.language, true)
	if err != nil {
		return word
	}
	return stemmed
}

// StemBatch returns a new slice; words is not modified.
func (s *Stemmer) StemBatch(words []string) []string {
	stemmed := make([]string, len(words))
	for i, word := range words {
		stemmed[i] = s.Stem(word)
	}
	return stemmed
}
