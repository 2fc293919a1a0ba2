// Package textprocessor turns item names into analyzed terms.
//
// Item names repeat heavily across killmails, so analysis is memoized per
// name in a bounded LRU cache.
package textprocessor

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deidaraiorek/killdist/internal/tokenizer"
)

type Options struct {
	Stem bool
	// StemLanguage is a snowball language name; empty means english.
	StemLanguage   string
	MinTokenLength int
	// MaxTokenLength of zero keeps tokens of any length.
	MaxTokenLength int
	StopWords      []string
	CacheSize      int
}

type TextProcessor struct {
	tokenizer *tokenizer.Tokenizer
	stemmer   *Stemmer
	cache     *lru.Cache[string, []string]
}

func NewTextProcessor() *TextProcessor {
	return &TextProcessor{
		tokenizer: tokenizer.NewTokenizer(),
	}
}

func New(opts Options) (*TextProcessor, error) {
	tp := &TextProcessor{
		tokenizer: tokenizer.WithLengths(opts.MinTokenLength, opts.MaxTokenLength).
			WithStopWords(opts.StopWords...),
	}
	if opts.Stem {
		stemmer, err := NewStemmer(opts.StemLanguage)
		if err != nil {
			return nil, err
		}
		tp.stemmer = stemmer
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create term cache: %w", err)
		}
		tp.cache = cache
	}
	return tp, nil
}

// Process analyzes a single piece of text. The returned slice may be shared
// with the cache and must not be modified.
func (tp *TextProcessor) Process(text string) []string {
	if tp.cache != nil {
		if terms, ok := tp.cache.Get(text); ok {
			return terms
		}
	}

	tokens := tp.tokenizer.Tokenize(text)
	if tp.stemmer != nil {
		tokens = tp.stemmer.StemBatch(tokens)
	}

	if tp.cache != nil {
		tp.cache.Add(text, tokens)
	}
	return tokens
}

// ProcessAll analyzes each text separately and concatenates the results.
// Space never belongs to a token, so this equals analyzing the texts joined
// by single spaces.
func (tp *TextProcessor) ProcessAll(texts []string) []string {
	var out []string
	for _, text := range texts {
		out = append(out, tp.Process(text)...)
	}
	return out
}

// CacheLen reports how many distinct texts are memoized.
func (tp *TextProcessor) CacheLen() int {
	if tp.cache == nil {
		return 0
	}
	return tp.cache.Len()
}
