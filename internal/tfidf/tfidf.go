// Package tfidf weights a pair of term lists with TF-IDF statistics fitted on
// that pair alone.
//
// The weighting follows the common smooth-IDF convention: raw term counts,
// idf(t) = ln((1+n)/(1+df(t))) + 1 with n documents, and L2-normalized rows.
// Because the fit only ever sees two documents, IDF shifts from pair to pair
// and scores of different pairs are not comparable in magnitude.
package tfidf

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Model is the fitted vocabulary and the two weighted rows.
type Model struct {
	Vocabulary []string
	IDF        []float64
	Rows       [2][]float64
}

// FitTransform fits the vocabulary and IDF on the two documents and returns
// their normalized TF-IDF rows. Terms are ordered lexically.
func FitTransform(a, b []string) Model {
	docs := [2][]string{a, b}

	seen := make(map[string]struct{})
	for _, doc := range docs {
		for _, term := range doc {
			seen[term] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for term := range seen {
		vocab = append(vocab, term)
	}
	slices.Sort(vocab)

	column := make(map[string]int, len(vocab))
	for i, term := range vocab {
		column[term] = i
	}

	var m Model
	m.Vocabulary = vocab
	df := make([]float64, len(vocab))
	for d, doc := range docs {
		row := make([]float64, len(vocab))
		for _, term := range doc {
			row[column[term]]++
		}
		for i, count := range row {
			if count > 0 {
				df[i]++
			}
		}
		m.Rows[d] = row
	}

	n := float64(len(docs))
	m.IDF = make([]float64, len(vocab))
	for i := range vocab {
		m.IDF[i] = math.Log((1+n)/(1+df[i])) + 1
	}

	for _, row := range m.Rows {
		floats.Mul(row, m.IDF)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return m
}

// Cosine is the cosine similarity of the two rows. Rows are already unit
// length, so this is their dot product; a row with no terms scores 0.
func (m Model) Cosine() float64 {
	if len(m.Vocabulary) == 0 {
		return 0
	}
	sim := floats.Dot(m.Rows[0], m.Rows[1])
	return math.Max(0, math.Min(1, sim))
}

// Similarity fits a model on the pair and returns its cosine similarity.
func Similarity(a, b []string) float64 {
	return FitTransform(a, b).Cosine()
}
