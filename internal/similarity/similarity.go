// Package similarity scores consecutive killmails of one character.
package similarity

import (
	"math"

	"github.com/deidaraiorek/killdist/internal/killmail"
	"github.com/deidaraiorek/killdist/internal/textprocessor"
	"github.com/deidaraiorek/killdist/internal/tfidf"
)

// Scores holds one value per record of a partition. Position 0 is NaN
// because the first killmail has no predecessor.
type Scores struct {
	Long  []float64
	Short []float64
}

type Engine struct {
	processor *textprocessor.TextProcessor
}

func NewEngine(processor *textprocessor.TextProcessor) *Engine {
	if processor == nil {
		processor = textprocessor.NewTextProcessor()
	}
	return &Engine{processor: processor}
}

// PairScore compares the previous and current item lists on one field.
// A missing or empty list on either side scores exactly 0.
func (e *Engine) PairScore(prev, cur killmail.Items, field killmail.Field) float64 {
	if prev.IsMissing() || cur.IsMissing() {
		return 0
	}
	if prev.Len() == 0 || cur.Len() == 0 {
		return 0
	}

	a := e.processor.ProcessAll(prev.Terms(field))
	b := e.processor.ProcessAll(cur.Terms(field))
	return tfidf.Similarity(a, b)
}

// Sequence scores every record against its predecessor on one field.
func (e *Engine) Sequence(seq []killmail.Items, field killmail.Field) []float64 {
	scores := make([]float64, len(seq))
	for i := range seq {
		if i == 0 {
			scores[i] = math.NaN()
			continue
		}
		scores[i] = e.PairScore(seq[i-1], seq[i], field)
	}
	return scores
}

// Partition scores a whole partition on both fields.
func (e *Engine) Partition(p killmail.Partition) Scores {
	seq := p.ItemsSeq()
	return Scores{
		Long:  e.Sequence(seq, killmail.LongText),
		Short: e.Sequence(seq, killmail.ShortText),
	}
}
