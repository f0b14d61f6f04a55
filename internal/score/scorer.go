package score

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mpavlenko/squadron/internal/model"
)

// Metrics aggregates answer quality over an evaluation set. Values are
// percentages in [0, 100].
type Metrics struct {
	ExactMatch float64 `json:"exact_match"`
	F1         float64 `json:"f1"`
	Total      int     `json:"total"`
}

// Scorer computes SQuAD Exact-Match and F1. Construct one and pass it where
// needed; there is no package-level instance.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Compute scores decoded predictions against the examples' gold answers.
// Each metric takes the best value over an example's references; an example
// with no gold answers is scored against the empty answer.
func (s *Scorer) Compute(predictions map[string]model.Prediction, examples []model.Example) (Metrics, error) {
	if len(examples) == 0 {
		return Metrics{}, nil
	}

	var emSum, f1Sum float64
	for i := range examples {
		ex := &examples[i]
		pred, ok := predictions[ex.ID]
		if !ok {
			return Metrics{}, fmt.Errorf("no prediction for example %s", ex.ID)
		}

		refs := make([]string, 0, len(ex.Answers))
		for _, a := range ex.Answers {
			refs = append(refs, a.Text)
		}
		if len(refs) == 0 {
			refs = append(refs, "")
		}

		var bestEM, bestF1 float64
		for _, ref := range refs {
			if em := exactMatch(pred.Text, ref); em > bestEM {
				bestEM = em
			}
			if f1 := f1Score(pred.Text, ref); f1 > bestF1 {
				bestF1 = f1
			}
		}
		emSum += bestEM
		f1Sum += bestF1
	}

	n := float64(len(examples))
	return Metrics{
		ExactMatch: 100 * emSum / n,
		F1:         100 * f1Sum / n,
		Total:      len(examples),
	}, nil
}

func exactMatch(prediction, reference string) float64 {
	if normalizeAnswer(prediction) == normalizeAnswer(reference) {
		return 1
	}
	return 0
}

// f1Score is token-level overlap F1 over normalized answers
func f1Score(prediction, reference string) float64 {
	predToks := strings.Fields(normalizeAnswer(prediction))
	refToks := strings.Fields(normalizeAnswer(reference))

	if len(predToks) == 0 || len(refToks) == 0 {
		// Both empty counts as a match (the no-answer case)
		if len(predToks) == len(refToks) {
			return 1
		}
		return 0
	}

	counts := make(map[string]int, len(refToks))
	for _, tok := range refToks {
		counts[tok]++
	}
	common := 0
	for _, tok := range predToks {
		if counts[tok] > 0 {
			counts[tok]--
			common++
		}
	}
	if common == 0 {
		return 0
	}

	precision := float64(common) / float64(len(predToks))
	recall := float64(common) / float64(len(refToks))
	return 2 * precision * recall / (precision + recall)
}

// normalizeAnswer lowercases, strips punctuation and articles, and collapses
// whitespace, following the SQuAD evaluation convention
func normalizeAnswer(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		switch w {
		case "a", "an", "the":
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
