package score

import (
	"math"
	"testing"

	"github.com/mpavlenko/squadron/internal/model"
)

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Eiffel Tower", "eiffel tower"},
		{"Paris.", "paris"},
		{"  a   dog  ", "dog"},
		{"an apple!", "apple"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeAnswer(c.in); got != c.want {
			t.Errorf("normalizeAnswer(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExactMatch(t *testing.T) {
	if exactMatch("Paris", "paris.") != 1 {
		t.Error("Expected match after normalization")
	}
	if exactMatch("Paris", "London") != 0 {
		t.Error("Expected no match for different answers")
	}
}

func TestF1Score(t *testing.T) {
	if got := f1Score("Paris", "paris."); got != 1 {
		t.Errorf("Expected F1 1.0 for normalized equality, got %v", got)
	}

	// "the capital city" vs "capital of France": one common token out of
	// 2 prediction tokens and 3 reference tokens
	got := f1Score("the capital city", "capital of France")
	precision := 1.0 / 2.0
	recall := 1.0 / 3.0
	want := 2 * precision * recall / (precision + recall)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected F1 %v, got %v", want, got)
	}

	if f1Score("", "") != 1 {
		t.Error("Both empty must score 1 (matching no-answers)")
	}
	if f1Score("something", "") != 0 {
		t.Error("Prediction against empty reference must score 0")
	}
}

func TestCompute_BestOverReferences(t *testing.T) {
	scorer := NewScorer()

	examples := []model.Example{{
		ID:      "q1",
		Context: "irrelevant",
		Answers: []model.Answer{
			{Text: "London"},
			{Text: "Paris"},
		},
	}}
	predictions := map[string]model.Prediction{
		"q1": {Text: "Paris"},
	}

	metrics, err := scorer.Compute(predictions, examples)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if metrics.ExactMatch != 100 {
		t.Errorf("Expected EM 100, got %v", metrics.ExactMatch)
	}
	if metrics.F1 != 100 {
		t.Errorf("Expected F1 100, got %v", metrics.F1)
	}
	if metrics.Total != 1 {
		t.Errorf("Expected 1 example, got %d", metrics.Total)
	}
}

func TestCompute_Unanswerable(t *testing.T) {
	scorer := NewScorer()

	examples := []model.Example{
		{ID: "q1", Context: "c"}, // no answers
		{ID: "q2", Context: "c"},
	}
	predictions := map[string]model.Prediction{
		"q1": {Text: ""},          // correct no-answer
		"q2": {Text: "something"}, // wrong
	}

	metrics, err := scorer.Compute(predictions, examples)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if metrics.ExactMatch != 50 {
		t.Errorf("Expected EM 50, got %v", metrics.ExactMatch)
	}
}

func TestCompute_MissingPrediction(t *testing.T) {
	scorer := NewScorer()

	examples := []model.Example{{ID: "q1", Context: "c"}}
	_, err := scorer.Compute(map[string]model.Prediction{}, examples)
	if err == nil {
		t.Fatal("Expected error for missing prediction")
	}
}

func TestCompute_Empty(t *testing.T) {
	scorer := NewScorer()

	metrics, err := scorer.Compute(nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if metrics.Total != 0 {
		t.Errorf("Expected 0 examples, got %d", metrics.Total)
	}
}
