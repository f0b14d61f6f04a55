package validate

import (
	"fmt"

	"github.com/mpavlenko/squadron/internal/model"
)

// Issue describes one integrity problem found in a dataset example
type Issue struct {
	ExampleID string `json:"example_id"`
	Message   string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.ExampleID, i.Message)
}

// Validator checks dataset integrity before feature building. Misaligned
// answer offsets silently poison training labels, so they are surfaced
// here instead.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate inspects every example and returns the issues found. An empty
// result means the dataset is consistent.
func (v *Validator) Validate(examples []model.Example) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(examples))

	for i := range examples {
		ex := &examples[i]

		if ex.ID == "" {
			issues = append(issues, Issue{ExampleID: fmt.Sprintf("#%d", i), Message: "missing example id"})
		} else if seen[ex.ID] {
			issues = append(issues, Issue{ExampleID: ex.ID, Message: "duplicate example id"})
		}
		seen[ex.ID] = true

		if ex.Context == "" {
			issues = append(issues, Issue{ExampleID: ex.ID, Message: "empty context"})
		}
		if ex.Question == "" {
			issues = append(issues, Issue{ExampleID: ex.ID, Message: "empty question"})
		}

		for j, ans := range ex.Answers {
			if ans.AnswerStart < 0 || ans.End() > len(ex.Context) {
				issues = append(issues, Issue{
					ExampleID: ex.ID,
					Message:   fmt.Sprintf("answer %d span [%d, %d) outside context of length %d", j, ans.AnswerStart, ans.End(), len(ex.Context)),
				})
				continue
			}
			if got := ex.Context[ans.AnswerStart:ans.End()]; got != ans.Text {
				issues = append(issues, Issue{
					ExampleID: ex.ID,
					Message:   fmt.Sprintf("answer %d text %q does not match context slice %q at offset %d", j, ans.Text, got, ans.AnswerStart),
				})
			}
		}
	}

	return issues
}
