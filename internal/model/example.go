package model

// Answer is one gold answer span inside an example's context
type Answer struct {
	Text        string `json:"text"`         // The answer text itself
	AnswerStart int    `json:"answer_start"` // Character offset of the answer in the context
}

// Example represents one question-answering unit in the SQuAD format
type Example struct {
	ID       string   `json:"id"`              // Unique example identifier
	Title    string   `json:"title,omitempty"` // Source article title (optional)
	Context  string   `json:"context"`         // Raw passage text
	Question string   `json:"question"`        // Question text
	Answers  []Answer `json:"answers"`         // Gold answers; empty means unanswerable
}

// Answerable reports whether the example has at least one gold answer
func (e *Example) Answerable() bool {
	return len(e.Answers) > 0
}

// End returns the exclusive character end offset of the answer
func (a Answer) End() int {
	return a.AnswerStart + len(a.Text)
}
