package model

// Prediction is the final decoded answer for one example
type Prediction struct {
	Text        string  `json:"text"`        // Best answer text; empty means "no answer"
	Probability float64 `json:"probability"` // Softmax probability of the winning candidate
	StartLogit  float64 `json:"start_logit"` // Raw start logit of the winning span
	EndLogit    float64 `json:"end_logit"`   // Raw end logit of the winning span

	// NoAnswerProbability is only meaningful when null-answer handling is
	// enabled (SQuAD v2 style datasets)
	NoAnswerProbability float64 `json:"no_answer_probability,omitempty"`
}

// NBestEntry is one ranked candidate retained for inspection alongside the
// winning prediction
type NBestEntry struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
	StartLogit  float64 `json:"start_logit"`
	EndLogit    float64 `json:"end_logit"`
}
