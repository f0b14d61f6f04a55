package model

// Offset maps one token back to a half-open character range [Start, End)
// in the original context
type Offset struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Window is one tokenized, fixed-length slice of a (question, context) pair.
// Long contexts produce several overlapping windows, all owned by the same
// example. Windows are immutable once built.
type Window struct {
	ExampleID string `json:"example_id"` // Owning example
	InputIDs  []int  `json:"input_ids"`  // Token ids, specials included
	TypeIDs   []int  `json:"type_ids"`   // Segment ids (0 first sequence, 1 second)

	// OffsetMapping has one entry per token. A nil entry is the absent
	// marker: the token is a special token or belongs to the question, so
	// the decoder must never attribute a span to it. Same length as InputIDs.
	OffsetMapping []*Offset `json:"offset_mapping"`

	// TokenIsMaxContext marks, per token index, whether this window is the
	// authoritative one for that token when windows overlap. Only set on
	// validation windows; nil means "no overlap filtering".
	TokenIsMaxContext map[int]bool `json:"token_is_max_context,omitempty"`

	// CLSIndex is the sentinel position used to label and score "no answer"
	CLSIndex int `json:"cls_index"`

	// StartPosition/EndPosition are the token-level answer labels assigned
	// at build time. Both equal CLSIndex when the answer is absent or not
	// fully contained in this window. Only set on training windows.
	StartPosition int `json:"start_position,omitempty"`
	EndPosition   int `json:"end_position,omitempty"`
}

// Len returns the token count of the window
func (w *Window) Len() int {
	return len(w.InputIDs)
}
