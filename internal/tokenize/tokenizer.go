package tokenize

import "github.com/mpavlenko/squadron/internal/model"

// Sequence ids reported per token position
const (
	SeqSpecial = -1 // CLS, SEP, padding
	SeqFirst   = 0  // First sequence of the pair
	SeqSecond  = 1  // Second sequence of the pair
)

// Encoding is one fixed-length window produced by encoding a text pair.
// A pair whose second (or first, depending on truncation side) sequence
// exceeds MaxLength yields several overflowing encodings.
type Encoding struct {
	InputIDs []int
	TypeIDs  []int

	// Offsets maps each token to a character range in its own source
	// sequence. nil for special and padding tokens.
	Offsets []*model.Offset

	// SequenceIDs holds SeqSpecial/SeqFirst/SeqSecond per token position
	SequenceIDs []int

	// CLSIndex is the position of the classifier sentinel token
	CLSIndex int
}

// EncodeOptions controls windowing during pair encoding
type EncodeOptions struct {
	MaxLength      int  // Token cap per window, specials included
	Stride         int  // Tokens of trailing overlap repeated between windows
	TruncateSecond bool // Overflow the second sequence (true) or the first
	PadToMaxLength bool // Pad every window up to MaxLength
}

// Tokenizer encodes a two-sequence text pair into one or more windows with
// character offset mappings. Implementations must be safe for concurrent use.
type Tokenizer interface {
	EncodePair(a, b string, opts EncodeOptions) ([]Encoding, error)
}

// SequenceSpan returns the first and last token index whose sequence id
// equals seq, scanning inward from both ends. ok is false when no token of
// that sequence is present.
func (e *Encoding) SequenceSpan(seq int) (first, last int, ok bool) {
	first = 0
	for first < len(e.SequenceIDs) && e.SequenceIDs[first] != seq {
		first++
	}
	if first == len(e.SequenceIDs) {
		return 0, 0, false
	}
	last = len(e.SequenceIDs) - 1
	for e.SequenceIDs[last] != seq {
		last--
	}
	return first, last, true
}
