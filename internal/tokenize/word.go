package tokenize

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mpavlenko/squadron/internal/model"
)

// Special token ids follow the BERT convention
const (
	padID = 0
	clsID = 101
	sepID = 102
)

// token is one word or punctuation mark with its character span
type token struct {
	text  string
	start int
	end   int
}

// WordTokenizer is a reference tokenizer: it splits text into words and
// single punctuation marks, keeping exact character offsets, and derives
// token ids by hashing. It stands in for a real subword tokenizer in tests
// and local pipelines and implements the same windowing contract.
type WordTokenizer struct {
	lowercase bool
}

// NewWordTokenizer creates a lowercasing word tokenizer
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{lowercase: true}
}

// EncodePair encodes the (a, b) pair into one or more overlapping windows
func (t *WordTokenizer) EncodePair(a, b string, opts EncodeOptions) ([]Encoding, error) {
	if opts.MaxLength <= 0 {
		return nil, fmt.Errorf("max_length must be positive, got %d", opts.MaxLength)
	}

	aToks := t.split(a)
	bToks := t.split(b)

	// The untruncated side is fully present in every window; the other
	// side is sliced into overlapping chunks of whatever room remains.
	fixed, over := aToks, bToks
	if !opts.TruncateSecond {
		fixed, over = bToks, aToks
	}

	capacity := opts.MaxLength - len(fixed) - 3 // CLS + 2x SEP
	if capacity <= 0 {
		return nil, fmt.Errorf("max_length %d leaves no room for the truncated sequence (%d fixed tokens)", opts.MaxLength, len(fixed))
	}
	step := capacity - opts.Stride
	if step <= 0 {
		return nil, fmt.Errorf("doc_stride %d must be smaller than the window capacity %d", opts.Stride, capacity)
	}

	var encodings []Encoding
	for start := 0; ; start += step {
		end := start + capacity
		if end > len(over) {
			end = len(over)
		}

		chunk := over[start:end]
		if opts.TruncateSecond {
			encodings = append(encodings, t.assemble(aToks, chunk, opts))
		} else {
			encodings = append(encodings, t.assemble(chunk, bToks, opts))
		}

		if end == len(over) {
			break
		}
	}

	return encodings, nil
}

// assemble lays out one window as [CLS] first [SEP] second [SEP]
func (t *WordTokenizer) assemble(first, second []token, opts EncodeOptions) Encoding {
	n := len(first) + len(second) + 3
	enc := Encoding{
		InputIDs:    make([]int, 0, n),
		TypeIDs:     make([]int, 0, n),
		Offsets:     make([]*model.Offset, 0, n),
		SequenceIDs: make([]int, 0, n),
		CLSIndex:    0,
	}

	push := func(id, typeID int, off *model.Offset, seq int) {
		enc.InputIDs = append(enc.InputIDs, id)
		enc.TypeIDs = append(enc.TypeIDs, typeID)
		enc.Offsets = append(enc.Offsets, off)
		enc.SequenceIDs = append(enc.SequenceIDs, seq)
	}

	push(clsID, 0, nil, SeqSpecial)
	for _, tok := range first {
		push(t.id(tok.text), 0, &model.Offset{Start: tok.start, End: tok.end}, SeqFirst)
	}
	push(sepID, 0, nil, SeqSpecial)
	for _, tok := range second {
		push(t.id(tok.text), 1, &model.Offset{Start: tok.start, End: tok.end}, SeqSecond)
	}
	push(sepID, 1, nil, SeqSpecial)

	if opts.PadToMaxLength {
		for len(enc.InputIDs) < opts.MaxLength {
			push(padID, 0, nil, SeqSpecial)
		}
	}

	return enc
}

// split breaks text into words and single punctuation marks with offsets
func (t *WordTokenizer) split(text string) []token {
	var toks []token
	start := -1
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			if start >= 0 {
				toks = append(toks, token{text[start:i], start, i})
				start = -1
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			if start >= 0 {
				toks = append(toks, token{text[start:i], start, i})
				start = -1
			}
			toks = append(toks, token{string(r), i, i + utf8.RuneLen(r)})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		toks = append(toks, token{text[start:], start, len(text)})
	}
	return toks
}

// id hashes a token into the id space above the special token range
func (t *WordTokenizer) id(s string) int {
	if t.lowercase {
		s = strings.ToLower(s)
	}
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32()%900_000) + 1000
}
