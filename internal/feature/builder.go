package feature

import (
	"fmt"

	"github.com/mpavlenko/squadron/internal/model"
	"github.com/mpavlenko/squadron/internal/tokenize"
)

// Builder turns examples into tokenized windows. Training windows carry
// token-level answer labels; validation windows carry decode-time metadata
// (nulled non-context offsets and max-context markers) instead.
type Builder struct {
	tok tokenize.Tokenizer
	cfg model.TokenizeConfig
}

// NewBuilder creates a feature builder around the given tokenizer
func NewBuilder(tok tokenize.Tokenizer, cfg model.TokenizeConfig) *Builder {
	return &Builder{tok: tok, cfg: cfg}
}

// contextSeq returns which sequence id carries the context tokens
func (b *Builder) contextSeq() int {
	if b.cfg.PadOnRight {
		return tokenize.SeqSecond
	}
	return tokenize.SeqFirst
}

// encode windows one example. With pad_on_right the pair is
// (question, context) and the context side overflows; otherwise the order
// and truncation side flip.
func (b *Builder) encode(ex *model.Example) ([]tokenize.Encoding, error) {
	first, second := ex.Question, ex.Context
	if !b.cfg.PadOnRight {
		first, second = ex.Context, ex.Question
	}

	encodings, err := b.tok.EncodePair(first, second, tokenize.EncodeOptions{
		MaxLength:      b.cfg.MaxLength,
		Stride:         b.cfg.DocStride,
		TruncateSecond: b.cfg.PadOnRight,
	})
	if err != nil {
		return nil, fmt.Errorf("encode example %s: %w", ex.ID, err)
	}
	return encodings, nil
}

// BuildTraining produces labeled windows for every example. A window whose
// context slice does not fully contain the answer is labeled with the CLS
// sentinel, independently of its sibling windows.
func (b *Builder) BuildTraining(examples []model.Example) ([]model.Window, error) {
	var windows []model.Window
	for i := range examples {
		ex := &examples[i]
		encodings, err := b.encode(ex)
		if err != nil {
			return nil, err
		}

		for _, enc := range encodings {
			w := model.Window{
				ExampleID:     ex.ID,
				InputIDs:      enc.InputIDs,
				TypeIDs:       enc.TypeIDs,
				OffsetMapping: enc.Offsets,
				CLSIndex:      enc.CLSIndex,
			}
			w.StartPosition, w.EndPosition = b.labelSpan(ex, &enc)
			windows = append(windows, w)
		}
	}
	return windows, nil
}

// labelSpan finds the tightest token pair covering the first gold answer,
// or the CLS sentinel when there is no answer or it is truncated out of
// this window.
func (b *Builder) labelSpan(ex *model.Example, enc *tokenize.Encoding) (int, int) {
	cls := enc.CLSIndex
	if !ex.Answerable() {
		return cls, cls
	}

	ans := ex.Answers[0]
	startChar, endChar := ans.AnswerStart, ans.End()

	tokStart, tokEnd, ok := enc.SequenceSpan(b.contextSeq())
	if !ok {
		return cls, cls
	}

	offsets := enc.Offsets
	if !(offsets[tokStart].Start <= startChar && offsets[tokEnd].End >= endChar) {
		// Answer not fully inside this window's context slice
		return cls, cls
	}

	for tokStart < len(offsets) && offsets[tokStart] != nil && offsets[tokStart].Start <= startChar {
		tokStart++
	}
	startPos := tokStart - 1

	for tokEnd >= 0 && offsets[tokEnd] != nil && offsets[tokEnd].End >= endChar {
		tokEnd--
	}
	endPos := tokEnd + 1

	return startPos, endPos
}

// BuildValidation produces unlabeled windows for decoding: every window
// records its owning example id, non-context offset entries are nulled so
// the decoder cannot attribute a span to question or special tokens, and
// max-context markers are precomputed across the example's windows.
func (b *Builder) BuildValidation(examples []model.Example) ([]model.Window, error) {
	ctxSeq := b.contextSeq()

	var windows []model.Window
	for i := range examples {
		ex := &examples[i]
		encodings, err := b.encode(ex)
		if err != nil {
			return nil, err
		}

		group := make([]model.Window, 0, len(encodings))
		for _, enc := range encodings {
			offsets := make([]*model.Offset, len(enc.Offsets))
			for k, off := range enc.Offsets {
				if enc.SequenceIDs[k] == ctxSeq {
					offsets[k] = off
				}
			}

			group = append(group, model.Window{
				ExampleID:     ex.ID,
				InputIDs:      enc.InputIDs,
				TypeIDs:       enc.TypeIDs,
				OffsetMapping: offsets,
				CLSIndex:      enc.CLSIndex,
			})
		}

		markMaxContext(group)
		windows = append(windows, group...)
	}
	return windows, nil
}
