package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpavlenko/squadron/internal/model"
)

const parisContext = "Paris is the capital of France."

// parisWindow lays out one validation window over parisContext:
// position 0 is CLS, positions 1-7 are the context tokens, 8 is SEP.
func parisWindow() model.Window {
	return model.Window{
		ExampleID: "q1",
		InputIDs:  make([]int, 9),
		OffsetMapping: []*model.Offset{
			nil,
			{Start: 0, End: 5},   // Paris
			{Start: 6, End: 8},   // is
			{Start: 9, End: 12},  // the
			{Start: 13, End: 20}, // capital
			{Start: 21, End: 23}, // of
			{Start: 24, End: 30}, // France
			{Start: 30, End: 31}, // .
			nil,
		},
		CLSIndex: 0,
	}
}

func parisExample() model.Example {
	return model.Example{
		ID:       "q1",
		Context:  parisContext,
		Question: "What is the capital of France?",
		Answers:  []model.Answer{{Text: "Paris", AnswerStart: 0}},
	}
}

// flat returns n logits at base with peaks at the given indices
func flat(n int, base float64, peaks map[int]float64) []float64 {
	logits := make([]float64, n)
	for i := range logits {
		logits[i] = base
	}
	for idx, v := range peaks {
		logits[idx] = v
	}
	return logits
}

func TestDecode_SingleDominantSpan(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	w := parisWindow()
	start := [][]float64{flat(9, -10, map[int]float64{1: 10})}
	end := [][]float64{flat(9, -10, map[int]float64{1: 10})}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)

	pred, ok := preds["q1"]
	require.True(t, ok)
	assert.Equal(t, "Paris", pred.Text)
	assert.InDelta(t, 1.0, pred.Probability, 1e-3)
	assert.InDelta(t, 10.0, pred.StartLogit, 1e-9)
	assert.InDelta(t, 10.0, pred.EndLogit, 1e-9)
}

func TestDecode_NullAnswerWins(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{
		NBestSize:            20,
		MaxAnswerLength:      30,
		Version2WithNegative: true,
	})

	ex := parisExample()
	w := parisWindow()
	// Null score 10 at the sentinel, best span score 2
	start := [][]float64{flat(9, -10, map[int]float64{0: 5, 1: 1})}
	end := [][]float64{flat(9, -10, map[int]float64{0: 5, 1: 1})}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)

	pred := preds["q1"]
	assert.Equal(t, "", pred.Text)
	assert.Greater(t, pred.NoAnswerProbability, 0.5)
}

func TestDecode_SpanBeatsNull(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{
		NBestSize:            20,
		MaxAnswerLength:      30,
		Version2WithNegative: true,
	})

	ex := parisExample()
	w := parisWindow()
	start := [][]float64{flat(9, -10, map[int]float64{0: 1, 1: 8})}
	end := [][]float64{flat(9, -10, map[int]float64{0: 1, 1: 8})}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)
	assert.Equal(t, "Paris", preds["q1"].Text)
}

// Raising the threshold only makes the null answer harder to pick: a
// prediction must never flip from non-empty to empty as the threshold grows.
func TestDecode_NullThresholdMonotonic(t *testing.T) {
	ex := parisExample()
	w := parisWindow()
	// score_diff = null(6) - span(4) = 2
	start := [][]float64{flat(9, -10, map[int]float64{0: 3, 1: 2})}
	end := [][]float64{flat(9, -10, map[int]float64{0: 3, 1: 2})}

	sawNonEmpty := false
	for _, threshold := range []float64{-5, 0, 1.9, 2.1, 5, 100} {
		d := NewDecoder(model.DecodeConfig{
			NBestSize:              20,
			MaxAnswerLength:        30,
			Version2WithNegative:   true,
			NullScoreDiffThreshold: threshold,
		})
		preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
		require.NoError(t, err)

		if preds["q1"].Text != "" {
			sawNonEmpty = true
		} else {
			assert.False(t, sawNonEmpty, "prediction flipped back to empty at threshold %v", threshold)
		}
	}
	assert.True(t, sawNonEmpty, "expected the span to win at high thresholds")
}

func TestDecode_MaxAnswerLength(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 2})

	ex := parisExample()
	w := parisWindow()
	// Peaks span 6 tokens, beyond the cap; the decoder must settle for a
	// span within it
	start := [][]float64{flat(9, -10, map[int]float64{1: 10})}
	end := [][]float64{flat(9, -10, map[int]float64{6: 10})}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)

	got := preds["q1"].Text
	assert.NotEqual(t, "Paris is the capital of France", got)
	assert.LessOrEqual(t, len(got), len("capital of"))
}

func TestDecode_MaxContextFilter(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	w := parisWindow()
	w.TokenIsMaxContext = map[int]bool{1: false, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}

	// Peak at "Paris" but this window is not authoritative for it
	start := [][]float64{flat(9, -10, map[int]float64{1: 10, 4: 5})}
	end := [][]float64{flat(9, -10, map[int]float64{1: 10, 4: 5})}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)
	assert.Equal(t, "capital", preds["q1"].Text)
}

func TestDecode_MultiWindowAggregation(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	w1 := parisWindow()
	// Second window only covers the tail of the context
	w2 := model.Window{
		ExampleID: "q1",
		InputIDs:  make([]int, 5),
		OffsetMapping: []*model.Offset{
			nil,
			{Start: 21, End: 23}, // of
			{Start: 24, End: 30}, // France
			{Start: 30, End: 31}, // .
			nil,
		},
		CLSIndex: 0,
	}

	start := [][]float64{
		flat(9, -10, nil),
		flat(5, -10, map[int]float64{2: 10}),
	}
	end := [][]float64{
		flat(9, -10, nil),
		flat(5, -10, map[int]float64{2: 10}),
	}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w1, w2}, start, end)
	require.NoError(t, err)
	assert.Equal(t, "France", preds["q1"].Text)
}

func TestDecode_NoValidCandidates(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	// Window with no context tokens at all
	w := model.Window{
		ExampleID:     "q1",
		InputIDs:      make([]int, 3),
		OffsetMapping: []*model.Offset{nil, nil, nil},
		CLSIndex:      0,
	}
	start := [][]float64{flat(3, 0, nil)}
	end := [][]float64{flat(3, 0, nil)}

	preds, err := d.Decode([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)

	// The placeholder candidate is the defined fallback, not an error
	assert.Equal(t, "empty", preds["q1"].Text)
}

func TestDecode_ShapeMismatch(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	w := parisWindow()

	_, err := d.Decode([]model.Example{ex}, []model.Window{w}, [][]float64{}, [][]float64{flat(9, 0, nil)})
	require.Error(t, err)

	_, err = d.Decode([]model.Example{ex}, []model.Window{w}, [][]float64{flat(9, 0, nil)}, [][]float64{})
	require.Error(t, err)
}

func TestDecode_EmptyLogitsWindow(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	w := parisWindow()

	_, err := d.Decode([]model.Example{ex}, []model.Window{w}, [][]float64{{}}, [][]float64{{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q1")
}

func TestDecodeNBest_RanksCandidates(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	w := parisWindow()
	// Two distinct start peaks sharing one end peak rank two candidates
	start := [][]float64{flat(9, -10, map[int]float64{1: 10, 4: 5})}
	end := [][]float64{flat(9, -10, map[int]float64{6: 10})}

	nbest, err := d.DecodeNBest([]model.Example{ex}, []model.Window{w}, start, end)
	require.NoError(t, err)

	entries := nbest["q1"]
	require.GreaterOrEqual(t, len(entries), 2)
	assert.Equal(t, "Paris is the capital of France", entries[0].Text)
	assert.Equal(t, "capital of France", entries[1].Text)
	assert.Greater(t, entries[0].Probability, entries[1].Probability)

	// Probabilities across the list always sum to one
	var sum float64
	for _, e := range entries {
		sum += e.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestDecode_ExampleWithoutWindows(t *testing.T) {
	d := NewDecoder(model.DecodeConfig{NBestSize: 20, MaxAnswerLength: 30})

	ex := parisExample()
	preds, err := d.Decode([]model.Example{ex}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "empty", preds["q1"].Text)
}
