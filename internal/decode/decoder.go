package decode

import (
	"fmt"
	"sort"

	"github.com/mpavlenko/squadron/internal/model"
)

// Decoder reconstructs answer texts from per-window start/end logits. It is
// stateless and safe for concurrent use; each example decodes independently.
type Decoder struct {
	cfg model.DecodeConfig
}

// NewDecoder creates a decoder with the given configuration, applying
// defaults for unset numeric fields
func NewDecoder(cfg model.DecodeConfig) *Decoder {
	if cfg.NBestSize <= 0 {
		cfg.NBestSize = 20
	}
	if cfg.MaxAnswerLength <= 0 {
		cfg.MaxAnswerLength = 30
	}
	return &Decoder{cfg: cfg}
}

// candidate is one ephemeral span under consideration
type candidate struct {
	charStart   int
	charEnd     int
	score       float64
	startLogit  float64
	endLogit    float64
	text        string
	probability float64
}

func (c *candidate) isNull() bool {
	return c.charStart == 0 && c.charEnd == 0
}

// Decode maps every example to its best answer. startLogits and endLogits
// are indexed like windows: one dense score array per window, one score per
// token position. A shape mismatch is a caller-contract violation and fails
// immediately.
func (d *Decoder) Decode(examples []model.Example, windows []model.Window, startLogits, endLogits [][]float64) (map[string]model.Prediction, error) {
	if len(startLogits) != len(windows) {
		return nil, fmt.Errorf("got %d start logit arrays for %d windows", len(startLogits), len(windows))
	}
	if len(endLogits) != len(windows) {
		return nil, fmt.Errorf("got %d end logit arrays for %d windows", len(endLogits), len(windows))
	}

	byExample := groupByExample(windows)

	predictions := make(map[string]model.Prediction, len(examples))
	for i := range examples {
		ex := &examples[i]

		ws, sl, el := sliceExample(byExample[ex.ID], windows, startLogits, endLogits)
		pred, err := d.DecodeExample(ex, ws, sl, el)
		if err != nil {
			return nil, fmt.Errorf("decode example %s: %w", ex.ID, err)
		}
		predictions[ex.ID] = pred
	}
	return predictions, nil
}

// DecodeNBest maps every example to its ranked candidate list, indexed like
// Decode
func (d *Decoder) DecodeNBest(examples []model.Example, windows []model.Window, startLogits, endLogits [][]float64) (map[string][]model.NBestEntry, error) {
	if len(startLogits) != len(windows) || len(endLogits) != len(windows) {
		return nil, fmt.Errorf("got %d/%d logit arrays for %d windows", len(startLogits), len(endLogits), len(windows))
	}

	byExample := groupByExample(windows)

	nbest := make(map[string][]model.NBestEntry, len(examples))
	for i := range examples {
		ex := &examples[i]

		ws, sl, el := sliceExample(byExample[ex.ID], windows, startLogits, endLogits)
		entries, err := d.NBest(ex, ws, sl, el)
		if err != nil {
			return nil, fmt.Errorf("decode example %s: %w", ex.ID, err)
		}
		nbest[ex.ID] = entries
	}
	return nbest, nil
}

// groupByExample collects window indices per owning example, one pass, order
// preserved
func groupByExample(windows []model.Window) map[string][]int {
	byExample := make(map[string][]int)
	for i := range windows {
		id := windows[i].ExampleID
		byExample[id] = append(byExample[id], i)
	}
	return byExample
}

func sliceExample(indices []int, windows []model.Window, startLogits, endLogits [][]float64) ([]model.Window, [][]float64, [][]float64) {
	ws := make([]model.Window, 0, len(indices))
	sl := make([][]float64, 0, len(indices))
	el := make([][]float64, 0, len(indices))
	for _, idx := range indices {
		ws = append(ws, windows[idx])
		sl = append(sl, startLogits[idx])
		el = append(el, endLogits[idx])
	}
	return ws, sl, el
}

// DecodeExample decodes one example given its own windows and their logit
// arrays. This is the per-example unit of work used by the parallel path.
func (d *Decoder) DecodeExample(ex *model.Example, windows []model.Window, startLogits, endLogits [][]float64) (model.Prediction, error) {
	prelim, nullScore, err := d.rank(ex, windows, startLogits, endLogits)
	if err != nil {
		return model.Prediction{}, err
	}

	if !d.cfg.Version2WithNegative {
		best := prelim[0]
		return model.Prediction{
			Text:        best.text,
			Probability: best.probability,
			StartLogit:  best.startLogit,
			EndLogit:    best.endLogit,
		}, nil
	}

	// Best non-empty candidate in rank order
	i := 0
	for i < len(prelim) && prelim[i].text == "" {
		i++
	}
	if i == len(prelim) {
		i = 0
	}
	best := prelim[i]

	var nullProb float64
	for j := range prelim {
		if prelim[j].isNull() && prelim[j].text == "" {
			nullProb = prelim[j].probability
			break
		}
	}

	pred := model.Prediction{
		Text:                best.text,
		Probability:         best.probability,
		StartLogit:          best.startLogit,
		EndLogit:            best.endLogit,
		NoAnswerProbability: nullProb,
	}
	if nullScore-best.startLogit-best.endLogit > d.cfg.NullScoreDiffThreshold {
		pred.Text = ""
	}
	return pred, nil
}

// NBest returns one example's ranked candidate list: the same spans Decode
// chooses from, with their texts and softmax probabilities
func (d *Decoder) NBest(ex *model.Example, windows []model.Window, startLogits, endLogits [][]float64) ([]model.NBestEntry, error) {
	prelim, _, err := d.rank(ex, windows, startLogits, endLogits)
	if err != nil {
		return nil, err
	}

	entries := make([]model.NBestEntry, len(prelim))
	for i, c := range prelim {
		entries[i] = model.NBestEntry{
			Text:        c.text,
			Probability: c.probability,
			StartLogit:  c.startLogit,
			EndLogit:    c.endLogit,
		}
	}
	return entries, nil
}

// rank produces the example's sorted, softmaxed candidate list plus the
// minimum null score across its windows. The list is never empty.
func (d *Decoder) rank(ex *model.Example, windows []model.Window, startLogits, endLogits [][]float64) ([]candidate, float64, error) {
	var minNull *candidate
	var prelim []candidate

	for j := range windows {
		w := &windows[j]
		sl, el := startLogits[j], endLogits[j]
		if len(sl) == 0 || len(el) == 0 {
			return nil, 0, fmt.Errorf("window %d has empty logits", j)
		}
		if w.CLSIndex < 0 || w.CLSIndex >= len(sl) || w.CLSIndex >= len(el) {
			return nil, 0, fmt.Errorf("window %d: sentinel index %d outside logits", j, w.CLSIndex)
		}

		// Null score lives at the sentinel position. Track the minimum
		// (most confident null) across the example's windows.
		nullScore := sl[w.CLSIndex] + el[w.CLSIndex]
		if minNull == nil || minNull.score > nullScore {
			minNull = &candidate{score: nullScore, startLogit: sl[w.CLSIndex], endLogit: el[w.CLSIndex]}
		}

		offsets := w.OffsetMapping
		for _, si := range topIndexes(sl, d.cfg.NBestSize) {
			for _, ei := range topIndexes(el, d.cfg.NBestSize) {
				if si >= len(offsets) || ei >= len(offsets) || offsets[si] == nil || offsets[ei] == nil {
					continue
				}
				if ei < si || ei-si+1 > d.cfg.MaxAnswerLength {
					continue
				}
				if w.TokenIsMaxContext != nil && !w.TokenIsMaxContext[si] {
					continue
				}
				prelim = append(prelim, candidate{
					charStart:  offsets[si].Start,
					charEnd:    offsets[ei].End,
					score:      sl[si] + el[ei],
					startLogit: sl[si],
					endLogit:   el[ei],
				})
			}
		}
	}

	if d.cfg.Version2WithNegative && minNull != nil {
		prelim = append(prelim, *minNull)
	}

	// Rank across all windows, stable so ties keep enumeration order
	sort.SliceStable(prelim, func(i, j int) bool { return prelim[i].score > prelim[j].score })
	if len(prelim) > d.cfg.NBestSize {
		prelim = prelim[:d.cfg.NBestSize]
	}

	// The null candidate must survive the cut in v2 mode
	if d.cfg.Version2WithNegative && minNull != nil {
		found := false
		for i := range prelim {
			if prelim[i].isNull() {
				found = true
				break
			}
		}
		if !found {
			prelim = append(prelim, *minNull)
		}
	}

	for i := range prelim {
		c := &prelim[i]
		if c.charStart < 0 || c.charEnd > len(ex.Context) || c.charStart > c.charEnd {
			return nil, 0, fmt.Errorf("span offsets [%d, %d) outside context of length %d", c.charStart, c.charEnd, len(ex.Context))
		}
		c.text = ex.Context[c.charStart:c.charEnd]
	}

	// No valid span is an expected outcome, not an error
	if len(prelim) == 0 || (len(prelim) == 1 && prelim[0].text == "") {
		prelim = append([]candidate{{text: "empty"}}, prelim...)
	}

	softmax(prelim)

	var nullScore float64
	if minNull != nil {
		nullScore = minNull.score
	}
	return prelim, nullScore, nil
}
