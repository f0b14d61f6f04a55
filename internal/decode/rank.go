package decode

import (
	"math"
	"sort"
)

// topIndexes returns the indices of the k largest logits, descending, with
// ties keeping original index order
func topIndexes(logits []float64, k int) []int {
	idx := make([]int, len(logits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return logits[idx[i]] > logits[idx[j]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// softmax converts candidate scores into a probability distribution,
// subtracting the max score first for numerical stability
func softmax(cands []candidate) {
	if len(cands) == 0 {
		return
	}
	maxScore := cands[0].score
	for i := 1; i < len(cands); i++ {
		if cands[i].score > maxScore {
			maxScore = cands[i].score
		}
	}
	var sum float64
	for i := range cands {
		cands[i].probability = math.Exp(cands[i].score - maxScore)
		sum += cands[i].probability
	}
	for i := range cands {
		cands[i].probability /= sum
	}
}
