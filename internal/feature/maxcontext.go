package feature

import "github.com/mpavlenko/squadron/internal/model"

// markMaxContext fills TokenIsMaxContext for every window of one example.
// When windows overlap, a context token appears in several windows; the
// authoritative window for that token is the one where it has the most
// surrounding context: score = min(tokens left, tokens right) + 0.01 * span
// length, highest score wins, first window wins ties.
func markMaxContext(windows []model.Window) {
	if len(windows) == 0 {
		return
	}
	if len(windows) == 1 {
		// No overlap, the single window owns every context token
		w := &windows[0]
		w.TokenIsMaxContext = make(map[int]bool)
		for k, off := range w.OffsetMapping {
			if off != nil {
				w.TokenIsMaxContext[k] = true
			}
		}
		return
	}

	// Assign document positions to context tokens by first appearance.
	// Windows are produced left to right with contiguous context slices,
	// so first-seen order is document order.
	docIndex := make(map[model.Offset]int)
	type spanInfo struct {
		lo, hi int // document position range covered, inclusive
	}
	spans := make([]spanInfo, len(windows))

	for j := range windows {
		lo, hi := -1, -1
		for _, off := range windows[j].OffsetMapping {
			if off == nil {
				continue
			}
			d, seen := docIndex[*off]
			if !seen {
				d = len(docIndex)
				docIndex[*off] = d
			}
			if lo == -1 || d < lo {
				lo = d
			}
			if d > hi {
				hi = d
			}
		}
		spans[j] = spanInfo{lo: lo, hi: hi}
	}

	// For each document position, pick the window maximizing the score
	best := make([]int, len(docIndex))
	for d := range best {
		best[d] = -1
		bestScore := 0.0
		for j, sp := range spans {
			if sp.lo == -1 || d < sp.lo || d > sp.hi {
				continue
			}
			left := d - sp.lo
			right := sp.hi - d
			score := float64(min(left, right)) + 0.01*float64(sp.hi-sp.lo+1)
			if best[d] == -1 || score > bestScore {
				best[d] = j
				bestScore = score
			}
		}
	}

	for j := range windows {
		w := &windows[j]
		w.TokenIsMaxContext = make(map[int]bool)
		for k, off := range w.OffsetMapping {
			if off == nil {
				continue
			}
			w.TokenIsMaxContext[k] = best[docIndex[*off]] == j
		}
	}
}
