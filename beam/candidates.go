package beam

import "sort"

// SelectCandidates returns the label ids worth extending with at one timestep.
// Labels are taken in order of decreasing probability, ties in index order,
// until topN labels are taken or their cumulative probability reaches cutoffProb.
// cutoffProb >= 1 disables the mass bound. At least one label is returned.
func SelectCandidates(probs []float64, topN int, cutoffProb float64) []int {
	if len(probs) == 0 {
		return nil
	}
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})

	limit := topN
	if limit <= 0 || limit > len(probs) {
		limit = len(probs)
	}
	selected := make([]int, 0, limit)
	cumulative := 0.0
	for _, id := range order {
		selected = append(selected, id)
		cumulative += probs[id]
		if len(selected) == limit {
			break
		}
		if cutoffProb < 1.0 && cumulative >= cutoffProb {
			break
		}
	}
	return selected
}
