package trace

import "sort"

// Counterfactual ranks the scored nodes and computes the regret of choosing
// chosenID. Returns the top-k candidates by score descending (ties by node ID)
// and the regret, which is 0 when the chosen node is best, unscored, or absent.
func Counterfactual(chosenID string, scores map[string]float64, k int) ([]CandidateScore, float64) {
	if k <= 0 || len(scores) == 0 {
		return nil, 0
	}
	all := make([]CandidateScore, 0, len(scores))
	for id, s := range scores {
		all = append(all, CandidateScore{NodeID: id, Score: s})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].NodeID < all[j].NodeID
	})

	candidates := make([]CandidateScore, min(k, len(all)))
	copy(candidates, all)

	chosen, ok := scores[chosenID]
	if !ok {
		return candidates, 0
	}
	regret := all[0].Score - chosen
	if regret < 0 {
		regret = 0
	}
	return candidates, regret
}

// CopyScores returns a shallow copy so trace data survives policy map reuse.
// Returns nil for nil input.
func CopyScores(scores map[string]float64) map[string]float64 {
	if scores == nil {
		return nil
	}
	cp := make(map[string]float64, len(scores))
	for k, v := range scores {
		cp[k] = v
	}
	return cp
}
