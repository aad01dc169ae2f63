package mev

// Evidence is one weighted signal supporting a detection. Weights are
// percentage points; the per-pattern weight tables sum to 100.
type Evidence struct {
	Name    string
	Weight  int
	Present bool
}

// ScoreEvidence sums the weights of present evidence, capped at 100.
// Missing evidence contributes nothing; there are no negative weights.
func ScoreEvidence(evidence []Evidence) float64 {
	score := 0
	for _, e := range evidence {
		if e.Present {
			score += e.Weight
		}
	}
	if score > 100 {
		score = 100
	}
	return float64(score)
}
