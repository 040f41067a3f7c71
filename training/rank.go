package training

import (
	"math"
	"sort"

	"github.com/pthm-cable/smarticles/neural"
)

// Ranked pairs a network index in the batch with its score.
type Ranked struct {
	Index int
	Score float64
}

// ScoredNetwork is a network together with the score it earned.
type ScoredNetwork struct {
	Score   float64
	Network *neural.Network
}

// Rank orders network indices by descending score. Equal scores keep their
// batch order. NaN ranks below every number.
func Rank(scores []float64) []Ranked {
	ranking := make([]Ranked, len(scores))
	for i, s := range scores {
		ranking[i] = Ranked{Index: i, Score: s}
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		sa, sb := ranking[a].Score, ranking[b].Score
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		return sa > sb
	})
	return ranking
}

// Capture returns the ranked networks as deep copies, so the result stays
// valid after the batch evolves.
func Capture(b *Batch, ranking []Ranked) []ScoredNetwork {
	out := make([]ScoredNetwork, len(ranking))
	for i, r := range ranking {
		out[i] = ScoredNetwork{Score: r.Score, Network: b.Networks[r.Index].Clone()}
	}
	return out
}
