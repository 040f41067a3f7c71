package training

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/neural"
)

// Recombination selects how two distinct parents produce a child.
type Recombination uint8

const (
	// RecombineCrossover takes each parameter from one parent, biased
	// toward the better-ranked one.
	RecombineCrossover Recombination = iota
	// RecombineAverage takes the elementwise mean of both parents.
	RecombineAverage
)

const (
	// selfPairMutation is the extra mutation applied when a parent is
	// paired with itself.
	selfPairMutation = 0.1
	// crossoverBias caps the chance of inheriting from the first parent.
	crossoverBias = 0.99
	// decayScale controls how fast generation decay shrinks mutation.
	decayScale = 1000
)

// EvolveOptions controls one evolve step.
type EvolveOptions struct {
	MutationRate    float64
	GenerationDecay bool
	Recombination   Recombination
}

// EvolveOptionsFromConfig reads the evolve options from cfg.
func EvolveOptionsFromConfig(cfg *config.Config) EvolveOptions {
	opts := EvolveOptions{
		MutationRate:    cfg.Training.MutationRate,
		GenerationDecay: cfg.Training.GenerationDecay,
	}
	if cfg.Training.Recombination == "average" {
		opts.Recombination = RecombineAverage
	}
	return opts
}

// SelectionWeights returns the parent selection weight of every ranking
// position. Scores of the top half are normalized to [0, 1] against the
// min and max of the first l/2+1 entries; the third quarter gets half the
// weight of the last top-half entry; the bottom quarter gets 0.
//
// When every normalizing score is equal the top half is weighted 1, and a
// ranking too short to split is weighted uniformly.
func SelectionWeights(ranking []Ranked) []float64 {
	l := len(ranking)
	weights := make([]float64, l)
	if l < 2 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range ranking[:l/2+1] {
		lo = math.Min(lo, r.Score)
		hi = math.Max(hi, r.Score)
	}
	norm := func(s float64) float64 {
		if !(hi > lo) || math.IsInf(hi-lo, 0) {
			return 1
		}
		w := (s - lo) / (hi - lo)
		if math.IsNaN(w) {
			return 0
		}
		return w
	}

	for i := range weights {
		switch {
		case i < l/2:
			weights[i] = norm(ranking[i].Score)
		case i < 3*l/4:
			weights[i] = 0.5 * norm(ranking[l/2-1].Score)
		}
	}
	return weights
}

// Evolve replaces the networks of b with a new generation of the same size
// bred from ranking, and increments the generation counter.
//
// Two ranking positions are sampled with replacement according to
// SelectionWeights. Distinct parents are recombined; a parent paired with
// itself is cloned and mutated by a fixed small rate. Every child is then
// mutated once more with a rate that grows with the parents' rank.
func Evolve(rng *rand.Rand, b *Batch, ranking []Ranked, opts EvolveOptions) {
	if opts.MutationRate < 0 || opts.MutationRate > 1 {
		panic(fmt.Sprintf("training: mutation rate must be in [0, 1], got %v", opts.MutationRate))
	}
	if len(ranking) != len(b.Networks) {
		panic(fmt.Sprintf("training: ranking has %d entries for %d networks", len(ranking), len(b.Networks)))
	}

	l := len(ranking)
	weights := SelectionWeights(ranking)
	sampler := sampleuv.NewWeighted(weights, rng)
	sample := func() int {
		i, ok := sampler.Take()
		if !ok {
			// Every weight is zero; fall back to uniform.
			return rng.IntN(l)
		}
		sampler.Reweight(i, weights[i])
		return i
	}

	next := make([]*neural.Network, 0, l)
	for len(next) < l {
		i1, i2 := sample(), sample()
		p1 := b.Networks[ranking[i1].Index]
		p2 := b.Networks[ranking[i2].Index]

		var child *neural.Network
		switch {
		case i1 == i2:
			child = p1.Clone()
			child.Mutate(rng, selfPairMutation)
		case opts.Recombination == RecombineAverage:
			child = neural.Average(p1, p2)
		default:
			child = p1.Crossover(rng, p2, crossoverProbability(weights[i1], weights[i2]))
		}

		child.Mutate(rng, childMutationRate(opts, b.Generation, i1, i2, l))
		next = append(next, child)
	}

	b.Networks = next
	b.Generation++
}

func crossoverProbability(w1, w2 float64) float64 {
	if w1+w2 <= 0 {
		return 0.5
	}
	return crossoverBias * w1 / (w1 + w2)
}

// childMutationRate scales the base rate from one half for the best pair to
// one for the worst, optionally decayed with the generation count.
func childMutationRate(opts EvolveOptions, generation uint64, i1, i2, l int) float64 {
	k := float64(i1+i2)/2 + 1
	n := float64(l)
	rate := opts.MutationRate * (2*k + n) / (3 * n)
	if opts.GenerationDecay {
		rate /= math.Exp(float64(generation) / (decayScale * k))
	}
	return min(max(rate, 0), 1)
}
