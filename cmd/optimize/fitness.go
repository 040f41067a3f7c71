package main

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/pthm-cable/smarticles/sim"
	"github.com/pthm-cable/smarticles/training"
)

// FitnessEvaluator scores static matrices with the training episode.
type FitnessEvaluator struct {
	space     MatrixSpace
	evaluator *training.Evaluator
	seeds     []uint64

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestMatrix  *sim.Matrix
	lastData    training.EvaluationData
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(space MatrixSpace, evaluator *training.Evaluator, seeds []uint64) *FitnessEvaluator {
	return &FitnessEvaluator{
		space:       space,
		evaluator:   evaluator,
		seeds:       seeds,
		bestFitness: math.Inf(1),
	}
}

// BestMatrix returns the matrix with the lowest fitness seen so far.
func (fe *FitnessEvaluator) BestMatrix() (*sim.Matrix, float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestMatrix, fe.bestFitness
}

// LastData returns the seed-averaged metrics of the most recent evaluation.
func (fe *FitnessEvaluator) LastData() training.EvaluationData {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastData
}

type seedResult struct {
	score float64
	data  training.EvaluationData
	err   error
}

// Evaluate computes fitness for a normalized vector (lower = better).
// Fitness is the negated episode score averaged over the seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	m := fe.space.Denormalize(x)

	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(s, 0))
			data, err := fe.evaluator.Run(nil, m.Clone(), rng)
			results[idx] = seedResult{score: training.Score(data), data: data, err: err}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var avg training.EvaluationData
	n := float64(len(fe.seeds))
	for _, r := range results {
		if r.err != nil {
			slog.Error("episode failed", "error", r.err)
			return math.Inf(1)
		}
		total += r.score
		avg.MovementProjection += r.data.MovementProjection / n
		avg.MaxDistance += r.data.MaxDistance / n
		avg.MeanDistance += r.data.MeanDistance / n
	}
	fitness := -total / n

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestMatrix = m
	}
	fe.lastData = avg
	fe.mu.Unlock()

	return fitness
}
