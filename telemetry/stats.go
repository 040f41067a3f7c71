package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes the scores of one evaluated generation.
type GenerationStats struct {
	Generation uint64  `csv:"generation"`
	Best       float64 `csv:"best"`
	Worst      float64 `csv:"worst"`
	Mean       float64 `csv:"mean"`
	StdDev     float64 `csv:"std_dev"`
	P50        float64 `csv:"p50"`
	P90        float64 `csv:"p90"`

	EvalDuration   time.Duration `csv:"-"`
	EvolveDuration time.Duration `csv:"-"`
	EvalMS         int64         `csv:"eval_ms"`
	EvolveMS       int64         `csv:"evolve_ms"`
}

// ComputeGenerationStats summarizes scores. The input is not modified.
func ComputeGenerationStats(generation uint64, scores []float64) GenerationStats {
	s := GenerationStats{Generation: generation}
	if len(scores) == 0 {
		return s
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	s.Best = floats.Max(sorted)
	s.Worst = floats.Min(sorted)
	if len(sorted) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = sorted[0]
	}
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	return s
}

// WithDurations records how long evaluation and evolution took.
func (s GenerationStats) WithDurations(eval, evolve time.Duration) GenerationStats {
	s.EvalDuration = eval
	s.EvolveDuration = evolve
	s.EvalMS = eval.Milliseconds()
	s.EvolveMS = evolve.Milliseconds()
	return s
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("generation", s.Generation),
		slog.Float64("best", s.Best),
		slog.Float64("worst", s.Worst),
		slog.Float64("mean", s.Mean),
		slog.Float64("std_dev", s.StdDev),
		slog.Float64("p50", s.P50),
		slog.Float64("p90", s.P90),
		slog.Duration("eval", s.EvalDuration),
		slog.Duration("evolve", s.EvolveDuration),
	)
}
