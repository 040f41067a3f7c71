package telemetry

import (
	"math"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeGenerationStats(t *testing.T) {
	scores := []float64{5, 3, 3, 1, 0}
	s := ComputeGenerationStats(7, scores)

	if s.Generation != 7 {
		t.Errorf("generation = %d, want 7", s.Generation)
	}
	if s.Best != 5 || s.Worst != 0 {
		t.Errorf("best/worst = %v/%v, want 5/0", s.Best, s.Worst)
	}
	if math.Abs(s.Mean-2.4) > 1e-9 {
		t.Errorf("mean = %v, want 2.4", s.Mean)
	}
	// Sample std-dev of {0,1,3,3,5}: sqrt(11.2/4)
	if math.Abs(s.StdDev-math.Sqrt(2.8)) > 1e-9 {
		t.Errorf("std dev = %v, want %v", s.StdDev, math.Sqrt(2.8))
	}
	if s.P50 != 3 {
		t.Errorf("p50 = %v, want 3", s.P50)
	}

	// Input order is preserved
	if scores[0] != 5 || scores[4] != 0 {
		t.Errorf("scores were modified: %v", scores)
	}
}

func TestComputeGenerationStatsSmall(t *testing.T) {
	if s := ComputeGenerationStats(0, nil); s.Best != 0 || s.Mean != 0 {
		t.Errorf("empty stats = %+v", s)
	}

	s := ComputeGenerationStats(1, []float64{4})
	if s.Mean != 4 || s.StdDev != 0 || s.Best != 4 || s.Worst != 4 {
		t.Errorf("single stats = %+v", s)
	}
}

func TestWithDurations(t *testing.T) {
	s := GenerationStats{}.WithDurations(1500*time.Millisecond, 20*time.Millisecond)
	if s.EvalMS != 1500 || s.EvolveMS != 20 {
		t.Errorf("ms = %d/%d, want 1500/20", s.EvalMS, s.EvolveMS)
	}
}
