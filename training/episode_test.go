package training

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/smarticles/neural"
	"github.com/pthm-cable/smarticles/sim"
)

func TestObservation(t *testing.T) {
	m := sim.MatrixFromValues(2, []int8{10, -20, 0, 100})

	got := Observation(math.Pi, m)
	want := []float32{5, 1, -2, 0, 10}
	if len(got) != len(want) {
		t.Fatalf("observation = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("observation = %v, want %v", got, want)
			break
		}
	}
}

func TestApplyAction(t *testing.T) {
	m := sim.MatrixFromValues(2, []int8{0, 95, -95, 7})

	ApplyAction([]float32{0.99, 1, -1, -0.35}, m, 100)

	want := []int8{9, 100, -100, 4}
	for i, v := range m.Values() {
		if v != want[i] {
			t.Errorf("matrix = %v, want %v", m.Values(), want)
			break
		}
	}
}

func TestApplyActionSaturates(t *testing.T) {
	m := sim.NewMatrix(1)
	ApplyAction([]float32{1e9}, m, 100)
	if m.Get(0, 0) != 100 {
		t.Errorf("entry = %d, want 100", m.Get(0, 0))
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		data EvaluationData
		want float64
	}{
		{"forward", EvaluationData{MovementProjection: 2, MaxDistance: 10, MeanDistance: 5}, 8.0 / 7},
		{"backward", EvaluationData{MovementProjection: -2, MaxDistance: 10, MeanDistance: 5}, -8.0 * 7 / 10},
		{"zero coefficient", EvaluationData{MovementProjection: 3}, 0},
		{"still", EvaluationData{MaxDistance: 1, MeanDistance: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.data); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapAngle(t *testing.T) {
	if got := wrapAngle(math.Pi + 0.1); math.Abs(got-(-math.Pi+0.1)) > 1e-12 {
		t.Errorf("wrapAngle(π+0.1) = %v", got)
	}
	if got := wrapAngle(-math.Pi - 0.1); math.Abs(got-(math.Pi-0.1)) > 1e-12 {
		t.Errorf("wrapAngle(-π-0.1) = %v", got)
	}
	if got := wrapAngle(1); got != 1 {
		t.Errorf("wrapAngle(1) = %v", got)
	}
}

func TestPairwiseDistances(t *testing.T) {
	maxDist, sum := pairwiseDistances([]sim.Vec2{{X: 0, Y: 0}, {X: 3, Y: 4}})
	if maxDist != 5 {
		t.Errorf("max = %v, want 5", maxDist)
	}
	// Both ordered pairs count, self pairs add zero
	if sum != 10 {
		t.Errorf("sum = %v, want 10", sum)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	cfg := testConfig(t)
	e := NewEvaluator(cfg)
	net := testTopology(t, cfg).New(testRNG(1))

	if e.Steps() != 5 {
		t.Fatalf("steps = %d, want 5", e.Steps())
	}

	a, err := e.Evaluate(net, testRNG(42))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	b, err := e.Evaluate(net, testRNG(42))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if a != b {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
	if a.MaxDistance <= 0 || a.MeanDistance <= 0 || a.MeanDistance > a.MaxDistance {
		t.Errorf("implausible dispersion metrics %+v", a)
	}
	if math.IsNaN(Score(a)) {
		t.Error("score is NaN")
	}
}

func TestEvaluateRejectsWrongTopology(t *testing.T) {
	cfg := testConfig(t)
	e := NewEvaluator(cfg)
	net := neural.New(testRNG(1), []int{3, 4}, neural.Tanh, neural.Tanh)

	if _, err := e.Evaluate(net, testRNG(1)); !errors.Is(err, neural.ErrInputSize) {
		t.Errorf("Evaluate error = %v, want ErrInputSize", err)
	}
}

func TestRunStaticMatrix(t *testing.T) {
	cfg := testConfig(t)
	e := NewEvaluator(cfg)
	m := sim.MatrixFromValues(2, []int8{50, 50, 50, 50})

	data, err := e.Run(nil, m, testRNG(7))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if data.MaxDistance <= 0 {
		t.Errorf("max distance = %v, want positive", data.MaxDistance)
	}
	// The matrix passed in is copied, not driven
	if m.Get(0, 0) != 50 {
		t.Error("static matrix was modified")
	}
}

func TestEvaluateAll(t *testing.T) {
	cfg := testConfig(t)
	e := NewEvaluator(cfg)
	b := NewBatch(testRNG(2), 4, testTopology(t, cfg))

	s1, d1, err := e.EvaluateAll(context.Background(), b.Networks, 99)
	if err != nil {
		t.Fatalf("EvaluateAll error: %v", err)
	}
	s2, _, err := e.EvaluateAll(context.Background(), b.Networks, 99)
	if err != nil {
		t.Fatalf("EvaluateAll error: %v", err)
	}

	if len(s1) != 4 || len(d1) != 4 {
		t.Fatalf("got %d scores and %d data, want 4", len(s1), len(d1))
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Errorf("score %d differs between runs: %v vs %v", i, s1[i], s2[i])
		}
		if s1[i] != Score(d1[i]) {
			t.Errorf("score %d does not match its data", i)
		}
	}
}

func TestEvaluateAllCancelled(t *testing.T) {
	cfg := testConfig(t)
	e := NewEvaluator(cfg)
	b := NewBatch(testRNG(2), 4, testTopology(t, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := e.EvaluateAll(ctx, b.Networks, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("EvaluateAll error = %v, want context.Canceled", err)
	}
}
