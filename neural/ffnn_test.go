package neural

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// identity returns a single-layer network computing relu(I*x), which is the
// identity for non-negative inputs. There is no linear activation.
func identity(n int) *Network {
	l := Layer{
		InputSize:  n,
		OutputSize: n,
		Weights:    make([]float32, n*n),
		Biases:     make([]float32, n),
		Activation: Relu,
	}
	for i := 0; i < n; i++ {
		l.Weights[i*n+i] = 1
	}
	net, err := FromLayers([]Layer{l})
	if err != nil {
		panic(err)
	}
	return net
}

func TestNewShapes(t *testing.T) {
	net := New(testRNG(1), []int{17, 8, 16}, Tanh, Tanh)

	if len(net.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(net.Layers))
	}
	if net.InputSize() != 17 || net.OutputSize() != 16 {
		t.Errorf("io = (%d, %d), want (17, 16)", net.InputSize(), net.OutputSize())
	}
	if got := len(net.Layers[0].Weights); got != 8*17 {
		t.Errorf("layer 0 weights = %d, want %d", got, 8*17)
	}
	if got := net.ParamCount(); got != 8*17+8+16*8+16 {
		t.Errorf("param count = %d", got)
	}

	limit := float32(1 / math.Sqrt(17))
	for i, w := range net.Layers[0].Weights {
		if w < -limit || w > limit {
			t.Fatalf("weight %d = %v outside ±%v", i, w, limit)
		}
	}
	for _, b := range net.Layers[1].Biases {
		if b != initialBias {
			t.Fatalf("bias = %v, want %v", b, initialBias)
		}
	}
}

func TestInferIdentity(t *testing.T) {
	net := identity(3)

	out, err := net.Infer([]float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Infer error: %v", err)
	}
	want := []float32{1, 2, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestInferSizeMismatch(t *testing.T) {
	net := identity(3)

	if _, err := net.Infer([]float32{1, 2}); !errors.Is(err, ErrInputSize) {
		t.Errorf("Infer error = %v, want ErrInputSize", err)
	}
}

func TestInferTanhRange(t *testing.T) {
	net := New(testRNG(7), []int{5, 8, 4}, Tanh, Tanh)

	in := []float32{10, -10, 3, 0, 100}
	out, err := net.Infer(in)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v < -1 || v > 1 {
			t.Errorf("out[%d] = %v outside [-1, 1]", i, v)
		}
	}

	again, _ := net.Infer(in)
	for i := range out {
		if out[i] != again[i] {
			t.Fatal("Infer is not deterministic")
		}
	}
}

func TestTraceMatchesInfer(t *testing.T) {
	net := New(testRNG(5), []int{4, 6, 3}, Tanh, Sigmoid)
	input := []float32{0.5, -1, 0.25, 2}

	trace, err := net.Trace(input)
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if len(trace) != 3 {
		t.Fatalf("trace has %d layers, want 3", len(trace))
	}
	for i, want := range []int{4, 6, 3} {
		if len(trace[i]) != want {
			t.Errorf("trace[%d] has %d values, want %d", i, len(trace[i]), want)
		}
	}

	out, err := net.Infer(input)
	if err != nil {
		t.Fatal(err)
	}
	for i := range out {
		if out[i] != trace[2][i] {
			t.Errorf("output %d: trace %v, infer %v", i, trace[2][i], out[i])
		}
	}

	trace[0][0] = 99
	if input[0] != 0.5 {
		t.Error("Trace aliased its input")
	}

	if _, err := net.Trace([]float32{1}); !errors.Is(err, ErrInputSize) {
		t.Errorf("Trace short input error = %v, want ErrInputSize", err)
	}
}

func TestFromLayersRejectsBadChain(t *testing.T) {
	a := NewLayer(testRNG(1), 4, 3, Relu)
	b := NewLayer(testRNG(2), 5, 2, Relu)

	if _, err := FromLayers([]Layer{a, b}); !errors.Is(err, ErrTopology) {
		t.Errorf("FromLayers error = %v, want ErrTopology", err)
	}
	if _, err := FromLayers(nil); !errors.Is(err, ErrTopology) {
		t.Errorf("FromLayers(nil) error = %v, want ErrTopology", err)
	}
}

func TestFromLayersRejectsUnknownActivation(t *testing.T) {
	l := NewLayer(testRNG(1), 3, 2, Relu)
	l.Activation = Activation(9)

	if _, err := FromLayers([]Layer{l}); !errors.Is(err, ErrActivation) {
		t.Errorf("FromLayers error = %v, want ErrActivation", err)
	}
	if Activation(9).Valid() || !Tanh.Valid() {
		t.Error("Valid disagrees with the activation set")
	}
}

func TestActivations(t *testing.T) {
	tests := []struct {
		act  Activation
		in   float32
		want float32
	}{
		{Relu, -2, 0},
		{Relu, 3, 3},
		{LeakyRelu, -2, -0.02},
		{LeakyRelu, 2, 2},
		{Sigmoid, 0, 0.5},
		{Tanh, 0, 0},
	}

	for _, tt := range tests {
		got := tt.act.Apply(tt.in)
		if math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("%v(%v) = %v, want %v", tt.act, tt.in, got, tt.want)
		}
	}
}

func TestParseActivation(t *testing.T) {
	for _, a := range []Activation{Relu, LeakyRelu, Sigmoid, Tanh} {
		got, err := ParseActivation(a.String())
		if err != nil || got != a {
			t.Errorf("ParseActivation(%q) = %v, %v", a.String(), got, err)
		}
	}
	if _, err := ParseActivation("softmax"); err == nil {
		t.Error("expected error for unknown activation")
	}
}

func TestMutateDeterministic(t *testing.T) {
	base := New(testRNG(3), []int{5, 8, 4}, Tanh, Tanh)

	a, b := base.Clone(), base.Clone()
	a.Mutate(testRNG(99), 0.5)
	b.Mutate(testRNG(99), 0.5)

	if !a.Equal(b) {
		t.Error("same seed produced different mutations")
	}
	if a.Equal(base) {
		t.Error("mutation did not change the network")
	}
}

func TestMutateBounds(t *testing.T) {
	base := New(testRNG(4), []int{16, 4}, Relu, Relu)
	mut := base.Clone()
	mut.Mutate(testRNG(5), 0.2)

	wMax := 0.2/math.Sqrt(16) + 1e-6
	l, m := base.Layers[0], mut.Layers[0]
	for i := range l.Weights {
		if d := math.Abs(float64(m.Weights[i] - l.Weights[i])); d > wMax {
			t.Fatalf("weight %d moved %v, more than %v", i, d, wMax)
		}
	}
	for i := range l.Biases {
		if d := math.Abs(float64(m.Biases[i] - l.Biases[i])); d > 0.2+1e-6 {
			t.Fatalf("bias %d moved %v, more than 0.2", i, d)
		}
	}
}

func TestMutateZeroRate(t *testing.T) {
	base := New(testRNG(6), []int{3, 3}, Relu, Relu)
	mut := base.Clone()
	mut.Mutate(testRNG(1), 0)

	if !mut.Equal(base) {
		t.Error("zero-rate mutation changed the network")
	}
}

func TestMutatePanicsOnBadRate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(testRNG(1), []int{2, 2}, Relu, Relu).Mutate(testRNG(1), 1.5)
}

func TestCrossoverExtremes(t *testing.T) {
	a := New(testRNG(10), []int{4, 6, 3}, Tanh, Tanh)
	b := New(testRNG(11), []int{4, 6, 3}, Tanh, Tanh)

	if child := a.Crossover(testRNG(1), b, 1); !child.Equal(a) {
		t.Error("crossover with p=1 should equal the receiver")
	}
	if child := a.Crossover(testRNG(1), b, 0); !child.Equal(b) {
		t.Error("crossover with p=0 should equal the other parent")
	}
}

func TestCrossoverMixesGenes(t *testing.T) {
	a := New(testRNG(12), []int{8, 8}, Relu, Relu)
	b := a.Clone()
	for i := range b.Layers[0].Weights {
		b.Layers[0].Weights[i] += 1
	}

	child := a.Crossover(testRNG(13), b, 0.5)
	fromA, fromB := 0, 0
	for i, w := range child.Layers[0].Weights {
		switch w {
		case a.Layers[0].Weights[i]:
			fromA++
		case b.Layers[0].Weights[i]:
			fromB++
		default:
			t.Fatalf("weight %d = %v came from neither parent", i, w)
		}
	}
	if fromA == 0 || fromB == 0 {
		t.Errorf("expected genes from both parents, got %d/%d", fromA, fromB)
	}
}

func TestCrossoverTopologyMismatchPanics(t *testing.T) {
	a := New(testRNG(1), []int{4, 3}, Relu, Relu)
	b := New(testRNG(1), []int{4, 5, 3}, Relu, Relu)

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	a.Crossover(testRNG(1), b, 0.5)
}

func TestAverage(t *testing.T) {
	a := identity(2)
	b := identity(2)
	b.Layers[0].Weights[1] = 2
	b.Layers[0].Biases[0] = 4

	avg := Average(a, b)
	if avg.Layers[0].Weights[1] != 1 {
		t.Errorf("weight = %v, want 1", avg.Layers[0].Weights[1])
	}
	if avg.Layers[0].Biases[0] != 2 {
		t.Errorf("bias = %v, want 2", avg.Layers[0].Biases[0])
	}
	if avg.Layers[0].Weights[0] != 1 {
		t.Errorf("diagonal = %v, want 1", avg.Layers[0].Weights[0])
	}
}

func TestCloneIndependent(t *testing.T) {
	a := New(testRNG(20), []int{3, 2}, Relu, Relu)
	c := a.Clone()

	c.Layers[0].Weights[0] = 42
	c.Layers[0].Biases[0] = 42
	if a.Layers[0].Weights[0] == 42 || a.Layers[0].Biases[0] == 42 {
		t.Error("clone aliases the original")
	}
	if c.Equal(a) {
		t.Error("Equal should detect the change")
	}
}

func BenchmarkInfer(b *testing.B) {
	net := New(testRNG(1), []int{17, 8, 16}, Tanh, Tanh)
	in := make([]float32, 17)
	for i := range in {
		in[i] = float32(i) / 17
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		net.Infer(in)
	}
}
