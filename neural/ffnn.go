// Package neural provides the small dense feed-forward networks that act as
// controllers, together with the mutation and recombination operators used to
// evolve them.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

var (
	// ErrInputSize is returned by Infer when the input length does not match
	// the first layer.
	ErrInputSize = errors.New("neural: input size mismatch")
	// ErrTopology is returned when consecutive layer sizes do not chain.
	ErrTopology = errors.New("neural: layer sizes do not chain")
	// ErrActivation is returned for a layer whose activation tag is unknown.
	ErrActivation = errors.New("neural: unknown activation")
)

// initialBias is the bias every freshly created neuron starts with.
const initialBias = 0.01

// Layer is a dense layer computing activation(W*x + b).
type Layer struct {
	InputSize  int
	OutputSize int
	Weights    []float32 // OutputSize x InputSize, row-major
	Biases     []float32 // OutputSize
	Activation Activation
}

// NewLayer creates a layer with weights drawn uniformly from
// [-1/sqrt(in), 1/sqrt(in)] and biases set to a small positive constant.
func NewLayer(rng *rand.Rand, in, out int, act Activation) Layer {
	if in < 1 || out < 1 {
		panic(fmt.Sprintf("neural: layer size %dx%d must be positive", out, in))
	}
	limit := 1 / math.Sqrt(float64(in))

	l := Layer{
		InputSize:  in,
		OutputSize: out,
		Weights:    make([]float32, in*out),
		Biases:     make([]float32, out),
		Activation: act,
	}
	for i := range l.Weights {
		l.Weights[i] = float32((2*rng.Float64() - 1) * limit)
	}
	for i := range l.Biases {
		l.Biases[i] = initialBias
	}
	return l
}

// forward writes activation(W*x + b) into y.
func (l *Layer) forward(x, y []float32) {
	copy(y, l.Biases)
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: l.OutputSize, Cols: l.InputSize, Stride: l.InputSize, Data: l.Weights},
		blas32.Vector{N: l.InputSize, Inc: 1, Data: x},
		1,
		blas32.Vector{N: l.OutputSize, Inc: 1, Data: y},
	)
	for i, v := range y {
		y[i] = l.Activation.Apply(v)
	}
}

func (l *Layer) clone() Layer {
	c := *l
	c.Weights = append([]float32(nil), l.Weights...)
	c.Biases = append([]float32(nil), l.Biases...)
	return c
}

// Network is an ordered stack of dense layers. A Network owns its weights;
// Clone and the recombination operators never alias another network.
type Network struct {
	Layers []Layer
}

// New creates a randomly initialized network with the given layer sizes
// (input, hidden..., output). Hidden layers use hidden, the last layer output.
func New(rng *rand.Rand, sizes []int, hidden, output Activation) *Network {
	if len(sizes) < 2 {
		panic(fmt.Sprintf("neural: need at least input and output sizes, got %v", sizes))
	}
	n := &Network{Layers: make([]Layer, 0, len(sizes)-1)}
	for i := 0; i+1 < len(sizes); i++ {
		act := hidden
		if i+2 == len(sizes) {
			act = output
		}
		n.Layers = append(n.Layers, NewLayer(rng, sizes[i], sizes[i+1], act))
	}
	return n
}

// FromLayers builds a network from existing layers after checking that their
// sizes chain, their slices match their declared sizes and their activations
// are known.
func FromLayers(layers []Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrTopology)
	}
	for i, l := range layers {
		if len(l.Weights) != l.InputSize*l.OutputSize || len(l.Biases) != l.OutputSize {
			return nil, fmt.Errorf("%w: layer %d has %d weights and %d biases for %dx%d",
				ErrTopology, i, len(l.Weights), len(l.Biases), l.OutputSize, l.InputSize)
		}
		if !l.Activation.Valid() {
			return nil, fmt.Errorf("%w: layer %d has %v", ErrActivation, i, l.Activation)
		}
		if i > 0 && layers[i-1].OutputSize != l.InputSize {
			return nil, fmt.Errorf("%w: layer %d outputs %d but layer %d takes %d",
				ErrTopology, i-1, layers[i-1].OutputSize, i, l.InputSize)
		}
	}
	return &Network{Layers: layers}, nil
}

// InputSize returns the observation length the network expects.
func (n *Network) InputSize() int { return n.Layers[0].InputSize }

// OutputSize returns the action length the network produces.
func (n *Network) OutputSize() int { return n.Layers[len(n.Layers)-1].OutputSize }

// Sizes returns the layer sizes (input, hidden..., output).
func (n *Network) Sizes() []int {
	sizes := []int{n.InputSize()}
	for _, l := range n.Layers {
		sizes = append(sizes, l.OutputSize)
	}
	return sizes
}

// Infer runs the network on input and returns the output of the last layer.
func (n *Network) Infer(input []float32) ([]float32, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(input), n.InputSize())
	}
	x := input
	for i := range n.Layers {
		l := &n.Layers[i]
		y := make([]float32, l.OutputSize)
		l.forward(x, y)
		x = y
	}
	return x, nil
}

// Trace runs the network like Infer and returns the values of every layer,
// input first and output last.
func (n *Network) Trace(input []float32) ([][]float32, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(input), n.InputSize())
	}
	trace := make([][]float32, 0, len(n.Layers)+1)
	trace = append(trace, append([]float32(nil), input...))
	for i := range n.Layers {
		l := &n.Layers[i]
		y := make([]float32, l.OutputSize)
		l.forward(trace[i], y)
		trace = append(trace, y)
	}
	return trace, nil
}

func checkRate(name string, rate float64) {
	if rate < 0 || rate > 1 || math.IsNaN(rate) {
		panic(fmt.Sprintf("neural: %s must be in [0, 1], got %v", name, rate))
	}
}

// Mutate perturbs every weight by uniform noise in ±rate/sqrt(InputSize) and
// every bias by uniform noise in ±rate. rate must be in [0, 1].
func (n *Network) Mutate(rng *rand.Rand, rate float64) {
	checkRate("mutation rate", rate)
	for li := range n.Layers {
		l := &n.Layers[li]
		wMax := rate / math.Sqrt(float64(l.InputSize))
		for i := range l.Weights {
			l.Weights[i] += float32((2*rng.Float64() - 1) * wMax)
		}
		for i := range l.Biases {
			l.Biases[i] += float32((2*rng.Float64() - 1) * rate)
		}
	}
}

func (n *Network) checkSameTopology(o *Network) {
	if len(n.Layers) != len(o.Layers) {
		panic(fmt.Sprintf("neural: topology mismatch: %d vs %d layers", len(n.Layers), len(o.Layers)))
	}
	for i := range n.Layers {
		a, b := &n.Layers[i], &o.Layers[i]
		if a.InputSize != b.InputSize || a.OutputSize != b.OutputSize {
			panic(fmt.Sprintf("neural: topology mismatch at layer %d: %dx%d vs %dx%d",
				i, a.OutputSize, a.InputSize, b.OutputSize, b.InputSize))
		}
	}
}

// Crossover returns a child whose every weight and bias is independently
// taken from n with probability p and from other otherwise. Both networks
// must share the same topology.
func (n *Network) Crossover(rng *rand.Rand, other *Network, p float64) *Network {
	checkRate("crossover probability", p)
	n.checkSameTopology(other)

	child := n.Clone()
	for li := range child.Layers {
		c, o := &child.Layers[li], &other.Layers[li]
		for i := range c.Weights {
			if rng.Float64() >= p {
				c.Weights[i] = o.Weights[i]
			}
		}
		for i := range c.Biases {
			if rng.Float64() >= p {
				c.Biases[i] = o.Biases[i]
			}
		}
	}
	return child
}

// Average returns the elementwise mean of two networks with the same
// topology. Activations are taken from a.
func Average(a, b *Network) *Network {
	a.checkSameTopology(b)

	child := a.Clone()
	for li := range child.Layers {
		c, o := &child.Layers[li], &b.Layers[li]
		for i := range c.Weights {
			c.Weights[i] = (c.Weights[i] + o.Weights[i]) / 2
		}
		for i := range c.Biases {
			c.Biases[i] = (c.Biases[i] + o.Biases[i]) / 2
		}
	}
	return child
}

// Clone returns a deep copy.
func (n *Network) Clone() *Network {
	c := &Network{Layers: make([]Layer, len(n.Layers))}
	for i := range n.Layers {
		c.Layers[i] = n.Layers[i].clone()
	}
	return c
}

// Equal reports whether both networks have identical layers, bit for bit.
func (n *Network) Equal(o *Network) bool {
	if len(n.Layers) != len(o.Layers) {
		return false
	}
	for li := range n.Layers {
		a, b := &n.Layers[li], &o.Layers[li]
		if a.InputSize != b.InputSize || a.OutputSize != b.OutputSize || a.Activation != b.Activation {
			return false
		}
		for i := range a.Weights {
			if math.Float32bits(a.Weights[i]) != math.Float32bits(b.Weights[i]) {
				return false
			}
		}
		for i := range a.Biases {
			if math.Float32bits(a.Biases[i]) != math.Float32bits(b.Biases[i]) {
				return false
			}
		}
	}
	return true
}

// ParamCount returns the total number of weights and biases.
func (n *Network) ParamCount() int {
	total := 0
	for _, l := range n.Layers {
		total += len(l.Weights) + len(l.Biases)
	}
	return total
}
