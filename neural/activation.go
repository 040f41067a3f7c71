package neural

import (
	"fmt"
	"math"
	"strings"
)

// Activation is the closed set of per-layer activation functions.
type Activation uint8

const (
	Relu Activation = iota
	LeakyRelu
	Sigmoid
	Tanh
)

// leakySlope is the LeakyRelu slope for negative inputs.
const leakySlope = 0.01

// Apply evaluates the activation at x.
func (a Activation) Apply(x float32) float32 {
	switch a {
	case Relu:
		return max(x, 0)
	case LeakyRelu:
		if x < 0 {
			return leakySlope * x
		}
		return x
	case Sigmoid:
		return float32(1 / (1 + math.Exp(-float64(x))))
	case Tanh:
		return float32(math.Tanh(float64(x)))
	default:
		panic(fmt.Sprintf("neural: unknown activation %d", a))
	}
}

// Valid reports whether a is one of the known activations.
func (a Activation) Valid() bool { return a <= Tanh }

func (a Activation) String() string {
	switch a {
	case Relu:
		return "relu"
	case LeakyRelu:
		return "leaky_relu"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	default:
		return fmt.Sprintf("activation(%d)", a)
	}
}

// ParseActivation returns the activation with the given name (case-insensitive).
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "relu":
		return Relu, nil
	case "leaky_relu", "leakyrelu":
		return LeakyRelu, nil
	case "sigmoid":
		return Sigmoid, nil
	case "tanh":
		return Tanh, nil
	}
	return 0, fmt.Errorf("unknown activation %q", name)
}
