package neural

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/smarticles/config"
)

// Topology describes the shape of the controller networks.
type Topology struct {
	Sizes  []int
	Hidden Activation
	Output Activation
}

// TopologyFromConfig reads the layer sizes and activations from cfg.
func TopologyFromConfig(cfg *config.Config) (Topology, error) {
	hidden, err := ParseActivation(cfg.Neural.HiddenActivation)
	if err != nil {
		return Topology{}, fmt.Errorf("neural.hidden_activation: %w", err)
	}
	output, err := ParseActivation(cfg.Neural.OutputActivation)
	if err != nil {
		return Topology{}, fmt.Errorf("neural.output_activation: %w", err)
	}
	return Topology{
		Sizes:  append([]int(nil), cfg.Derived.LayerSizes...),
		Hidden: hidden,
		Output: output,
	}, nil
}

// New creates a random network with this topology.
func (t Topology) New(rng *rand.Rand) *Network {
	return New(rng, t.Sizes, t.Hidden, t.Output)
}
